package filecrypt

// Stage identifies a fixed point of an encrypt or decrypt operation
type Stage uint8

const (
	StageRead Stage = iota + 1
	StageHashed
	StageCompressed
	StageLayerSealed
	StageParsed
	StageLayerOpened
	StageDecompressed
	StageVerified
	StageWritten
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageRead:
		return "read"
	case StageHashed:
		return "hashed"
	case StageCompressed:
		return "compressed"
	case StageLayerSealed:
		return "layer-sealed"
	case StageParsed:
		return "parsed"
	case StageLayerOpened:
		return "layer-opened"
	case StageDecompressed:
		return "decompressed"
	case StageVerified:
		return "verified"
	case StageWritten:
		return "written"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Milestone is reported synchronously to a ProgressFunc
type Milestone struct {
	Stage   Stage
	Layer   int // 1-based layer number for layer stages, otherwise 0
	Percent int // Coarse overall completion, 0-100
}

// ProgressFunc receives milestones on the calling goroutine. It must return
// promptly; marshalling to another thread is the caller's concern.
type ProgressFunc func(Milestone)
