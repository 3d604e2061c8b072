package filecrypt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/absfs/absfs"
	"github.com/sirupsen/logrus"
)

// Engine encrypts and decrypts whole files into containers. It holds only
// its configuration, so one Engine may serve many goroutines working on
// distinct files.
type Engine struct {
	fs     absfs.FileSystem
	config Config
	kdf    KeyDeriver
	log    logrus.FieldLogger
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger. The default discards all output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// EncryptResult describes a completed encryption
type EncryptResult struct {
	Algorithm        string
	KeyDerivation    KDFName
	InputFile        string
	OutputFile       string
	OriginalSize     int64
	CompressedSize   int64
	EncryptedSize    int64
	CompressionRatio float64
	IsVideo          bool
	OriginalHash     string
}

// DecryptResult describes a completed decryption
type DecryptResult struct {
	Algorithm         string
	KeyDerivation     KDFName
	InputFile         string
	OutputFile        string
	OriginalFilename  string
	OriginalExtension string
	FileType          FileType
	DecryptedSize     int64
	CompressionUsed   bool
	CompressionRatio  float64
	HashVerified      bool
	OriginalHash      string
}

// New creates an engine over fsys. fsys may be nil when only Seal and Open
// are used.
func New(fsys absfs.FileSystem, config Config, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	kdf, err := config.KeyDeriver()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		fs:     fsys,
		config: config,
		kdf:    kdf,
		log:    discardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Config returns a copy of the engine configuration
func (e *Engine) Config() Config {
	return e.config
}

// FileSystem returns the filesystem the engine reads and writes
func (e *Engine) FileSystem() absfs.FileSystem {
	return e.fs
}

func (e *Engine) emit(progress ProgressFunc, m Milestone) {
	e.log.WithFields(logrus.Fields{
		"stage":   m.Stage.String(),
		"layer":   m.Layer,
		"percent": m.Percent,
	}).Debug("milestone")

	if progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("stage", m.Stage.String()).Warnf("progress callback panicked: %v", r)
		}
	}()
	progress(m)
}

// Seal encrypts plaintext into a framed container. name is recorded as the
// original filename. plaintext is not modified.
func (e *Engine) Seal(plaintext, password []byte, name string, progress ProgressFunc) ([]byte, *EncryptResult, error) {
	c, result, err := e.seal(plaintext, password, name, progress)
	if err != nil {
		return nil, nil, err
	}
	out, err := c.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	e.emit(progress, Milestone{Stage: StageDone, Percent: 100})
	return out, result, nil
}

func (e *Engine) seal(plaintext, password []byte, name string, progress ProgressFunc) (*Container, *EncryptResult, error) {
	digest := ContentDigest(plaintext)
	e.emit(progress, Milestone{Stage: StageHashed, Percent: 20})

	payload := plaintext
	if e.config.UseCompression {
		compressed, err := compress(plaintext)
		if err != nil {
			return nil, nil, NewEncryptionError("encrypt", 0, err)
		}
		payload = compressed
		defer ZeroBytes(compressed)
	}
	ratio := compressionRatio(len(plaintext), len(payload))
	e.emit(progress, Milestone{Stage: StageCompressed, Percent: 30})

	layers, err := planLayers(e.config)
	if err != nil {
		return nil, nil, err
	}

	md := &Metadata{
		FormatVersion:     FormatVersion,
		Algorithm:         e.config.AlgorithmTag(),
		KeyDerivation:     e.kdf.Name(),
		KDFParams:         e.kdf.Params(),
		Compression:       e.config.UseCompression,
		CompressionRatio:  ratio,
		OriginalFilename:  filepath.Base(name),
		OriginalExtension: filepath.Ext(name),
		FileType:          ClassifyFile(name),
		FileSize:          int64(len(plaintext)),
		CompressedSize:    int64(len(payload)),
		OriginalHash:      digest,
		Layers:            layers,
	}
	if name == "" {
		md.OriginalFilename = ""
	}

	raw, err := encodeMetadata(md)
	if err != nil {
		return nil, nil, err
	}

	ciphertext, err := sealLayers(e.kdf, layers, password, payload, raw, func(i int) {
		e.emit(progress, Milestone{
			Stage:   StageLayerSealed,
			Layer:   i + 1,
			Percent: 40 + 30*(i+1)/len(layers),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	c := &Container{Metadata: md, RawMetadata: raw, Ciphertext: ciphertext}
	e.log.WithFields(logrus.Fields{
		"algorithm":      md.Algorithm,
		"key_derivation": md.KeyDerivation,
		"size":           md.FileSize,
		"compressed":     md.CompressedSize,
	}).Debug("sealed container")

	return c, &EncryptResult{
		Algorithm:        md.Algorithm,
		KeyDerivation:    md.KeyDerivation,
		OriginalSize:     md.FileSize,
		CompressedSize:   md.CompressedSize,
		EncryptedSize:    int64(c.Size()),
		CompressionRatio: ratio,
		IsVideo:          md.FileType == FileTypeVideo,
		OriginalHash:     digest,
	}, nil
}

// Open decrypts a framed container. The algorithm tag is checked against the
// engine configuration before any key derivation. A digest mismatch does not
// fail the call; it is reported as HashVerified=false.
func (e *Engine) Open(container, password []byte, progress ProgressFunc) ([]byte, *DecryptResult, error) {
	plaintext, result, err := e.open(container, password, progress)
	if err != nil {
		return nil, nil, err
	}
	e.emit(progress, Milestone{Stage: StageDone, Percent: 100})
	return plaintext, result, nil
}

func (e *Engine) open(container, password []byte, progress ProgressFunc) ([]byte, *DecryptResult, error) {
	c, err := ParseContainer(container)
	if err != nil {
		return nil, nil, err
	}
	md := c.Metadata

	if want := e.config.AlgorithmTag(); md.Algorithm != want {
		return nil, nil, &MismatchError{Want: want, Got: md.Algorithm}
	}
	if err := md.Validate(); err != nil {
		return nil, nil, err
	}
	kdf, err := headerKeyDeriver(e.config, md.KeyDerivation, md.KDFParams)
	if err != nil {
		return nil, nil, NewCorruptionError(fmt.Sprintf("key derivation: %v", err), nil)
	}
	e.emit(progress, Milestone{Stage: StageParsed, Percent: 30})

	n := len(md.Layers)
	payload, err := openLayers(kdf, md.Layers, password, c.Ciphertext, c.RawMetadata, func(i int) {
		e.emit(progress, Milestone{
			Stage:   StageLayerOpened,
			Layer:   i + 1,
			Percent: 30 + 30*(n-i)/n,
		})
	})
	if err != nil {
		e.log.WithField("algorithm", md.Algorithm).Debug("authentication failed")
		return nil, nil, err
	}

	plaintext := payload
	if md.Compression {
		plaintext, err = decompress(payload, md.FileSize)
		ZeroBytes(payload)
		if err != nil {
			return nil, nil, NewCorruptionError("compressed payload", err)
		}
	}
	e.emit(progress, Milestone{Stage: StageDecompressed, Percent: 70})

	verified := VerifyDigest(plaintext, md.OriginalHash)
	if !verified {
		e.log.WithField("original_filename", md.OriginalFilename).Warn("content digest mismatch after decryption")
	}
	e.emit(progress, Milestone{Stage: StageVerified, Percent: 80})

	return plaintext, &DecryptResult{
		Algorithm:         md.Algorithm,
		KeyDerivation:     md.KeyDerivation,
		OriginalFilename:  md.OriginalFilename,
		OriginalExtension: md.OriginalExtension,
		FileType:          md.FileType,
		DecryptedSize:     int64(len(plaintext)),
		CompressionUsed:   md.Compression,
		CompressionRatio:  md.CompressionRatio,
		HashVerified:      verified,
		OriginalHash:      md.OriginalHash,
	}, nil
}

// EncryptFile encrypts input into output on the engine's filesystem
func (e *Engine) EncryptFile(input, output string, password []byte, progress ProgressFunc) (*EncryptResult, error) {
	if err := e.checkPaths(input, output); err != nil {
		return nil, err
	}

	plaintext, err := e.readFile(input)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(plaintext)
	e.emit(progress, Milestone{Stage: StageRead, Percent: 10})

	c, result, err := e.seal(plaintext, password, input, progress)
	if err != nil {
		return nil, err
	}

	if err := e.writeFile(output, func(w io.Writer) error {
		_, err := c.WriteTo(w)
		return err
	}); err != nil {
		return nil, err
	}
	e.emit(progress, Milestone{Stage: StageWritten, Percent: 90})

	result.InputFile = input
	result.OutputFile = output
	if info, err := e.fs.Stat(output); err == nil {
		result.EncryptedSize = info.Size()
	}

	e.log.WithFields(logrus.Fields{"input": input, "output": output, "algorithm": result.Algorithm}).Info("encrypted file")
	e.emit(progress, Milestone{Stage: StageDone, Percent: 100})
	return result, nil
}

// DecryptFile decrypts input into output on the engine's filesystem
func (e *Engine) DecryptFile(input, output string, password []byte, progress ProgressFunc) (*DecryptResult, error) {
	if err := e.checkPaths(input, output); err != nil {
		return nil, err
	}

	plaintext, result, err := e.decryptFromFile(input, password, progress)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(plaintext)

	if err := e.writeFile(output, func(w io.Writer) error {
		_, err := w.Write(plaintext)
		return err
	}); err != nil {
		return nil, err
	}
	e.emit(progress, Milestone{Stage: StageWritten, Percent: 90})

	result.OutputFile = output
	e.log.WithFields(logrus.Fields{"input": input, "output": output, "verified": result.HashVerified}).Info("decrypted file")
	e.emit(progress, Milestone{Stage: StageDone, Percent: 100})
	return result, nil
}

// decryptFromFile reads and opens a container, leaving the write to the caller
func (e *Engine) decryptFromFile(input string, password []byte, progress ProgressFunc) ([]byte, *DecryptResult, error) {
	data, err := e.readFile(input)
	if err != nil {
		return nil, nil, err
	}
	e.emit(progress, Milestone{Stage: StageRead, Percent: 10})

	plaintext, result, err := e.open(data, password, progress)
	if err != nil {
		var ce *CorruptionError
		if errors.As(err, &ce) && ce.Path == "" {
			ce.Path = input
		}
		var ae *AuthenticationError
		if errors.As(err, &ae) {
			ae.Path = input
		}
		return nil, nil, err
	}
	result.InputFile = input
	return plaintext, result, nil
}

// InspectFile reads the metadata of a container file without a password
func (e *Engine) InspectFile(input string) (*Metadata, error) {
	if e.fs == nil {
		return nil, NewValidationError("filesystem", nil, "engine has no filesystem")
	}
	return InspectFile(e.fs, input)
}

// InspectFile reads and validates the metadata of a container on fsys. Only
// the length prefix and metadata are read.
func InspectFile(fsys absfs.FileSystem, input string) (*Metadata, error) {
	if err := ValidateFilePath(input); err != nil {
		return nil, err
	}

	info, err := fsys.Stat(input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &InputNotFoundError{Path: input, Err: err}
		}
		return nil, NewIOError("stat", input, err)
	}
	if info.IsDir() {
		return nil, NewIOError("read", input, fmt.Errorf("is a directory"))
	}

	f, err := fsys.Open(input)
	if err != nil {
		return nil, NewIOError("open", input, err)
	}
	defer f.Close()

	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(f, prefix[:]); err != nil {
		return nil, &CorruptionError{Path: input, Message: "truncated length prefix", Err: err}
	}
	length := int64(binary.BigEndian.Uint32(prefix[:]))
	if length > info.Size()-LengthPrefixSize {
		return nil, &CorruptionError{Path: input, Message: fmt.Sprintf("declared metadata length %d exceeds file size", length)}
	}

	header := make([]byte, LengthPrefixSize+length)
	copy(header, prefix[:])
	if _, err := io.ReadFull(f, header[LengthPrefixSize:]); err != nil {
		return nil, &CorruptionError{Path: input, Message: "truncated metadata", Err: err}
	}

	md, err := Inspect(header)
	if err != nil {
		var ce *CorruptionError
		if errors.As(err, &ce) {
			ce.Path = input
		}
		return nil, err
	}
	return md, nil
}

func (e *Engine) checkPaths(input, output string) error {
	if e.fs == nil {
		return NewValidationError("filesystem", nil, "engine has no filesystem")
	}
	if err := ValidateFilePath(input); err != nil {
		return err
	}
	return ValidateFilePath(output)
}

// readFile reads a whole file, mapping a missing path to InputNotFoundError
func (e *Engine) readFile(path string) ([]byte, error) {
	info, err := e.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &InputNotFoundError{Path: path, Err: err}
		}
		return nil, NewIOError("stat", path, err)
	}
	if info.IsDir() {
		return nil, NewIOError("read", path, fmt.Errorf("is a directory"))
	}

	f, err := e.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &InputNotFoundError{Path: path, Err: err}
		}
		return nil, NewIOError("open", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, NewIOError("read", path, err)
	}
	return data, nil
}

// writeFile creates or truncates path and fills it with write. On failure
// the partial output is removed on a best-effort basis.
func (e *Engine) writeFile(path string, write func(io.Writer) error) error {
	f, err := e.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return NewIOError("create", path, err)
	}

	fail := func(op string, err error) error {
		f.Close()
		if rmErr := e.fs.Remove(path); rmErr != nil {
			e.log.WithField("output", path).Warnf("failed to remove partial output: %v", rmErr)
		}
		return NewIOError(op, path, err)
	}

	if err := write(f); err != nil {
		return fail("write", err)
	}
	if err := f.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := f.Close(); err != nil {
		if rmErr := e.fs.Remove(path); rmErr != nil {
			e.log.WithField("output", path).Warnf("failed to remove partial output: %v", rmErr)
		}
		return NewIOError("close", path, err)
	}
	return nil
}
