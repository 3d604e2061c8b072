package filecrypt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/absfs/absfs"
	"github.com/google/uuid"
)

// DefaultHistorySize is the number of entries a FileHistory keeps
const DefaultHistorySize = 10

// Operation names a recorded action
type Operation string

const (
	OperationEncrypt Operation = "encrypt"
	OperationDecrypt Operation = "decrypt"
	OperationShred   Operation = "shred"
)

// HistoryEntry records one completed or failed operation
type HistoryEntry struct {
	ID         uuid.UUID `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Operation  Operation `json:"operation"`
	InputFile  string    `json:"input_file"`
	OutputFile string    `json:"output_file,omitempty"`
	Algorithm  string    `json:"algorithm,omitempty"`
	Success    bool      `json:"success"`
}

// NewHistoryEntry returns an entry with a fresh ID and the current time
func NewHistoryEntry(op Operation, input, output, algorithm string, success bool) HistoryEntry {
	return HistoryEntry{
		ID:         uuid.New(),
		Timestamp:  time.Now().UTC(),
		Operation:  op,
		InputFile:  input,
		OutputFile: output,
		Algorithm:  algorithm,
		Success:    success,
	}
}

// HistoryStore persists operation history. The engine never uses it; it is
// for the embedding application.
type HistoryStore interface {
	// Load returns entries newest first
	Load() ([]HistoryEntry, error)

	// Save records an entry
	Save(entry HistoryEntry) error
}

// FileHistory keeps history as a JSON array on an absfs filesystem, newest
// first, trimmed to a fixed length.
type FileHistory struct {
	fs   absfs.FileSystem
	path string
	max  int

	mu sync.Mutex
}

var _ HistoryStore = (*FileHistory)(nil)

// NewFileHistory creates a history store at path. maxEntries <= 0 means
// DefaultHistorySize.
func NewFileHistory(fsys absfs.FileSystem, path string, maxEntries int) (*FileHistory, error) {
	if fsys == nil {
		return nil, NewValidationError("filesystem", nil, "filesystem cannot be nil")
	}
	if err := ValidateFilePath(path); err != nil {
		return nil, err
	}
	if maxEntries <= 0 {
		maxEntries = DefaultHistorySize
	}
	return &FileHistory{fs: fsys, path: path, max: maxEntries}, nil
}

// Load returns the stored entries. A missing file is an empty history.
func (h *FileHistory) Load() ([]HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

// Save prepends entry and trims the history. An unreadable history file is
// replaced. Entries without an ID or timestamp get one.
func (h *FileHistory) Save(entry HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	entries, err := h.load()
	if err != nil && !IsCorruptionError(err) {
		return err
	}

	entries = append([]HistoryEntry{entry}, entries...)
	if len(entries) > h.max {
		entries = entries[:h.max]
	}
	return h.store(entries)
}

// Recent returns at most n of the newest entries
func (h *FileHistory) Recent(n int) ([]HistoryEntry, error) {
	entries, err := h.Load()
	if err != nil {
		return nil, err
	}
	if n >= 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}

// Clear removes every entry
func (h *FileHistory) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store([]HistoryEntry{})
}

func (h *FileHistory) load() ([]HistoryEntry, error) {
	f, err := h.fs.Open(h.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []HistoryEntry{}, nil
		}
		return nil, NewIOError("open", h.path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, NewIOError("read", h.path, err)
	}
	if len(data) == 0 {
		return []HistoryEntry{}, nil
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &CorruptionError{Path: h.path, Message: "unreadable history", Err: err}
	}
	return entries, nil
}

func (h *FileHistory) store(entries []HistoryEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if dir := filepath.Dir(h.path); dir != "." && dir != "" {
		if err := h.fs.MkdirAll(dir, 0755); err != nil {
			return NewIOError("mkdir", dir, err)
		}
	}

	f, err := h.fs.OpenFile(h.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return NewIOError("create", h.path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return NewIOError("write", h.path, err)
	}
	if err := f.Close(); err != nil {
		return NewIOError("close", h.path, err)
	}
	return nil
}
