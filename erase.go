package filecrypt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/absfs/absfs"
)

const (
	// DefaultErasePasses is the number of overwrite passes used when none is given
	DefaultErasePasses = 3

	// MaxErasePasses bounds the pass count
	MaxErasePasses = 35

	eraseChunkSize = 64 * 1024
)

// EraseResult describes a completed secure erase
type EraseResult struct {
	Path             string
	Passes           int
	BytesOverwritten int64
}

// SecureErase overwrites path with random bytes passes times, syncing after
// every pass, then removes it. Journaling filesystems, SSD wear levelling and
// snapshots may retain copies; the overwrite is best-effort at the storage
// layer. On failure the file may be partially overwritten.
func SecureErase(fsys absfs.FileSystem, path string, passes int) (*EraseResult, error) {
	if err := ValidateFilePath(path); err != nil {
		return nil, err
	}
	if err := ValidatePasses(passes); err != nil {
		return nil, err
	}

	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = &InputNotFoundError{Path: path, Err: err}
		}
		return nil, &EraseError{Path: path, Op: "stat", Err: err}
	}
	if info.IsDir() {
		return nil, &EraseError{Path: path, Op: "stat", Err: fmt.Errorf("is a directory")}
	}
	size := info.Size()

	f, err := fsys.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, &EraseError{Path: path, Op: "open", Err: err}
	}

	result := &EraseResult{Path: path, Passes: passes}
	buf := make([]byte, eraseChunkSize)
	for pass := 1; pass <= passes; pass++ {
		n, err := overwritePass(f, buf, size)
		result.BytesOverwritten += n
		if err != nil {
			f.Close()
			return nil, &EraseError{Path: path, Pass: pass, Op: "write", Err: err}
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, &EraseError{Path: path, Pass: pass, Op: "sync", Err: err}
		}
	}

	if err := f.Close(); err != nil {
		return nil, &EraseError{Path: path, Op: "close", Err: err}
	}
	if err := fsys.Remove(path); err != nil {
		return nil, &EraseError{Path: path, Op: "remove", Err: err}
	}
	return result, nil
}

// overwritePass writes size random bytes from the start of f
func overwritePass(f absfs.File, buf []byte, size int64) (int64, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	var written int64
	for written < size {
		chunk := buf
		if remaining := size - written; remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}
		if _, err := rand.Read(chunk); err != nil {
			return written, fmt.Errorf("failed to generate random data: %w", err)
		}
		n, err := f.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
