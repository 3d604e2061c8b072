package filecrypt

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
)

// fastArgon2 keeps key derivation cheap in tests
var fastArgon2 = Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	KeySize:     KeySize,
}

var fastPBKDF2 = PBKDF2Params{
	Iterations: 1000,
	KeySize:    KeySize,
}

func testConfig(alg Algorithm, multiLayer bool) Config {
	return Config{
		Algorithm:        alg,
		UseMemoryHardKDF: true,
		UseCompression:   true,
		MultiLayer:       multiLayer,
		Argon2:           fastArgon2,
		PBKDF2:           fastPBKDF2,
	}
}

func setupTestFS(t *testing.T) absfs.FileSystem {
	t.Helper()

	fs, err := memfs.NewFS()
	if err != nil {
		t.Fatalf("failed to create memfs: %v", err)
	}
	return fs
}

func newTestEngine(t *testing.T, fs absfs.FileSystem, cfg Config) *Engine {
	t.Helper()

	e, err := New(fs, cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return e
}

func writeTestFile(t *testing.T, fs absfs.FileSystem, path string, data []byte) {
	t.Helper()

	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		t.Fatalf("failed to write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close %s: %v", path, err)
	}
}

func readTestFile(t *testing.T, fs absfs.FileSystem, path string) []byte {
	t.Helper()

	f, err := fs.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return data
}

func fileExists(fs absfs.FileSystem, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// deniedFS refuses to open one path
type deniedFS struct {
	absfs.FileSystem
	deny string
}

func (d *deniedFS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	if name == d.deny {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return d.FileSystem.OpenFile(name, flag, perm)
}

// spyFS records every byte written to one path and can fail writes to it
type spyFS struct {
	absfs.FileSystem
	path      string
	failAfter int // Fail once this many bytes have been written; 0 disables
	written   bytes.Buffer
}

var errInjected = errors.New("injected write failure")

func (s *spyFS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	f, err := s.FileSystem.OpenFile(name, flag, perm)
	if err != nil || name != s.path {
		return f, err
	}
	return &spyFile{File: f, fs: s}, nil
}

type spyFile struct {
	absfs.File
	fs *spyFS
}

func (f *spyFile) Write(p []byte) (int, error) {
	if f.fs.failAfter > 0 && f.fs.written.Len()+len(p) > f.fs.failAfter {
		return 0, errInjected
	}
	f.fs.written.Write(p)
	return f.File.Write(p)
}
