package filecrypt

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/absfs/absfs"
)

// OSFileSystem exposes the host filesystem as an absfs.FileSystem. With a
// non-empty root every name is resolved beneath it; otherwise absolute names
// are passed to the os package unchanged. Relative names are resolved
// against the working directory set by Chdir, which never touches the
// process working directory.
type OSFileSystem struct {
	root string

	mu  sync.RWMutex
	cwd string
}

// NewOSFileSystem returns a host filesystem adapter rooted at root
func NewOSFileSystem(root string) *OSFileSystem {
	return &OSFileSystem{root: root}
}

var _ absfs.FileSystem = (*OSFileSystem)(nil)

func (o *OSFileSystem) path(name string) string {
	if !filepath.IsAbs(name) {
		o.mu.RLock()
		cwd := o.cwd
		o.mu.RUnlock()
		if cwd != "" {
			name = filepath.Join(cwd, name)
		}
	}
	if o.root == "" {
		return name
	}
	return filepath.Join(o.root, name)
}

func (o *OSFileSystem) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	path := o.path(name)
	if flag&os.O_CREATE != 0 {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (o *OSFileSystem) Mkdir(name string, perm os.FileMode) error {
	return os.Mkdir(o.path(name), perm)
}

func (o *OSFileSystem) MkdirAll(name string, perm os.FileMode) error {
	return os.MkdirAll(o.path(name), perm)
}

func (o *OSFileSystem) Remove(name string) error {
	return os.Remove(o.path(name))
}

func (o *OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(o.path(path))
}

func (o *OSFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(o.path(oldpath), o.path(newpath))
}

func (o *OSFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(o.path(name))
}

func (o *OSFileSystem) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(o.path(name), mode)
}

func (o *OSFileSystem) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(o.path(name), atime, mtime)
}

func (o *OSFileSystem) Chown(name string, uid, gid int) error {
	return os.Chown(o.path(name), uid, gid)
}

func (o *OSFileSystem) Separator() uint8 {
	return os.PathSeparator
}

func (o *OSFileSystem) ListSeparator() uint8 {
	return os.PathListSeparator
}

// Chdir sets the directory relative names resolve against. dir is a name
// on this filesystem, not a host path.
func (o *OSFileSystem) Chdir(dir string) error {
	info, err := os.Stat(o.path(dir))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "chdir", Path: dir, Err: syscall.ENOTDIR}
	}

	if !filepath.IsAbs(dir) {
		wd, err := o.Getwd()
		if err != nil {
			return err
		}
		dir = filepath.Join(wd, dir)
	}
	o.mu.Lock()
	o.cwd = filepath.Clean(dir)
	o.mu.Unlock()
	return nil
}

// Getwd returns the directory set by Chdir. Before any Chdir it is "/" for
// a rooted filesystem and the process working directory otherwise.
func (o *OSFileSystem) Getwd() (string, error) {
	o.mu.RLock()
	cwd := o.cwd
	o.mu.RUnlock()
	if cwd != "" {
		return cwd, nil
	}
	if o.root != "" {
		return string(filepath.Separator), nil
	}
	return os.Getwd()
}

func (o *OSFileSystem) TempDir() string {
	return os.TempDir()
}

func (o *OSFileSystem) Open(name string) (absfs.File, error) {
	return o.OpenFile(name, os.O_RDONLY, 0)
}

func (o *OSFileSystem) Create(name string) (absfs.File, error) {
	return o.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

func (o *OSFileSystem) Truncate(name string, size int64) error {
	return os.Truncate(o.path(name), size)
}
