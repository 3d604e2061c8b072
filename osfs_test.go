package filecrypt

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_EngineRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fsys := NewOSFileSystem(dir)
	e := newTestEngine(t, fsys, testConfig(AlgorithmChaCha20Poly1305, false))

	plaintext := bytes.Repeat([]byte("on disk "), 512)
	if err := os.WriteFile(filepath.Join(dir, "plain.txt"), plaintext, 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	if _, err := e.EncryptFile("/plain.txt", "/nested/out/plain.txt.encrypted", []byte("pw"), nil); err != nil {
		t.Fatalf("EncryptFile() failed: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "nested", "out", "plain.txt.encrypted"))
	if err != nil {
		t.Fatalf("container not written beneath root: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("container mode = %v, want 0600", info.Mode().Perm())
	}

	if _, err := e.DecryptFile("/nested/out/plain.txt.encrypted", "/plain.out", []byte("pw"), nil); err != nil {
		t.Fatalf("DecryptFile() failed: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "plain.out"))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Error("decrypted content mismatch")
	}
}

func TestOSFileSystem_SecureErase(t *testing.T) {
	dir := t.TempDir()
	fsys := NewOSFileSystem(dir)
	path := filepath.Join(dir, "secret.bin")
	if err := os.WriteFile(path, make([]byte, 3000), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	res, err := SecureErase(fsys, "/secret.bin", 2)
	if err != nil {
		t.Fatalf("SecureErase() failed: %v", err)
	}
	if res.BytesOverwritten != 6000 {
		t.Errorf("BytesOverwritten = %d, want 6000", res.BytesOverwritten)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present after SecureErase: %v", err)
	}
}

func TestOSFileSystem_EncryptFolder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp4", "b.txt", filepath.Join("sub", "c.mp4")} {
		full := filepath.Join(dir, "media", name)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("MkdirAll() failed: %v", err)
		}
		if err := os.WriteFile(full, []byte(name), 0644); err != nil {
			t.Fatalf("WriteFile() failed: %v", err)
		}
	}

	fsys := NewOSFileSystem(dir)
	b, err := NewBatch(newTestEngine(t, fsys, testConfig(AlgorithmAES256GCM, false)), DefaultBatchConfig())
	if err != nil {
		t.Fatalf("NewBatch() failed: %v", err)
	}

	res, err := b.EncryptFolder("/media", "/enc", []byte("pw"), FolderOptions{Recursive: true, Patterns: []string{"*.mp4"}}, nil)
	if err != nil {
		t.Fatalf("EncryptFolder() failed: %v", err)
	}
	if res.Total != 2 || res.Succeeded != 2 {
		t.Fatalf("EncryptFolder() = %d of %d succeeded: %v", res.Succeeded, res.Total, res.Err())
	}
	for _, name := range []string{"a.mp4.encrypted", "c.mp4.encrypted"} {
		if _, err := os.Stat(filepath.Join(dir, "enc", name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestOSFileSystem_Unrooted(t *testing.T) {
	dir := t.TempDir()
	fsys := NewOSFileSystem("")
	path := filepath.Join(dir, "f.txt")

	writeTestFile(t, fsys, path, []byte("hello"))
	if got := readTestFile(t, fsys, path); string(got) != "hello" {
		t.Errorf("read back %q", got)
	}
	if err := fsys.Remove(path); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if fileExists(fsys, path) {
		t.Error("file still exists after Remove")
	}
}

func TestOSFileSystem_ChdirKeepsProcessDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "work", "inner"), 0755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "work", "inner", "f.txt"), []byte("relative"), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	before, err := os.Getwd()
	if err != nil {
		t.Fatalf("os.Getwd() failed: %v", err)
	}

	fsys := NewOSFileSystem(dir)
	if wd, err := fsys.Getwd(); err != nil || wd != "/" {
		t.Errorf("Getwd() = %q, %v, want \"/\"", wd, err)
	}

	if err := fsys.Chdir("/work"); err != nil {
		t.Fatalf("Chdir(/work) failed: %v", err)
	}
	if err := fsys.Chdir("inner"); err != nil {
		t.Fatalf("Chdir(inner) failed: %v", err)
	}
	if wd, err := fsys.Getwd(); err != nil || wd != "/work/inner" {
		t.Errorf("Getwd() = %q, %v, want /work/inner", wd, err)
	}
	if got := readTestFile(t, fsys, "f.txt"); string(got) != "relative" {
		t.Errorf("relative read = %q", got)
	}

	if err := fsys.Chdir("/work/inner/f.txt"); err == nil {
		t.Error("Chdir() to a file succeeded")
	}
	if err := fsys.Chdir("/missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Chdir(/missing) error = %v, want ErrNotExist", err)
	}
	if wd, _ := fsys.Getwd(); wd != "/work/inner" {
		t.Errorf("Getwd() after failed Chdir = %q", wd)
	}

	after, err := os.Getwd()
	if err != nil {
		t.Fatalf("os.Getwd() failed: %v", err)
	}
	if after != before {
		t.Errorf("process working directory changed from %q to %q", before, after)
	}
}
