package sim

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestMemFSOpenMissing(t *testing.T) {
	fsys := NewMemFS()
	if _, err := fsys.OpenFile("ghost", os.O_RDONLY, 0); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Expected fs.ErrNotExist, got %v", err)
	}
	if err := fsys.Remove("ghost"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Remove: expected fs.ErrNotExist, got %v", err)
	}
	if _, err := fsys.Stat("ghost"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Stat: expected fs.ErrNotExist, got %v", err)
	}
}

// Seek back and overwrite in place: the write pattern container header
// patching depends on.
func TestMemFSSeekAndPatch(t *testing.T) {
	fsys := NewMemFS()
	f, err := fsys.OpenFile("f", os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if _, err := f.Write([]byte("hello world")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if _, err := f.Write([]byte("HELLO")); err != nil {
		t.Fatalf("Patch write failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := readTestFile(t, fsys, "f"); string(got) != "HELLO world" {
		t.Fatalf("Got %q, want %q", got, "HELLO world")
	}
}

func TestMemFSWriteAtGrowsWithZeroFill(t *testing.T) {
	fsys := NewMemFS()
	f, _ := fsys.OpenFile("f", os.O_WRONLY|os.O_CREATE, 0644)
	if _, err := f.WriteAt([]byte("xy"), 4); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	f.Close()

	want := []byte{0, 0, 0, 0, 'x', 'y'}
	if got := readTestFile(t, fsys, "f"); !bytes.Equal(got, want) {
		t.Fatalf("Got %v, want %v", got, want)
	}
}

func TestMemFSHandlesShareContent(t *testing.T) {
	fsys := NewMemFS()
	w, _ := fsys.OpenFile("f", os.O_WRONLY|os.O_CREATE, 0644)
	r, err := fsys.OpenFile("f", os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("Second open failed: %v", err)
	}
	if _, err := w.Write([]byte("shared")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got) != "shared" {
		t.Fatalf("Reader saw %q, want %q", got, "shared")
	}
	w.Close()
	r.Close()
}

func TestMemFSTruncate(t *testing.T) {
	fsys := NewMemFS()
	writeTestFile(t, fsys, "f", []byte("0123456789"))

	f, _ := fsys.OpenFile("f", os.O_WRONLY, 0)
	if err := f.Truncate(4); err != nil {
		t.Fatalf("Truncate down failed: %v", err)
	}
	if err := f.Truncate(6); err != nil {
		t.Fatalf("Truncate up failed: %v", err)
	}
	f.Close()

	want := []byte{'0', '1', '2', '3', 0, 0}
	if got := readTestFile(t, fsys, "f"); !bytes.Equal(got, want) {
		t.Fatalf("Got %v, want %v", got, want)
	}
}

func TestMemFSAppendFlag(t *testing.T) {
	fsys := NewMemFS()
	writeTestFile(t, fsys, "f", []byte("head"))

	f, err := fsys.OpenFile("f", os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	f.Write([]byte("+tail"))
	f.Close()

	if got := readTestFile(t, fsys, "f"); string(got) != "head+tail" {
		t.Fatalf("Got %q, want %q", got, "head+tail")
	}
}

func TestMemFSRename(t *testing.T) {
	fsys := NewMemFS()
	writeTestFile(t, fsys, "old", []byte("content"))

	if err := fsys.Rename("old", "new"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if _, err := fsys.Stat("old"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("Old name still exists after rename")
	}
	if got := readTestFile(t, fsys, "new"); string(got) != "content" {
		t.Fatalf("Renamed file holds %q", got)
	}
}

func TestMemFSClosedHandle(t *testing.T) {
	fsys := NewMemFS()
	f, _ := fsys.OpenFile("f", os.O_WRONLY|os.O_CREATE, 0644)
	f.Close()

	if _, err := f.Write([]byte("x")); !errors.Is(err, fs.ErrClosed) {
		t.Fatalf("Write: expected fs.ErrClosed, got %v", err)
	}
	if _, err := f.Read(make([]byte, 1)); !errors.Is(err, fs.ErrClosed) {
		t.Fatalf("Read: expected fs.ErrClosed, got %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); !errors.Is(err, fs.ErrClosed) {
		t.Fatalf("Seek: expected fs.ErrClosed, got %v", err)
	}
}

func TestMemFSPathNormalization(t *testing.T) {
	fsys := NewMemFS()
	writeTestFile(t, fsys, "/dir/../file", []byte("x"))
	if _, err := fsys.Stat("file"); err != nil {
		t.Fatalf("Cleaned path not found: %v", err)
	}
}

// OSFS is the default Filer; exercise the same seek-and-patch contract
// against real files.
func TestOSFSSeekAndPatch(t *testing.T) {
	fsys := OSFS()
	path := filepath.Join(t.TempDir(), "f")

	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if _, err := f.Write([]byte("hello world")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if _, err := f.Write([]byte("HELLO")); err != nil {
		t.Fatalf("Patch write failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "HELLO world" {
		t.Fatalf("Got %q, want %q", got, "HELLO world")
	}

	info, err := fsys.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != int64(len("HELLO world")) {
		t.Fatalf("Size = %d, want %d", info.Size(), len("HELLO world"))
	}
}

func TestOSFSOpenMissing(t *testing.T) {
	fsys := OSFS()
	f, err := fsys.OpenFile(filepath.Join(t.TempDir(), "ghost"), os.O_RDONLY, 0)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Expected fs.ErrNotExist, got %v", err)
	}
	if f != nil {
		t.Fatal("Failed open returned a non-nil file")
	}
}
