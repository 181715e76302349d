package sim

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/absfs/absfs"
)

// memFS is a small in-memory absfs.Filer for tests and examples. Handles
// opened on the same name share the entry, so a write through one handle is
// visible to the others, the way host files behave. Reads and writes are
// positional; Seek and WriteAt work, which the container's header patching
// depends on.
type memFS struct {
	mu      sync.Mutex
	entries map[string]*memEntry
}

// NewMemFS creates a new in-memory filesystem
func NewMemFS() absfs.Filer {
	return &memFS{entries: make(map[string]*memEntry)}
}

type memEntry struct {
	data    []byte
	mode    fs.FileMode
	modTime time.Time
}

// normalizePath collapses absolute and relative spellings of the same name.
func normalizePath(name string) string {
	name = filepath.Clean(name)
	name = strings.TrimPrefix(name, string(filepath.Separator))
	if name == "" {
		name = "."
	}
	return name
}

func (m *memFS) OpenFile(name string, flag int, perm fs.FileMode) (absfs.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = normalizePath(name)
	entry, exists := m.entries[name]
	if !exists {
		if flag&os.O_CREATE == 0 {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		entry = &memEntry{mode: perm, modTime: time.Now()}
		m.entries[name] = entry
	}
	if flag&os.O_TRUNC != 0 {
		entry.data = entry.data[:0]
		entry.modTime = time.Now()
	}
	f := &memFile{fs: m, entry: entry, name: name}
	if flag&os.O_APPEND != 0 {
		f.pos = int64(len(entry.data))
	}
	return f, nil
}

func (m *memFS) Mkdir(name string, perm fs.FileMode) error {
	// Flat namespace; directories are implicit.
	return nil
}

func (m *memFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = normalizePath(name)
	if _, exists := m.entries[name]; !exists {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(m.entries, name)
	return nil
}

func (m *memFS) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldpath = normalizePath(oldpath)
	newpath = normalizePath(newpath)
	entry, exists := m.entries[oldpath]
	if !exists {
		return &fs.PathError{Op: "rename", Path: oldpath, Err: fs.ErrNotExist}
	}
	m.entries[newpath] = entry
	delete(m.entries, oldpath)
	return nil
}

func (m *memFS) Stat(name string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = normalizePath(name)
	entry, exists := m.entries[name]
	if !exists {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return &memFileInfo{
		name:    filepath.Base(name),
		size:    int64(len(entry.data)),
		mode:    entry.mode,
		modTime: entry.modTime,
	}, nil
}

func (m *memFS) Chmod(name string, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = normalizePath(name)
	entry, exists := m.entries[name]
	if !exists {
		return &fs.PathError{Op: "chmod", Path: name, Err: fs.ErrNotExist}
	}
	entry.mode = mode
	return nil
}

func (m *memFS) Chtimes(name string, atime, mtime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = normalizePath(name)
	entry, exists := m.entries[name]
	if !exists {
		return &fs.PathError{Op: "chtimes", Path: name, Err: fs.ErrNotExist}
	}
	entry.modTime = mtime
	return nil
}

func (m *memFS) Chown(name string, uid, gid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = normalizePath(name)
	if _, exists := m.entries[name]; !exists {
		return &fs.PathError{Op: "chown", Path: name, Err: fs.ErrNotExist}
	}
	return nil
}

// memFile is one open handle. Position is per handle, content per entry.
type memFile struct {
	fs     *memFS
	entry  *memEntry
	name   string
	pos    int64
	closed bool
}

func (f *memFile) Name() string { return f.name }

func (f *memFile) Read(p []byte) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}
	if f.pos >= int64(len(f.entry.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.entry.data[f.pos:])
	f.pos += int64(n)
	return n, nil
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}
	if off < 0 {
		return 0, errors.New("memfs: negative offset")
	}
	if off >= int64(len(f.entry.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.entry.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}
	f.entry.data = storeAt(f.entry.data, p, f.pos)
	f.pos += int64(len(p))
	f.entry.modTime = time.Now()
	return len(p), nil
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}
	if off < 0 {
		return 0, errors.New("memfs: negative offset")
	}
	f.entry.data = storeAt(f.entry.data, p, off)
	f.entry.modTime = time.Now()
	return len(p), nil
}

func (f *memFile) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

// storeAt overwrites data at off with p, growing and zero-filling as
// needed.
func storeAt(data, p []byte, off int64) []byte {
	if off == int64(len(data)) {
		return append(data, p...)
	}
	if end := off + int64(len(p)); end > int64(len(data)) {
		data = append(data, make([]byte, end-int64(len(data)))...)
	}
	copy(data[off:], p)
	return data
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	if f.closed {
		return 0, fs.ErrClosed
	}
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.pos + offset
	case io.SeekEnd:
		pos = int64(len(f.entry.data)) + offset
	default:
		return 0, errors.New("memfs: invalid whence")
	}
	if pos < 0 {
		return 0, errors.New("memfs: negative position")
	}
	f.pos = pos
	return pos, nil
}

func (f *memFile) Truncate(size int64) error {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	if f.closed {
		return fs.ErrClosed
	}
	if size < 0 {
		return errors.New("memfs: negative size")
	}
	if size <= int64(len(f.entry.data)) {
		f.entry.data = f.entry.data[:size]
	} else {
		f.entry.data = append(f.entry.data, make([]byte, size-int64(len(f.entry.data)))...)
	}
	f.entry.modTime = time.Now()
	return nil
}

func (f *memFile) Stat() (fs.FileInfo, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	return &memFileInfo{
		name:    filepath.Base(f.name),
		size:    int64(len(f.entry.data)),
		mode:    f.entry.mode,
		modTime: f.entry.modTime,
	}, nil
}

func (f *memFile) Sync() error { return nil }

func (f *memFile) Close() error {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	f.closed = true
	return nil
}

func (f *memFile) Readdir(n int) ([]os.FileInfo, error) {
	return nil, os.ErrInvalid
}

func (f *memFile) Readdirnames(n int) ([]string, error) {
	return nil, os.ErrInvalid
}

type memFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (fi *memFileInfo) Name() string       { return fi.name }
func (fi *memFileInfo) Size() int64        { return fi.size }
func (fi *memFileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *memFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *memFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *memFileInfo) Sys() interface{}   { return nil }
