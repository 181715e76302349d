package sim

import (
	"io/fs"
	"os"
	"time"

	"github.com/absfs/absfs"
)

// osFiler adapts the host filesystem to absfs.Filer so the pipeline can be
// pointed at any filesystem implementation without special-casing the
// common one.
type osFiler struct{}

// OSFS returns an absfs.Filer backed by the host filesystem.
func OSFS() absfs.Filer { return osFiler{} }

func (osFiler) OpenFile(name string, flag int, perm fs.FileMode) (absfs.File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err // explicit nil, not a typed-nil *os.File
	}
	return f, nil
}

func (osFiler) Mkdir(name string, perm fs.FileMode) error { return os.Mkdir(name, perm) }

func (osFiler) Remove(name string) error { return os.Remove(name) }

func (osFiler) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

func (osFiler) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (osFiler) Chmod(name string, mode fs.FileMode) error { return os.Chmod(name, mode) }

func (osFiler) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}

func (osFiler) Chown(name string, uid, gid int) error { return os.Chown(name, uid, gid) }
