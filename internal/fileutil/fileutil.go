package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrExists reports that a no-replace rename found its destination taken.
var ErrExists = fs.ErrExist

// WriteFileAtomic writes data to a temp file beside path, fsyncs it, and
// renames it into place. An existing file at path is replaced.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	return writeViaTemp(path, data, mode, os.Rename)
}

// WriteFileExclusive is WriteFileAtomic that never replaces an existing
// entry: it fails with ErrExists instead.
func WriteFileExclusive(path string, data []byte, mode os.FileMode) error {
	return writeViaTemp(path, data, mode, RenameNoReplace)
}

func writeViaTemp(path string, data []byte, mode os.FileMode, rename func(src, dst string) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return SyncDir(dir)
}

// WriteSynced creates path exclusively and fsyncs the written contents.
func WriteSynced(path string, data []byte, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// SyncDir fsyncs a directory so renames inside it are durable.
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("sync %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether path names any filesystem entry, without following
// a final symlink.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// RenameNoReplace renames src to dst and fails with ErrExists when dst is
// already present. os.Rename alone would silently replace files and empty
// directories.
func RenameNoReplace(src, dst string) error {
	return renameNoReplace(src, dst)
}

func renameCheckThenMove(src, dst string) error {
	exists, err := Exists(dst)
	if err != nil {
		return err
	}
	if exists {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: ErrExists}
	}
	return os.Rename(src, dst)
}
