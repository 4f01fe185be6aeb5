package utils

import (
	"errors"
	"os"
	"path/filepath"
)

var ErrNonexistentPath = errors.New("path does not exist")

// ResolvePathStrict resolves p to an absolute, canonical path,
// following all symlinks. It fails if:
//   - the path (or any symlink in it) is broken
//   - symlink resolution fails (cycles, too deep, etc.)
func ResolvePathStrict(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(filepath.Clean(abs))
	if err != nil {
		// includes broken symlinks, cycles, etc.
		return "", err
	}

	if _, err := os.Stat(resolved); err != nil {
		return "", ErrNonexistentPath
	}

	return resolved, nil
}

// ExecutablePath returns the resolved path of the running binary.
func ExecutablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return ResolvePathStrict(exe)
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// over path, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
