// Package fsutil contains file helpers shared by the file-backed stores.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Lock takes an exclusive advisory lock on path, creating the file when needed.
// The lock excludes other processes and other descriptors of the same process.
func Lock(path string) (unlock func() error, err error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("can't open lock file: %w", err)
	}

	for {
		err = unix.Flock(int(file.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("can't lock %s: %w", path, err)
	}

	return func() error {
		unlockErr := unix.Flock(int(file.Fd()), unix.LOCK_UN)
		closeErr := file.Close()
		if unlockErr != nil {
			return fmt.Errorf("can't unlock %s: %w", path, unlockErr)
		}
		return closeErr
	}, nil
}

// WriteFileAtomic replaces path with data. Readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("can't create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("can't write temporary file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("can't sync temporary file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("can't close temporary file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("can't set file mode: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("can't replace %s: %w", path, err)
	}

	return nil
}

// SafeName maps id to a string usable as a file name. Distinct ids map to distinct names:
// bytes outside [a-zA-Z0-9-.] and a leading dot are written as _XX hex escapes.
func SafeName(id string) string {
	if id == "" {
		return "_"
	}

	var name strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		if safeByte(c) && (c != '.' || i > 0) {
			name.WriteByte(c)
			continue
		}
		fmt.Fprintf(&name, "_%02X", c)
	}

	return name.String()
}

func safeByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '.'
}
