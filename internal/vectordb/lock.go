package vectordb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ErrIndexLocked is returned when another process holds the build lock for
// an index location.
var ErrIndexLocked = errors.New("index is locked by another process")

// Lock serializes Build and Open across processes for one index location.
type Lock struct {
	path string
}

// AcquireLock creates "<location>.lock" exclusively. A lock left behind by a
// crashed process must be removed by hand; the error names the file.
func AcquireLock(location string) (*Lock, error) {
	path := filepath.Clean(location) + ".lock"
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating lock dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w (remove %s if no other manualqa is running)", ErrIndexLocked, path)
		}
		return nil, fmt.Errorf("creating lock %s: %w", path, err)
	}
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing lock %s: %w", path, werr)
	}
	return &Lock{path: path}, nil
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock %s: %w", l.path, err)
	}
	return nil
}
