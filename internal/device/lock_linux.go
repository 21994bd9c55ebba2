//go:build linux

package device

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// lockPath берёт advisory flock на узел устройства (hidraw).
// Второй процесс ffb-sync на том же узле получает ErrDeviceBusy.
// Пути libusb ("1-2:1.0") не блокируются.
func lockPath(path string) (io.Closer, error) {
	if !filepath.IsAbs(path) {
		return nopLock{}, nil
	}
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceBusy, path)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return f, nil
}
