//go:build !linux

package device

import "io"

// lockPath — на других ОС путь hidapi не является файлом, блокировки нет
func lockPath(string) (io.Closer, error) {
	return nopLock{}, nil
}
