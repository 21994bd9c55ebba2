//go:build !linux

package device

import "errors"

// Open — socketcan есть только на Linux
func (b *CANBackend) Open(address string) (Effect, error) {
	return nil, errors.New("can: socketcan is only available on linux")
}
