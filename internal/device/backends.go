package device

import "github.com/shiwa/ffb-sync/internal/config"

// DefaultBackends — все поддерживаемые бэкенды с параметрами из конфига
func DefaultBackends(cfg config.DeviceConfig) []Backend {
	return []Backend{
		NewHIDBackend(cfg.HID),
		NewSerialBackend(cfg.Serial),
		NewCANBackend(cfg.CAN),
		NewI2CBackend(cfg.I2C),
	}
}
