// Package config предоставляет конфигурацию ffb-sync для использования из Beat и других модулей.
// Формат совпадает с ffb-sync.yml; теги yaml и config (go-ucfg) одинаковые, неизвестные ключи игнорируются.
package config

import (
	internal "github.com/shiwa/ffb-sync/internal/config"
)

type (
	Config            = internal.Config
	DeviceConfig      = internal.DeviceConfig
	ClockConfig       = internal.ClockConfig
	TelemetryConfig   = internal.TelemetryConfig
	DiagnosticsConfig = internal.DiagnosticsConfig
	MQTTConfig        = internal.MQTTConfig
	FFB               = internal.FFB
	Algorithm         = internal.Algorithm
)

// Default — конфиг по умолчанию (все секции заполнены)
func Default() *Config {
	return internal.Default()
}

// Load читает YAML; отсутствующие ключи берутся из Default
func Load(path string) (*Config, error) {
	return internal.Load(path)
}

// Normalize приводит конфиг, разобранный извне (go-ucfg), к допустимым диапазонам
func Normalize(c *Config) {
	internal.Normalize(c)
}
