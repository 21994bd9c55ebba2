package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"gopkg.in/yaml.v3"
)

// Config — конфигурация ffb-sync.
// Ядро ничего не сохраняет: файл только читается (при старте и по SIGHUP).
type Config struct {
	Device      DeviceConfig      `yaml:"device" config:"device"`
	Clock       ClockConfig       `yaml:"clock" config:"clock"`
	FFB         FFB               `yaml:"ffb" config:"ffb"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" config:"telemetry"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" config:"diagnostics"`
}

// DeviceConfig — выбор устройства и параметры бэкендов.
// ID вида "<backend>:<address>"; пусто → preferred/fallback, затем первое доступное.
type DeviceConfig struct {
	ID        string       `yaml:"id" config:"id"`
	Preferred []string     `yaml:"preferred" config:"preferred"`
	Fallback  []string     `yaml:"fallback" config:"fallback"`
	HID       HIDConfig    `yaml:"hid" config:"hid"`
	Serial    SerialConfig `yaml:"serial" config:"serial"`
	CAN       CANConfig    `yaml:"can" config:"can"`
	I2C       I2CConfig    `yaml:"i2c" config:"i2c"`
}

// HIDConfig — разбор входного отчёта руля (ось X)
type HIDConfig struct {
	InputReportID uint8 `yaml:"input_report_id" config:"input_report_id"`
	AxisOffset    int   `yaml:"axis_offset" config:"axis_offset"` // смещение int16 LE внутри отчёта (после report id)
	LogicalMin    int   `yaml:"logical_min" config:"logical_min"`
	LogicalMax    int   `yaml:"logical_max" config:"logical_max"`
}

// SerialConfig — последовательные базы (протокол internal/wire)
type SerialConfig struct {
	Baud        int    `yaml:"baud" config:"baud"`
	ReadTimeout string `yaml:"read_timeout" config:"read_timeout"`
}

// CANConfig — идентификаторы кадров CAN-привода
type CANConfig struct {
	CommandID  uint32 `yaml:"command_id" config:"command_id"`
	FeedbackID uint32 `yaml:"feedback_id" config:"feedback_id"`
}

// I2CConfig — адреса датчика угла и ЦАП
type I2CConfig struct {
	SensorAddr uint16 `yaml:"sensor_addr" config:"sensor_addr"`
	DACAddr    uint16 `yaml:"dac_addr" config:"dac_addr"`
}

// ClockConfig — прецизионный таймер
type ClockConfig struct {
	Period   string `yaml:"period" config:"period"`     // "2ms"
	Grace    string `yaml:"grace" config:"grace"`       // задержка освобождения таймера при Suspend(true)
	Priority int    `yaml:"priority" config:"priority"` // nice потока таймера (linux), 0 = не менять
}

// TelemetryConfig — источник телеметрии (replay CSV вместо симулятора)
type TelemetryConfig struct {
	Replay string  `yaml:"replay" config:"replay"`
	Rate   float64 `yaml:"rate" config:"rate"` // Гц, кадров в секунду
	Loop   bool    `yaml:"loop" config:"loop"`
}

// DiagnosticsConfig — необязательные приёмники диагностики
type DiagnosticsConfig struct {
	Listen   string     `yaml:"listen" config:"listen"`     // адрес WebSocket, например ":8765"; пусто = выключено
	Interval string     `yaml:"interval" config:"interval"` // период push в WebSocket
	MQTT     MQTTConfig `yaml:"mqtt" config:"mqtt"`
}

// MQTTConfig — публикация диагностики в брокер
type MQTTConfig struct {
	Broker   string `yaml:"broker" config:"broker"` // "mqtt://host:1883"; пусто = выключено
	Topic    string `yaml:"topic" config:"topic"`
	ClientID string `yaml:"client_id" config:"client_id"`
	Interval string `yaml:"interval" config:"interval"`
}

// Default возвращает конфиг по умолчанию
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			HID: HIDConfig{
				InputReportID: 1,
				AxisOffset:    0,
				LogicalMin:    -32768,
				LogicalMax:    32767,
			},
			Serial: SerialConfig{
				Baud:        115200,
				ReadTimeout: "100ms",
			},
			CAN: CANConfig{
				CommandID:  0x32,
				FeedbackID: 0x97,
			},
			I2C: I2CConfig{
				SensorAddr: 0x36,
				DACAddr:    0x60,
			},
		},
		Clock: ClockConfig{
			Period:   "2ms",
			Grace:    "4s",
			Priority: -10,
		},
		FFB: DefaultFFB(),
		Telemetry: TelemetryConfig{
			Rate: 60,
		},
		Diagnostics: DiagnosticsConfig{
			Interval: "200ms",
			MQTT: MQTTConfig{
				Topic:    "ffb-sync",
				ClientID: "ffb-sync",
				Interval: "1s",
			},
		},
	}
}

// Load читает конфиг из YAML. Отсутствующие ключи берутся из Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse разбирает YAML поверх Default и приводит значения к допустимым диапазонам.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(c)
	return c, nil
}

// Normalize заполняет пустые значения и ограничивает диапазоны.
// Нужен для конфигов, разобранных не через Parse (go-ucfg в Beat).
func Normalize(c *Config) {
	applyDefaults(c)
}

func applyDefaults(c *Config) {
	d := Default()
	if c.Device.Serial.Baud <= 0 {
		c.Device.Serial.Baud = d.Device.Serial.Baud
	}
	if c.Device.Serial.ReadTimeout == "" {
		c.Device.Serial.ReadTimeout = d.Device.Serial.ReadTimeout
	}
	if c.Device.HID.LogicalMax <= c.Device.HID.LogicalMin {
		c.Device.HID.LogicalMin, c.Device.HID.LogicalMax = d.Device.HID.LogicalMin, d.Device.HID.LogicalMax
	}
	if c.Device.CAN.CommandID == 0 {
		c.Device.CAN.CommandID = d.Device.CAN.CommandID
	}
	if c.Device.CAN.FeedbackID == 0 {
		c.Device.CAN.FeedbackID = d.Device.CAN.FeedbackID
	}
	if c.Device.I2C.SensorAddr == 0 {
		c.Device.I2C.SensorAddr = d.Device.I2C.SensorAddr
	}
	if c.Device.I2C.DACAddr == 0 {
		c.Device.I2C.DACAddr = d.Device.I2C.DACAddr
	}
	if c.Clock.Period == "" {
		c.Clock.Period = d.Clock.Period
	}
	if c.Clock.Grace == "" {
		c.Clock.Grace = d.Clock.Grace
	}
	if c.Telemetry.Rate <= 0 {
		c.Telemetry.Rate = d.Telemetry.Rate
	}
	if c.Diagnostics.Interval == "" {
		c.Diagnostics.Interval = d.Diagnostics.Interval
	}
	if c.Diagnostics.MQTT.Topic == "" {
		c.Diagnostics.MQTT.Topic = d.Diagnostics.MQTT.Topic
	}
	if c.Diagnostics.MQTT.ClientID == "" {
		c.Diagnostics.MQTT.ClientID = d.Diagnostics.MQTT.ClientID
	}
	if c.Diagnostics.MQTT.Interval == "" {
		c.Diagnostics.MQTT.Interval = d.Diagnostics.MQTT.Interval
	}
	c.FFB.Clamp()
}

// ParseDuration разбирает длительность: сначала как Go ("500ms", "4s"),
// затем как ISO 8601 ("PT0.5S"). Пустая строка → def.
func ParseDuration(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	iso, err := duration.Parse(s)
	if err != nil {
		return def, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return iso.ToTimeDuration(), nil
}

// MustDuration — ParseDuration без ошибки: невалидное значение → def.
func MustDuration(s string, def time.Duration) time.Duration {
	d, err := ParseDuration(s, def)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
