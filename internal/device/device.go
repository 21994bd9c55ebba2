// Package device — DeviceEffectDriver: монопольный доступ к FFB-устройству,
// постоянная сила как эффект, опрос положения руля.
//
// Устройство задаётся идентификатором "<backend>:<address>":
// hid:<uuid|path>, serial:<port>, can:<iface>, i2c:<bus>.
package device

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

// NominalMax — номинальный диапазон магнитуды эффекта (±10000, как DI_FFNOMINALMAX)
const NominalMax = 10000

// Ошибки драйвера
var (
	ErrNoDevice        = errors.New("device: no device id")
	ErrUnknownBackend  = errors.New("device: unknown backend")
	ErrNoConstantForce = errors.New("device: constant force effect not supported")
	ErrDeviceBusy      = errors.New("device: held by another process")
)

// Effect — открытое устройство с загруженным эффектом постоянной силы
type Effect interface {
	// SetMagnitude обновляет магнитуду в диапазоне ±NominalMax (без перезагрузки эффекта)
	SetMagnitude(m int) error
	// Axis возвращает последнее сырое значение оси X и её логический диапазон
	Axis() (raw, min, max int, ok bool)
	// Close снимает момент и освобождает устройство
	Close() error
}

// Backend — способ доступа к классу устройств
type Backend interface {
	Name() string
	// List перечисляет доступные устройства
	List() ([]Info, error)
	// Open монопольно открывает устройство и загружает эффект с нулевой магнитудой
	Open(address string) (Effect, error)
}

// Info — доступное устройство
type Info struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Backend string `json:"backend"`
}

// Status — пассивный индикатор состояния драйвера
type Status int32

const (
	StatusIdle    Status = iota // устройство не выбрано
	StatusHeld                  // устройство захвачено, эффект загружен
	StatusFaulted               // ошибка; выход отключён до reset/смены устройства
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusHeld:
		return "held"
	case StatusFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// ParseID разбирает "<backend>:<address>"
func ParseID(id string) (backend, address string, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "", ErrNoDevice
	}
	i := strings.IndexByte(id, ':')
	if i <= 0 || i == len(id)-1 {
		return "", "", fmt.Errorf("device: invalid id %q (want <backend>:<address>)", id)
	}
	return strings.ToLower(id[:i]), id[i+1:], nil
}

// FormatID — обратное к ParseID
func FormatID(backend, address string) string {
	return backend + ":" + address
}

// axisReading — одно показание оси
type axisReading struct {
	raw, min, max int
}

// axisCache хранит последнее показание; пишет горутина чтения бэкенда, читает PollPosition.
type axisCache struct {
	p atomic.Pointer[axisReading]
}

func (c *axisCache) store(raw, min, max int) {
	c.p.Store(&axisReading{raw: raw, min: min, max: max})
}

func (c *axisCache) load() (raw, min, max int, ok bool) {
	r := c.p.Load()
	if r == nil {
		return 0, 0, 0, false
	}
	return r.raw, r.min, r.max, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
