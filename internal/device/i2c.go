package device

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/shiwa/ffb-sync/internal/config"
	"github.com/shiwa/ffb-sync/internal/logger"
)

// AS5600 (магнитный датчик угла) и MCP4725 (12-бит ЦАП, вход драйвера мотора)
const (
	as5600RawAngle = 0x0C
	as5600Max      = 4095
	mcp4725Zero    = 2048
	mcp4725Max     = 4095
)

var (
	periphOnce sync.Once
	periphErr  error
)

func initPeriph() error {
	periphOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			periphErr = fmt.Errorf("periph init: %w", err)
		}
	})
	return periphErr
}

// I2CBackend — самодельная база: датчик угла и ЦАП на одной шине I²C
type I2CBackend struct {
	cfg config.I2CConfig
}

// NewI2CBackend создаёт бэкенд i2c
func NewI2CBackend(cfg config.I2CConfig) *I2CBackend {
	return &I2CBackend{cfg: cfg}
}

// Name — "i2c"
func (b *I2CBackend) Name() string { return "i2c" }

// List перечисляет зарегистрированные шины I²C
func (b *I2CBackend) List() ([]Info, error) {
	if err := initPeriph(); err != nil {
		return nil, err
	}
	var out []Info
	for _, ref := range i2creg.All() {
		out = append(out, Info{
			ID:      FormatID(b.Name(), ref.Name),
			Name:    fmt.Sprintf("I2C %s (AS5600 0x%02x, MCP4725 0x%02x)", ref.Name, b.cfg.SensorAddr, b.cfg.DACAddr),
			Backend: b.Name(),
		})
	}
	return out, nil
}

// Open открывает шину и выставляет нулевой момент
func (b *I2CBackend) Open(address string) (Effect, error) {
	if err := initPeriph(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(address)
	if err != nil {
		return nil, fmt.Errorf("i2c open %s: %w", address, err)
	}
	e := &i2cEffect{
		bus:    bus,
		sensor: &i2c.Dev{Addr: b.cfg.SensorAddr, Bus: bus},
		dac:    &i2c.Dev{Addr: b.cfg.DACAddr, Bus: bus},
	}
	if err := e.SetMagnitude(0); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("i2c dac 0x%02x: %w", b.cfg.DACAddr, err)
	}
	return e, nil
}

type i2cEffect struct {
	mu     sync.Mutex
	bus    i2c.BusCloser
	sensor *i2c.Dev
	dac    *i2c.Dev
	failed bool
}

func (e *i2cEffect) SetMagnitude(m int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dac.Tx(mcp4725Frame(m), nil)
}

// Axis читает угол напрямую (опрос идёт из потока телеметрии, ~60 Гц)
func (e *i2cEffect) Axis() (raw, min, max int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var buf [2]byte
	if err := e.sensor.Tx([]byte{as5600RawAngle}, buf[:]); err != nil {
		if !e.failed {
			logger.Debug("device: as5600 read: %v", err)
			e.failed = true
		}
		return 0, 0, 0, false
	}
	e.failed = false
	return as5600Angle(buf[:]), 0, as5600Max, true
}

func (e *i2cEffect) Close() error {
	_ = e.SetMagnitude(0)
	return e.bus.Close()
}

// as5600Angle — 12-битный RAW ANGLE (старший байт первым)
func as5600Angle(b []byte) int {
	return (int(b[0])&0x0F)<<8 | int(b[1])
}

// mcp4725Frame — fast-mode запись: ноль момента в середине шкалы
func mcp4725Frame(m int) []byte {
	v := mcp4725Zero + clampInt(m, -NominalMax, NominalMax)*(mcp4725Max-mcp4725Zero)/NominalMax
	v = clampInt(v, 0, mcp4725Max)
	return []byte{byte(v>>8) & 0x0F, byte(v)}
}
