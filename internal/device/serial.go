package device

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
	"go.bug.st/serial/enumerator"

	"github.com/shiwa/ffb-sync/internal/config"
	"github.com/shiwa/ffb-sync/internal/logger"
	"github.com/shiwa/ffb-sync/internal/wire"
)

// SerialBackend — базы с последовательным протоколом internal/wire (USB CDC)
type SerialBackend struct {
	cfg config.SerialConfig
}

// NewSerialBackend создаёт бэкенд serial
func NewSerialBackend(cfg config.SerialConfig) *SerialBackend {
	return &SerialBackend{cfg: cfg}
}

// Name — "serial"
func (b *SerialBackend) Name() string { return "serial" }

// List перечисляет USB-порты
func (b *SerialBackend) List() ([]Info, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("serial enumerate: %w", err)
	}
	var out []Info
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		name := p.Product
		if name == "" {
			name = p.Name
		}
		out = append(out, Info{
			ID:      FormatID(b.Name(), p.Name),
			Name:    fmt.Sprintf("%s (%s:%s)", name, p.VID, p.PID),
			Backend: b.Name(),
		})
	}
	return out, nil
}

// Open открывает порт и включает выход эффекта
func (b *SerialBackend) Open(address string) (Effect, error) {
	c := &serial.Config{
		Name:        address,
		Baud:        b.cfg.Baud,
		ReadTimeout: config.MustDuration(b.cfg.ReadTimeout, 100*time.Millisecond),
	}
	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", address, err)
	}
	e := newWireEffect(p)
	if err := e.write(wire.ConstantForce(0)); err != nil {
		_ = p.Close()
		return nil, err
	}
	if err := e.write(wire.Start()); err != nil {
		_ = p.Close()
		return nil, err
	}
	return e, nil
}

// wireEffect — эффект поверх потока кадров internal/wire
type wireEffect struct {
	rw     io.ReadWriteCloser
	mu     sync.Mutex // запись кадров
	axis   axisCache
	closed atomic.Bool
	wg     sync.WaitGroup
}

func newWireEffect(rw io.ReadWriteCloser) *wireEffect {
	e := &wireEffect{rw: rw}
	e.wg.Add(1)
	go e.readLoop()
	return e
}

func (e *wireEffect) write(frame []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.rw.Write(frame); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (e *wireEffect) SetMagnitude(m int) error {
	return e.write(wire.ConstantForce(int16(clampInt(m, -NominalMax, NominalMax))))
}

func (e *wireEffect) Axis() (raw, min, max int, ok bool) {
	return e.axis.load()
}

// readLoop хранит последний INPUT-AXIS. Завершается при закрытии порта.
func (e *wireEffect) readLoop() {
	defer e.wg.Done()
	for {
		pkt, err := wire.ReadPacket(e.rw)
		if e.closed.Load() {
			return
		}
		if errors.Is(err, wire.ErrChecksum) {
			continue
		}
		if err != nil {
			// tarm/serial возвращает EOF по таймауту чтения
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				continue
			}
			logger.Debug("device: serial read: %v", err)
			return
		}
		h, _ := wire.ParseHeader(pkt)
		if h.Class != wire.ClassInput || h.ID != wire.IDAxis {
			continue
		}
		if a, ok := wire.ParseAxis(wire.Payload(pkt)); ok {
			e.axis.store(int(a.Raw), int(a.Min), int(a.Max))
		}
	}
}

func (e *wireEffect) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.mu.Lock()
	_, _ = e.rw.Write(wire.ConstantForce(0))
	_, _ = e.rw.Write(wire.Stop())
	e.mu.Unlock()
	err := e.rw.Close()
	e.wg.Wait()
	return err
}
