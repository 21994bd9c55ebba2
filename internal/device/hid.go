package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sstallion/go-hid"

	"github.com/shiwa/ffb-sync/internal/config"
	"github.com/shiwa/ffb-sync/internal/logger"
)

// HID usage: Generic Desktop / Joystick, Gamepad
const (
	hidUsagePageDesktop = 0x01
	hidUsageJoystick    = 0x04
	hidUsageGamepad     = 0x05
	hidReadTimeout      = 100 * time.Millisecond
	hidReportSize       = 64
)

// hidNamespace — пространство имён для стабильных идентификаторов HID-устройств
var hidNamespace = uuid.MustParse("6f0b6c52-3f1e-4d0a-9a43-1e6d2f1a8c11")

var hidInit sync.Once

// HIDBackend — USB HID PID-устройства (hidraw на Linux)
type HIDBackend struct {
	cfg config.HIDConfig
}

// NewHIDBackend создаёт бэкенд hid
func NewHIDBackend(cfg config.HIDConfig) *HIDBackend {
	return &HIDBackend{cfg: cfg}
}

// Name — "hid"
func (b *HIDBackend) Name() string { return "hid" }

// InstanceID — стабильный идентификатор устройства (SHA-1 UUID от vid/pid/serial)
func InstanceID(vid, pid uint16, serial string) string {
	return uuid.NewSHA1(hidNamespace, []byte(fmt.Sprintf("%04x:%04x:%s", vid, pid, serial))).String()
}

func initHID() error {
	var err error
	hidInit.Do(func() { err = hid.Init() })
	return err
}

func (b *HIDBackend) enumerate(fn func(info *hid.DeviceInfo)) error {
	if err := initHID(); err != nil {
		return fmt.Errorf("hid init: %w", err)
	}
	return hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		if info.UsagePage != hidUsagePageDesktop {
			return nil
		}
		if info.Usage != hidUsageJoystick && info.Usage != hidUsageGamepad {
			return nil
		}
		fn(info)
		return nil
	})
}

// List перечисляет джойстики и рули
func (b *HIDBackend) List() ([]Info, error) {
	var out []Info
	err := b.enumerate(func(info *hid.DeviceInfo) {
		name := strings.TrimSpace(info.MfrStr + " " + info.ProductStr)
		if name == "" {
			name = fmt.Sprintf("%04x:%04x", info.VendorID, info.ProductID)
		}
		out = append(out, Info{
			ID:      FormatID(b.Name(), InstanceID(info.VendorID, info.ProductID, info.SerialNbr)),
			Name:    name,
			Backend: b.Name(),
		})
	})
	return out, err
}

// resolve переводит instance id в путь hidraw; иначе адрес считается путём
func (b *HIDBackend) resolve(address string) (string, error) {
	if _, err := uuid.Parse(address); err != nil {
		return address, nil
	}
	var path string
	err := b.enumerate(func(info *hid.DeviceInfo) {
		if path == "" && InstanceID(info.VendorID, info.ProductID, info.SerialNbr) == address {
			path = info.Path
		}
	})
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("hid: device %s not found", address)
	}
	return path, nil
}

// Open открывает устройство, создаёт эффект постоянной силы и запускает его
func (b *HIDBackend) Open(address string) (Effect, error) {
	path, err := b.resolve(address)
	if err != nil {
		return nil, err
	}
	lock, err := lockPath(path)
	if err != nil {
		return nil, err
	}
	dev, err := hid.OpenPath(path)
	if err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("hid open %s: %w", path, err)
	}
	e := &hidEffect{dev: dev, lock: lock, cfg: b.cfg, done: make(chan struct{})}
	if err := e.download(); err != nil {
		_ = dev.Close()
		_ = lock.Close()
		return nil, err
	}
	e.wg.Add(1)
	go e.readLoop()
	logger.Debug("device: hid %s effect block %d", path, e.block)
	return e, nil
}

type nopLock struct{}

func (nopLock) Close() error { return nil }

type hidEffect struct {
	dev   *hid.Device
	lock  io.Closer
	cfg   config.HIDConfig
	block uint8
	axis  axisCache
	done  chan struct{}
	wg    sync.WaitGroup
}

func (e *hidEffect) download() error {
	if _, err := e.dev.Write(pidControlReport(pidControlEnableActuators)); err != nil {
		return fmt.Errorf("hid enable actuators: %w", err)
	}
	e.block = 1
	if _, err := e.dev.SendFeatureReport(pidCreateEffect()); err != nil {
		return fmt.Errorf("%w: %v", ErrNoConstantForce, err)
	}
	resp := make([]byte, 8)
	resp[0] = pidBlockLoad
	if n, err := e.dev.GetFeatureReport(resp); err == nil {
		if blk, ok := pidParseBlockLoad(resp[:n]); ok {
			e.block = blk
		} else {
			return ErrNoConstantForce
		}
	}
	if _, err := e.dev.Write(pidSetEffectReport(e.block)); err != nil {
		return fmt.Errorf("hid set effect: %w", err)
	}
	if _, err := e.dev.Write(pidConstantForceReport(e.block, 0)); err != nil {
		return fmt.Errorf("hid constant force: %w", err)
	}
	if _, err := e.dev.Write(pidOperationReport(e.block, pidOpStart)); err != nil {
		return fmt.Errorf("hid start effect: %w", err)
	}
	return nil
}

func (e *hidEffect) SetMagnitude(m int) error {
	_, err := e.dev.Write(pidConstantForceReport(e.block, m))
	return err
}

func (e *hidEffect) Axis() (raw, min, max int, ok bool) {
	return e.axis.load()
}

func (e *hidEffect) readLoop() {
	defer e.wg.Done()
	buf := make([]byte, hidReportSize)
	for {
		select {
		case <-e.done:
			return
		default:
		}
		n, err := e.dev.ReadWithTimeout(buf, hidReadTimeout)
		if errors.Is(err, hid.ErrTimeout) {
			continue
		}
		if err != nil {
			logger.Debug("device: hid read: %v", err)
			return
		}
		if v, ok := parseHIDAxis(buf[:n], e.cfg); ok {
			e.axis.store(v, e.cfg.LogicalMin, e.cfg.LogicalMax)
		}
	}
}

// parseHIDAxis извлекает ось X (int16 LE) из входного отчёта
func parseHIDAxis(report []byte, cfg config.HIDConfig) (int, bool) {
	start := 1 + cfg.AxisOffset
	if len(report) < start+2 || report[0] != cfg.InputReportID {
		return 0, false
	}
	return int(int16(binary.LittleEndian.Uint16(report[start:]))), true
}

func (e *hidEffect) Close() error {
	close(e.done)
	e.wg.Wait()
	_, _ = e.dev.Write(pidOperationReport(e.block, pidOpStop))
	_, _ = e.dev.Write(pidControlReport(pidControlStopAll))
	err := e.dev.Close()
	_ = e.lock.Close()
	return err
}
