package device

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync/atomic"

	"github.com/shiwa/ffb-sync/internal/logger"
)

// shutdownSpin — предел ожидания завершения PollPosition при освобождении устройства
const shutdownSpin = 200000

type held struct {
	id  string
	eff Effect
}

// Driver — DeviceEffectDriver. Initialize/UpdateEffect/Shutdown вызываются из потока
// таймера, PollPosition — из потока телеметрии. Одновременно захвачено не больше одного устройства.
type Driver struct {
	backends map[string]Backend

	cur       atomic.Pointer[held]
	busy      atomic.Bool // идёт PollPosition
	status    atomic.Int32
	magnitude atomic.Int64
	rearm     atomic.Bool // новое устройство: первая скорость после захвата = 0

	// состояние PollPosition
	havePos bool
	lastPos float64
	lastVel float64
}

// NewDriver создаёт драйвер с набором бэкендов
func NewDriver(backends ...Backend) *Driver {
	d := &Driver{backends: make(map[string]Backend, len(backends))}
	for _, b := range backends {
		d.backends[b.Name()] = b
	}
	return d
}

// Initialize захватывает устройство id (предыдущее освобождается) и загружает
// эффект постоянной силы с нулевой магнитудой. Ошибка логируется и возвращается;
// выход при этом остаётся выключенным.
func (d *Driver) Initialize(id string) error {
	d.Shutdown()
	if id == "" {
		return ErrNoDevice
	}

	backend, address, err := ParseID(id)
	if err != nil {
		return d.fail(id, err)
	}
	b, ok := d.backends[backend]
	if !ok {
		return d.fail(id, fmt.Errorf("%w %q", ErrUnknownBackend, backend))
	}
	eff, err := b.Open(address)
	if err != nil {
		return d.fail(id, err)
	}
	if err := eff.SetMagnitude(0); err != nil {
		_ = eff.Close()
		return d.fail(id, fmt.Errorf("initial magnitude: %w", err))
	}

	d.rearm.Store(true)
	d.magnitude.Store(0)
	d.cur.Store(&held{id: id, eff: eff})
	d.status.Store(int32(StatusHeld))
	logger.Info("device: acquired %s", id)
	return nil
}

func (d *Driver) fail(id string, err error) error {
	d.status.Store(int32(StatusFaulted))
	logger.Error("device: initialize %s: %v", id, err)
	return err
}

// UpdateEffect переводит нормированный момент в магнитуду устройства
// clamp(torque*NominalMax, ±NominalMax) и обновляет параметр эффекта.
// Ошибка записи освобождает устройство (без повторов).
func (d *Driver) UpdateEffect(torque float64) {
	h := d.cur.Load()
	if h == nil {
		return
	}
	m := Magnitude(torque)
	if err := h.eff.SetMagnitude(m); err != nil {
		logger.Error("device: update %s: %v", h.id, err)
		d.Shutdown()
		d.status.Store(int32(StatusFaulted))
		return
	}
	d.magnitude.Store(int64(m))
}

// Magnitude — нормированный момент в единицах устройства
func Magnitude(torque float64) int {
	if math.IsNaN(torque) {
		return 0
	}
	v := math.Round(torque * NominalMax)
	if v > NominalMax {
		return NominalMax
	}
	if v < -NominalMax {
		return -NominalMax
	}
	return int(v)
}

// PollPosition читает ось X: положение нормируется в [-1, 1], скорость — производная
// положения за dt секунд. Без устройства возвращает нули.
func (d *Driver) PollPosition(dt float64) (position, velocity float64) {
	if !d.busy.CompareAndSwap(false, true) {
		return d.lastPos, d.lastVel
	}
	defer d.busy.Store(false)

	if d.rearm.Swap(false) {
		d.havePos = false
	}
	h := d.cur.Load()
	if h == nil {
		d.havePos = false
		d.lastPos, d.lastVel = 0, 0
		return 0, 0
	}
	raw, lo, hi, ok := h.eff.Axis()
	if !ok || hi <= lo {
		return d.lastPos, d.lastVel
	}
	pos := 2*float64(clampInt(raw, lo, hi)-lo)/float64(hi-lo) - 1
	vel := 0.0
	if d.havePos && dt > 0 {
		vel = (pos - d.lastPos) / dt
	}
	d.havePos = true
	d.lastPos, d.lastVel = pos, vel
	return pos, vel
}

// Shutdown освобождает устройство. Ждёт (ограниченно) завершения текущего PollPosition.
// Это не общая блокировка: защищает только захват/освобождение от параллельного опроса.
func (d *Driver) Shutdown() {
	h := d.cur.Swap(nil)
	if h == nil {
		return
	}
	spins := 0
	for d.busy.Load() && spins < shutdownSpin {
		runtime.Gosched()
		spins++
	}
	if spins == shutdownSpin {
		logger.Warn("device: poll still busy while releasing %s", h.id)
	}
	_ = h.eff.SetMagnitude(0)
	if err := h.eff.Close(); err != nil {
		logger.Error("device: close %s: %v", h.id, err)
	}
	d.magnitude.Store(0)
	d.status.Store(int32(StatusIdle))
	logger.Info("device: released %s", h.id)
}

// Held — захвачено ли устройство
func (d *Driver) Held() bool {
	return d.cur.Load() != nil
}

// ID возвращает идентификатор захваченного устройства ("" если нет)
func (d *Driver) ID() string {
	if h := d.cur.Load(); h != nil {
		return h.id
	}
	return ""
}

// Status — пассивный индикатор для диагностики
func (d *Driver) Status() Status {
	return Status(d.status.Load())
}

// LastMagnitude — последняя отправленная магнитуда
func (d *Driver) LastMagnitude() int {
	return int(d.magnitude.Load())
}

// Available перечисляет устройства всех бэкендов. Ошибки бэкендов логируются.
func (d *Driver) Available() []Info {
	names := make([]string, 0, len(d.backends))
	for name := range d.backends {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Info
	for _, name := range names {
		list, err := d.backends[name].List()
		if err != nil {
			logger.Debug("device: list %s: %v", name, err)
			continue
		}
		out = append(out, list...)
	}
	return out
}
