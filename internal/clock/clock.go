// Package clock — точный периодический таймер (~2 мс) на выделенном потоке.
// Передаёт обработчику фактически прошедшее время и держит ресурсы таймера
// ещё grace после запроса приостановки.
package clock

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VividCortex/ewma"

	"github.com/shiwa/ffb-sync/internal/logger"
	"github.com/shiwa/ffb-sync/internal/stats"
)

const (
	DefaultPeriod = 2 * time.Millisecond
	DefaultGrace  = 4 * time.Second

	// тики короче 1 мс (двойное срабатывание) пропускаются
	minDeltaMs = 1.0
)

// Timer — периодический источник срабатываний ОС
type Timer interface {
	// Wait блокирует до следующего срабатывания
	Wait() error
	Close() error
}

// TimerFactory создаёт таймер с заданным периодом
type TimerFactory func(period time.Duration) (Timer, error)

// Handler получает фактическое время с прошлого тика (мс)
type Handler func(deltaMs float64)

// Stats — джиттер периода и сглаженная частота тиков
type Stats struct {
	Active   bool          `json:"active"`
	Ticks    uint64        `json:"ticks"`
	RateHz   float64       `json:"rateHz"`
	JitterMs stats.Summary `json:"jitterMs"`
}

// Options — параметры часов
type Options struct {
	Period   time.Duration
	Grace    time.Duration
	Priority int          // nice потока (Linux), 0 — не менять
	NewTimer TimerFactory // nil — таймер платформы
}

// Clock — периодический поток тиков. Начальное состояние — приостановлен.
type Clock struct {
	opts    Options
	handler Handler
	now     func() time.Time

	suspend atomic.Bool
	running atomic.Bool
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
	stats   atomic.Pointer[Stats]

	// состояние рабочего потока
	timer     Timer
	graceLeft int
	armed     bool
	last      time.Time
	haveLast  bool
	ticks     uint64
	jitter    *stats.Window
	rate      ewma.MovingAverage
}

// New создаёт часы; обработчик вызывается только из потока часов
func New(opts Options, handler Handler) *Clock {
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.Grace < 0 {
		opts.Grace = 0
	}
	if opts.NewTimer == nil {
		opts.NewTimer = platformTimer
	}
	c := &Clock{
		opts:    opts,
		handler: handler,
		now:     time.Now,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		jitter:  stats.NewWindow(stats.DefaultWindow),
		rate:    ewma.NewMovingAverage(),
	}
	c.suspend.Store(true)
	c.stats.Store(&Stats{})
	return c
}

// Start запускает поток часов
func (c *Clock) Start() {
	if c.running.Swap(true) {
		return
	}
	go c.run()
}

// Stop останавливает поток и освобождает таймер. Возврат — не позже одного периода.
func (c *Clock) Stop() {
	c.once.Do(func() {
		if !c.running.Swap(false) {
			close(c.done)
			return
		}
		c.signal()
		<-c.done
	})
}

// Suspend(true) освобождает таймер через grace; Suspend(false) возобновляет сразу
func (c *Clock) Suspend(v bool) {
	if c.suspend.Swap(v) == v {
		return
	}
	if v {
		logger.Info("clock: suspend requested (grace %s)", c.opts.Grace)
	} else {
		logger.Info("clock: resume requested")
	}
	c.signal()
}

// Suspended — запрошена ли приостановка
func (c *Clock) Suspended() bool {
	return c.suspend.Load()
}

// Stats возвращает последнюю статистику
func (c *Clock) Stats() Stats {
	return *c.stats.Load()
}

func (c *Clock) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Clock) run() {
	defer close(c.done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if c.opts.Priority != 0 {
		if err := setPriority(c.opts.Priority); err != nil {
			logger.Warn("clock: thread priority %d: %v", c.opts.Priority, err)
		}
	}
	defer c.release()

	for c.running.Load() {
		if c.timer == nil {
			if c.suspend.Load() {
				<-c.wake
				continue
			}
			if err := c.acquire(); err != nil {
				logger.Error("clock: timer unavailable, staying suspended: %v", err)
				c.suspend.Store(true)
				continue
			}
		}

		if err := c.timer.Wait(); err != nil {
			logger.Error("clock: timer wait: %v", err)
			c.release()
			c.suspend.Store(true)
			continue
		}
		c.tick()
	}
}

func (c *Clock) tick() {
	if c.suspend.Load() {
		if !c.armed {
			c.armed = true
			c.graceLeft = int(c.opts.Grace / c.opts.Period)
		}
		if c.graceLeft <= 0 {
			c.release()
			return
		}
		c.graceLeft--
	} else {
		c.armed = false
	}

	now := c.now()
	if !c.haveLast {
		c.last = now
		c.haveLast = true
		return
	}
	deltaMs := float64(now.Sub(c.last)) / float64(time.Millisecond)
	if deltaMs <= minDeltaMs {
		return
	}
	c.last = now
	c.ticks++

	periodMs := float64(c.opts.Period) / float64(time.Millisecond)
	j := c.jitter.Update(deltaMs - periodMs)
	c.rate.Add(1000 / deltaMs)
	c.stats.Store(&Stats{Active: true, Ticks: c.ticks, RateHz: c.rate.Value(), JitterMs: j})

	c.handler(deltaMs)
}

func (c *Clock) acquire() error {
	t, err := c.opts.NewTimer(c.opts.Period)
	if err != nil {
		return err
	}
	if t == nil {
		return errors.New("nil timer")
	}
	logger.Info("clock: timer started (%s)", c.opts.Period)
	c.timer = t
	c.haveLast = false
	c.armed = false
	return nil
}

func (c *Clock) release() {
	if c.timer == nil {
		return
	}
	if err := c.timer.Close(); err != nil {
		logger.Warn("clock: timer close: %v", err)
	}
	c.timer = nil
	c.haveLast = false
	c.armed = false
	logger.Info("clock: timer released")
	s := c.Stats()
	s.Active = false
	c.stats.Store(&s)
}
