// Package ffb — процессор force feedback: на каждом тике часов пересэмплирует
// окно телеметрии, прогоняет выбранный алгоритм, накладывает защиту, fade,
// soft lock и трение и отдаёт момент драйверу устройства.
package ffb

import (
	"math"
	"sync/atomic"

	"github.com/shiwa/ffb-sync/internal/config"
	"github.com/shiwa/ffb-sync/internal/logger"
	"github.com/shiwa/ffb-sync/internal/stats"
	"github.com/shiwa/ffb-sync/internal/telemetry"
)

// Длительности конечного автомата (мс)
const (
	UnsuspendGuardMs = 1000.0
	FadeInMs         = 2000.0
	FadeOutMs        = 500.0
	CrashRecoveryMs  = 1000.0
	peakFollow       = 0.01
)

// SettingsSource — настройки FFB (config.Store)
type SettingsSource interface {
	Snapshot() *config.FFB
	SetMaxForce(v float64)
}

// TelemetryFeed — снимки телеметрии и однократные флаги (telemetry.Ingest)
type TelemetryFeed interface {
	Latest() *telemetry.Snapshot
	TakeWindow() bool
	TakeCrash() bool
	TakeCurb() bool
}

// EffectDriver — драйвер устройства (device.Driver)
type EffectDriver interface {
	Initialize(id string) error
	UpdateEffect(torque float64)
	Shutdown()
	Held() bool
}

// Fade — состояние плавного включения/выключения
type Fade int

const (
	FadeIdle Fade = iota
	FadingIn
	FadingOut
)

func (f Fade) String() string {
	switch f {
	case FadingIn:
		return "fading_in"
	case FadingOut:
		return "fading_out"
	default:
		return "idle"
	}
}

// Option — параметр конструктора процессора
type Option func(*Processor)

// WithDevice выбирает устройство, захватываемое на первом активном тике
func WithDevice(id string) Option {
	return func(p *Processor) {
		p.stageNext(id)
	}
}

// WithStatsWindow — размер окна статистики выходного момента (тиков)
func WithStatsWindow(n int) Option {
	return func(p *Processor) {
		p.outStats = stats.NewWindow(n)
	}
}

// Processor — конечный автомат FFB. Update вызывается только потоком часов;
// остальные методы безопасны из любого потока.
type Processor struct {
	settings SettingsSource
	feed     TelemetryFeed
	driver   EffectDriver

	// команды из других потоков
	nextReq    atomic.Pointer[string]
	resetReq   atomic.Bool
	testReq    atomic.Bool
	autoMaxReq atomic.Bool
	clearReq   atomic.Bool
	diag       atomic.Pointer[Snapshot]

	// состояние потока часов
	suspended   bool
	unsuspendMs float64
	useTorque   bool
	fade        Fade
	fadeMs      float64
	lastUnfaded float64

	current  string
	next     string
	haveNext bool

	window    telemetry.Window
	elapsedMs float64
	state     State
	algo      Algorithm
	algoID    config.Algorithm

	peak       float64
	autoMargin float64
	crashMs    float64
	curbMs     float64
	testMs     float64

	outStats *stats.Window
}

// New создаёт процессор. Начальное состояние — приостановлен с взведённым guard.
func New(settings SettingsSource, feed TelemetryFeed, driver EffectDriver, opts ...Option) *Processor {
	p := &Processor{
		settings:    settings,
		feed:        feed,
		driver:      driver,
		suspended:   true,
		unsuspendMs: UnsuspendGuardMs,
		outStats:    stats.NewWindow(stats.DefaultWindow),
	}
	for _, o := range opts {
		o(p)
	}
	p.diag.Store(&Snapshot{Suspended: true, Fade: FadeIdle.String()})
	return p
}

// SetNextDevice ставит устройство на (пере)захват; "" — освободить
func (p *Processor) SetNextDevice(id string) {
	p.nextReq.Store(&id)
}

// Reset — полное освобождение и повторный захват текущего устройства
func (p *Processor) Reset() {
	p.resetReq.Store(true)
}

// PlayTestSignal запускает тестовый сигнал на 2 с
func (p *Processor) PlayTestSignal() {
	p.testReq.Store(true)
}

// RequestAutoMaxForce записывает peak·(1+margin) как max force на следующем тике
func (p *Processor) RequestAutoMaxForce() {
	p.autoMaxReq.Store(true)
}

// ClearPeak сбрасывает пиковый момент
func (p *Processor) ClearPeak() {
	p.clearReq.Store(true)
}

// Diagnostics возвращает последний снимок состояния
func (p *Processor) Diagnostics() Snapshot {
	return *p.diag.Load()
}

func (p *Processor) stageNext(id string) {
	p.next = id
	p.haveNext = true
}

// Update — один тик; deltaMs — фактически прошедшее время
func (p *Processor) Update(deltaMs float64) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("ffb: tick failed: %v", r)
			p.unsuspendMs = UnsuspendGuardMs
		}
	}()
	if deltaMs < 0 || math.IsNaN(deltaMs) {
		deltaMs = 0
	}

	ready := p.feed.TakeWindow()
	snap := p.feed.Latest()
	cfg := p.settings.Snapshot()

	// тестовый сигнал
	if p.testReq.Swap(false) {
		logger.Info("ffb: playing test signal")
		p.testMs = testSignalMs
	}
	testTorque := 0.0
	if p.testMs > 0 {
		testTorque = testSignal(p.testMs)
		p.testMs = countdown(p.testMs, deltaMs)
	}

	// приостановка: guard держится, пока приостановка запрошена
	desired := !cfg.Enabled || snap.NativeFFB
	if desired != p.suspended {
		p.suspended = desired
		if desired {
			logger.Info("ffb: suspended (enabled=%v, native ffb=%v)", cfg.Enabled, snap.NativeFFB)
		} else {
			logger.Info("ffb: resuming after %.0f ms guard", UnsuspendGuardMs)
		}
	}
	if p.suspended {
		p.unsuspendMs = UnsuspendGuardMs
	}

	// fade
	if snap.UseTorque != p.useTorque {
		p.useTorque = snap.UseTorque
		switch {
		case !cfg.FadeEnabled:
			p.fade, p.fadeMs = FadeIdle, 0
		case p.useTorque:
			p.fade, p.fadeMs = FadingIn, FadeInMs
		default:
			p.fade, p.fadeMs = FadingOut, FadeOutMs
		}
		logger.Debug("ffb: use torque %v, fade %s", p.useTorque, p.fade)
	}

	if id := p.nextReq.Swap(nil); id != nil {
		p.stageNext(*id)
	}
	if p.resetReq.Swap(false) {
		logger.Info("ffb: reset requested")
		p.stageNext(p.current)
	}
	if p.clearReq.Swap(false) {
		p.peak = 0
	}

	if p.suspended || p.unsuspendMs > 0 {
		if p.current != "" {
			p.driver.Shutdown()
			if !p.haveNext {
				p.stageNext(p.current)
			}
			p.current = ""
		}
		if !p.suspended {
			p.unsuspendMs = countdown(p.unsuspendMs, deltaMs)
		}
		p.publish(snap, cfg, 0, 0, 1, 0, 0)
		return
	}

	// (пере)захват устройства
	if p.haveNext {
		p.haveNext = false
		if p.current != "" {
			logger.Info("ffb: releasing %s", p.current)
			p.driver.Shutdown()
		}
		p.current = p.next
		if p.current != "" {
			if err := p.driver.Initialize(p.current); err != nil {
				logger.Warn("ffb: %s not acquired: %v", p.current, err)
			}
		}
	}

	if p.autoMaxReq.Swap(false) {
		if p.peak > 0 {
			v := p.peak * (1 + cfg.AutoMargin)
			p.settings.SetMaxForce(v)
			logger.Info("ffb: max force set to %.1f N·m (peak %.1f)", config.ClampMaxForce(v), p.peak)
			cfg = p.settings.Snapshot()
		}
		p.peak = 0
	}

	// окно: при fade out держится последний отсчёт, затем нули
	if ready {
		switch {
		case p.useTorque:
			p.window = snap.Window
		case p.fade == FadingOut:
			last := p.window[telemetry.WindowSize-1]
			for i := range p.window {
				p.window[i] = last
			}
		default:
			p.window = telemetry.Window{}
		}
		p.elapsedMs = 0
	} else {
		p.elapsedMs += deltaMs
	}
	s := Resample(&p.window, p.elapsedMs)
	s60 := p.window.Sample60()

	if snap.UseTorque && snap.Surface == telemetry.OnTrack {
		p.peak = math.Max(p.peak, Lerp(p.peak, math.Abs(s), peakFollow))
	}
	p.autoMargin = p.peak * (1 + cfg.AutoMargin)

	if p.feed.TakeCrash() {
		p.crashMs = cfg.Crash.Duration*1000 + CrashRecoveryMs
	}
	crashScale := 1.0
	if p.crashMs > 0 {
		crashScale = 1 - cfg.Crash.Reduction*math.Min(1, p.crashMs/CrashRecoveryMs)
		p.crashMs = countdown(p.crashMs, deltaMs)
	}

	if p.feed.TakeCurb() {
		p.curbMs = cfg.Curb.Duration * 1000
	}
	curb := 0.0
	if p.curbMs > 0 {
		curb = cfg.Curb.Reduction
		p.curbMs = countdown(p.curbMs, deltaMs)
	}

	if !p.driver.Held() {
		p.publish(snap, cfg, s, s60, crashScale, curb, 0)
		return
	}

	if p.algo == nil || p.algoID != cfg.Algorithm {
		algo, err := NewAlgorithm(cfg.Algorithm)
		if err != nil {
			panic(err)
		}
		logger.Info("ffb: algorithm %s", algo.Name())
		p.algo, p.algoID = algo, cfg.Algorithm
	}
	torque := p.algo.Step(&p.state, cfg, Input{Sample: s, Sample60: s60, Curb: curb})
	out := shapeOutput(torque/cfg.MaxForce, cfg)
	out *= crashScale
	out *= parkedScale(snap.Speed, cfg)
	out += softLock(snap, cfg)
	out += snap.WheelVelocity * cfg.Friction

	switch p.fade {
	case FadingIn:
		out *= 1 - p.fadeMs/FadeInMs
		p.fadeMs = countdown(p.fadeMs, deltaMs)
	case FadingOut:
		out = p.lastUnfaded * p.fadeMs / FadeOutMs
		p.fadeMs = countdown(p.fadeMs, deltaMs)
	default:
		p.lastUnfaded = out
	}
	if p.fade != FadeIdle && p.fadeMs == 0 {
		if p.fade == FadingOut {
			p.window = telemetry.Window{}
		}
		p.fade = FadeIdle
	}

	out += testTorque
	p.driver.UpdateEffect(out)
	p.outStats.Update(out)
	p.publish(snap, cfg, s, s60, crashScale, curb, out)
}

func countdown(v, deltaMs float64) float64 {
	v -= deltaMs
	if v < 0 {
		return 0
	}
	return v
}
