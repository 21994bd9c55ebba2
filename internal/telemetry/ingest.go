package telemetry

import (
	"math"
	"sync/atomic"

	"github.com/shiwa/ffb-sync/internal/config"
	"github.com/shiwa/ffb-sync/internal/logger"
)

// Settings — источник порогов crash/curb protection
type Settings interface {
	Snapshot() *config.FFB
}

// Poller — опрос положения руля (DeviceEffectDriver.PollPosition)
type Poller interface {
	PollPosition(dt float64) (position, velocity float64)
}

const defaultTickRate = 60

// Ingest — приёмник телеметрии. Publish вызывается только из одного потока.
type Ingest struct {
	settings Settings
	poller   Poller

	// OnConnect / OnDisconnect — переходы соединения с симулятором (возобновление и приостановка таймера)
	OnConnect    func()
	OnDisconnect func()

	latest atomic.Pointer[Snapshot]
	ready  atomic.Bool
	crash  atomic.Bool
	curb   atomic.Bool

	// состояние писателя
	connected  bool
	seq        uint64
	haveTick   bool
	lastTick   int
	lastSample float64
	haveVel    bool
	lastVX     float64
	lastVY     float64
}

// New создаёт приёмник. poller может быть nil (руль не опрашивается).
func New(settings Settings, poller Poller) *Ingest {
	in := &Ingest{settings: settings, poller: poller}
	in.latest.Store(&Snapshot{Surface: NotInWorld})
	return in
}

// Publish обрабатывает кадр симулятора: одно окно на кадр, last-write-wins.
func (in *Ingest) Publish(f *Frame) {
	if !f.Connected {
		in.Disconnect()
		return
	}
	if !in.connected {
		in.connected = true
		logger.Info("telemetry: simulator connected")
		if in.OnConnect != nil {
			in.OnConnect()
		}
	}

	rate := sanitize(f.TickRate)
	if rate <= 0 {
		rate = defaultTickRate
	}
	ticks := 1
	if in.haveTick && f.TickCount > in.lastTick {
		ticks = f.TickCount - in.lastTick
	}
	in.haveTick = true
	in.lastTick = f.TickCount
	dt := float64(ticks) / rate

	vx, vy := sanitize(f.VelocityX), sanitize(f.VelocityY)
	in.seq++
	s := &Snapshot{
		Seq:              in.seq,
		Connected:        true,
		UseTorque:        f.OnTrack,
		Surface:          f.Surface,
		NativeFFB:        f.NativeFFB,
		Speed:            math.Hypot(vx, vy),
		SteeringAngle:    sanitize(f.SteeringAngle),
		SteeringAngleMax: sanitize(f.SteeringAngleMax),
	}

	s.Window[0] = in.lastSample
	for i, v := range f.Torque {
		s.Window[i+1] = sanitize(v)
	}
	s.Window[WindowSize-1] = s.Window[WindowSize-2]
	in.lastSample = s.Window[WindowSize-1]

	cfg := in.settings.Snapshot()

	if in.haveVel {
		dv := math.Hypot(vx-in.lastVX, vy-in.lastVY)
		s.GForce = dv / dt / Gravity
		if s.GForce >= cfg.Crash.GForce {
			if !in.crash.Swap(true) {
				logger.Debug("telemetry: crash detected (%.1f G)", s.GForce)
			}
		}
	}
	in.haveVel = true
	in.lastVX, in.lastVY = vx, vy

	for c := range f.ShockVelocity {
		for _, v := range f.ShockVelocity[c] {
			if a := math.Abs(sanitize(v)); a > s.MaxShockVelocity {
				s.MaxShockVelocity = a
			}
		}
	}
	if cfg.Curb.ShockVelocity > 0 && s.MaxShockVelocity >= cfg.Curb.ShockVelocity {
		in.curb.Store(true)
	}

	if in.poller != nil {
		s.WheelPosition, s.WheelVelocity = in.poller.PollPosition(dt)
	}

	in.latest.Store(s)
	in.ready.Store(true)
}

// Disconnect публикует нулевой снимок (UseTorque = false → fade out) и сбрасывает счётчик тиков.
func (in *Ingest) Disconnect() {
	in.haveTick = false
	in.haveVel = false
	in.lastSample = 0
	if !in.connected {
		return
	}
	in.connected = false
	in.seq++
	in.latest.Store(&Snapshot{Seq: in.seq, Surface: NotInWorld})
	in.ready.Store(true)
	logger.Info("telemetry: simulator disconnected")
	if in.OnDisconnect != nil {
		in.OnDisconnect()
	}
}

// Latest возвращает последний снимок (никогда не nil)
func (in *Ingest) Latest() *Snapshot {
	return in.latest.Load()
}

// TakeWindow — однократный флаг "окно обновлено"
func (in *Ingest) TakeWindow() bool {
	return in.ready.Swap(false)
}

// TakeCrash — однократный запрос crash protection
func (in *Ingest) TakeCrash() bool {
	return in.crash.Swap(false)
}

// TakeCurb — однократный запрос curb protection
func (in *Ingest) TakeCurb() bool {
	return in.curb.Swap(false)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
