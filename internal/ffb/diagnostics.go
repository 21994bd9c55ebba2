package ffb

import (
	"github.com/shiwa/ffb-sync/internal/config"
	"github.com/shiwa/ffb-sync/internal/telemetry"
)

// Snapshot — диагностика процессора за последний тик (только для отображения)
type Snapshot struct {
	Suspended   bool    `json:"suspended"`
	UnsuspendMs float64 `json:"unsuspendMs"`
	Fade        string  `json:"fade"`
	FadeMs      float64 `json:"fadeMs"`
	Device      string  `json:"device"`
	DeviceHeld  bool    `json:"deviceHeld"`
	Algorithm   string  `json:"algorithm"`
	MaxForce    float64 `json:"maxForce"`

	Sample      float64 `json:"sample"`
	Sample60    float64 `json:"sample60"`
	Accumulator float64 `json:"accumulator"`
	Peak        float64 `json:"peak"`
	AutoMargin  float64 `json:"autoMargin"`

	CrashMs      float64 `json:"crashMs"`
	CrashScale   float64 `json:"crashScale"`
	CurbMs       float64 `json:"curbMs"`
	CurbBlend    float64 `json:"curbBlend"`
	TestSignalMs float64 `json:"testSignalMs"`

	Output       float64 `json:"output"`
	OutputAvg    float64 `json:"outputAvg"`
	OutputStdDev float64 `json:"outputStdDev"`

	Speed         float64 `json:"speed"`
	SteeringAngle float64 `json:"steeringAngle"`
	WheelPosition float64 `json:"wheelPosition"`
	WheelVelocity float64 `json:"wheelVelocity"`
}

func (p *Processor) publish(snap *telemetry.Snapshot, cfg *config.FFB, s, s60, crashScale, curb, out float64) {
	sum := p.outStats.Summary()
	p.diag.Store(&Snapshot{
		Suspended:     p.suspended || p.unsuspendMs > 0,
		UnsuspendMs:   p.unsuspendMs,
		Fade:          p.fade.String(),
		FadeMs:        p.fadeMs,
		Device:        p.current,
		DeviceHeld:    p.driver.Held(),
		Algorithm:     cfg.Algorithm.String(),
		MaxForce:      cfg.MaxForce,
		Sample:        s,
		Sample60:      s60,
		Accumulator:   p.state.Accumulator,
		Peak:          p.peak,
		AutoMargin:    p.autoMargin,
		CrashMs:       p.crashMs,
		CrashScale:    crashScale,
		CurbMs:        p.curbMs,
		CurbBlend:     curb,
		TestSignalMs:  p.testMs,
		Output:        out,
		OutputAvg:     sum.Avg,
		OutputStdDev:  sum.StdDev,
		Speed:         snap.Speed,
		SteeringAngle: snap.SteeringAngle,
		WheelPosition: snap.WheelPosition,
		WheelVelocity: snap.WheelVelocity,
	})
}
