package ffb

import (
	"math"

	"github.com/shiwa/ffb-sync/internal/config"
	"github.com/shiwa/ffb-sync/internal/telemetry"
)

const (
	// ParkedSpeed — 5 миль/ч в м/с; ниже выход смешивается к ParkedStrength
	ParkedSpeed = 2.2352

	testSignalMs = 2000.0
	tau          = 2 * math.Pi
)

// shapeOutput — кривая выхода: sign(x)·(min + |x|^(2^curve)·(max−min)).
// При значениях по умолчанию (0, 1, 0) выход не меняется.
func shapeOutput(x float64, cfg *config.FFB) float64 {
	if cfg.OutputMinimum == 0 && cfg.OutputMaximum == 1 && cfg.OutputCurve == 0 {
		return x
	}
	if x == 0 {
		return 0
	}
	mag := math.Pow(math.Abs(x), math.Pow(2, cfg.OutputCurve))
	return sign(x) * (cfg.OutputMinimum + mag*(cfg.OutputMaximum-cfg.OutputMinimum))
}

// parkedScale — множитель на малой скорости
func parkedScale(speed float64, cfg *config.FFB) float64 {
	if cfg.ParkedStrength >= 1 {
		return 1
	}
	return Lerp(cfg.ParkedStrength, 1, speed/ParkedSpeed)
}

// softLock — пружина и демпфер за пределом угла поворота.
// Угол симулятора положителен влево, скорость оси устройства положительна вправо:
// знаки различаются, пока руль уходит дальше за предел.
func softLock(s *telemetry.Snapshot, cfg *config.FFB) float64 {
	if cfg.SoftLockStrength <= 0 || s.SteeringAngleMax <= 0 {
		return 0
	}
	delta := s.SteeringAngleMax - math.Abs(s.SteeringAngle)
	if delta >= 0 {
		return 0
	}
	dir := sign(s.SteeringAngle)
	out := dir * delta * 2 * cfg.SoftLockStrength
	if sign(s.WheelVelocity) != dir {
		out += s.WheelVelocity * cfg.SoftLockStrength
	}
	return out
}

// testSignal — несущая ~41.7 Гц с синусной огибающей 1 Гц; remainingMs идёт от 2000 до 0
func testSignal(remainingMs float64) float64 {
	return math.Cos(remainingMs*tau/24) * math.Sin(remainingMs*tau/1000) * 0.2
}
