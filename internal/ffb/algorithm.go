package ffb

import (
	"fmt"
	"math"

	"github.com/shiwa/ffb-sync/internal/config"
)

// State — общее состояние алгоритмов: накопитель и прошлый сырой отсчёт.
// Не сбрасывается при смене алгоритма и переподключении устройства.
type State struct {
	Accumulator float64 // r, Н·м
	Previous    float64 // p, Н·м
}

// Input — отсчёты текущего тика
type Input struct {
	Sample   float64 // s, 360 Гц
	Sample60 float64 // s60, слот 6 окна
	Curb     float64 // k, смешивание curb protection (0 — выкл)
}

// Algorithm — сглаживание/сжатие момента. Step возвращает момент в Н·м
// и сохраняет r' и целевой отсчёт в st.
type Algorithm interface {
	Step(st *State, cfg *config.FFB, in Input) float64
	Name() string
}

// Native — момент без обработки (60 или 360 Гц)
type Native struct {
	On60Hz bool
}

// Step — out = target
func (n Native) Step(st *State, _ *config.FFB, in Input) float64 {
	target := pick(in, n.On60Hz)
	st.Accumulator = target
	st.Previous = target
	return target
}

func (n Native) Name() string {
	if n.On60Hz {
		return config.Native60Hz.String()
	}
	return config.Native360Hz.String()
}

// DetailBooster усиливает приращения между отсчётами в (1+D) раз.
// Curb protection сводит усиление к 1.
type DetailBooster struct {
	On60Hz bool
}

func (d DetailBooster) Step(st *State, cfg *config.FFB, in Input) float64 {
	target := pick(in, d.On60Hz)
	delta := target - st.Previous
	gain := Lerp(1+cfg.DetailBoost, 1, in.Curb)
	return st.commit(Lerp(st.Accumulator+delta*gain, target, cfg.Bias()), target)
}

func (d DetailBooster) Name() string {
	if d.On60Hz {
		return config.DetailBoosterOn60Hz.String()
	}
	return config.DetailBooster.String()
}

// DeltaLimiter ограничивает приращение за тик значением L (при curb — 1 Н·м)
type DeltaLimiter struct {
	On60Hz bool
}

func (d DeltaLimiter) Step(st *State, cfg *config.FFB, in Input) float64 {
	target := pick(in, d.On60Hz)
	limit := Lerp(cfg.DeltaLimit, 1, in.Curb)
	delta := clamp(target-st.Previous, -limit, limit)
	return st.commit(Lerp(st.Accumulator+delta, target, cfg.Bias()), target)
}

func (d DeltaLimiter) Name() string {
	if d.On60Hz {
		return config.DeltaLimiterOn60Hz.String()
	}
	return config.DeltaLimiter.String()
}

// CompressionBlend — сжатие части приращения сверх L с коэффициентом C
type CompressionBlend struct{}

func (CompressionBlend) Step(st *State, cfg *config.FFB, in Input) float64 {
	target := in.Sample
	delta := target - st.Previous
	compressible := math.Max(0, math.Abs(delta)-Lerp(cfg.DeltaLimit, 1, in.Curb))
	scale := math.Max(0, 1-compressible*cfg.CompressionRate)
	compressed := delta
	if compressible <= 0 {
		compressed = delta + sign(delta)*compressible*scale
	}
	return st.commit(Lerp(st.Accumulator+compressed, target, cfg.Bias()), target)
}

func (CompressionBlend) Name() string { return config.CompressionBlend.String() }

// NewAlgorithm возвращает реализацию выбранного алгоритма
func NewAlgorithm(a config.Algorithm) (Algorithm, error) {
	switch a {
	case config.Native60Hz:
		return Native{On60Hz: true}, nil
	case config.Native360Hz:
		return Native{}, nil
	case config.DetailBooster:
		return DetailBooster{}, nil
	case config.DeltaLimiter:
		return DeltaLimiter{}, nil
	case config.DetailBoosterOn60Hz:
		return DetailBooster{On60Hz: true}, nil
	case config.DeltaLimiterOn60Hz:
		return DeltaLimiter{On60Hz: true}, nil
	case config.CompressionBlend:
		return CompressionBlend{}, nil
	default:
		return nil, fmt.Errorf("unknown algorithm %d", int(a))
	}
}

func (st *State) commit(r, target float64) float64 {
	st.Accumulator = r
	st.Previous = target
	return r
}

func pick(in Input, on60 bool) float64 {
	if on60 {
		return in.Sample60
	}
	return in.Sample
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
