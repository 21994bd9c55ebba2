package ffb

import (
	"math"

	"github.com/shiwa/ffb-sync/internal/telemetry"
)

// SubstepRate — частота подшагов физики симулятора (Гц)
const SubstepRate = 360.0

// Lerp — линейная интерполяция a→b, t ограничивается [0, 1]
func Lerp(a, b, t float64) float64 {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a*(1-t) + b*t
}

// Hermite — кубический сплайн Катмулла-Рома через v1 (t=0) и v2 (t=1)
func Hermite(v0, v1, v2, v3, t float64) float64 {
	a := 2 * v1
	b := v2 - v0
	c := 2*v0 - 5*v1 + 4*v2 - v3
	d := -v0 + 3*v1 - 3*v2 + v3
	return 0.5 * (a + b*t + c*t*t + d*t*t*t)
}

// Resample возвращает 360 Гц отсчёт окна через elapsedMs после его публикации.
// Индекс 1 + elapsed·360/1000; соседние точки ограничиваются границами окна.
func Resample(w *telemetry.Window, elapsedMs float64) float64 {
	last := telemetry.WindowSize - 1
	idx := 1 + elapsedMs*SubstepRate/1000
	if idx < 1 || math.IsNaN(idx) {
		idx = 1
	}
	i1 := minInt(last, int(idx))
	i2 := minInt(last, i1+1)
	i3 := minInt(last, i2+1)
	i0 := i1 - 1
	if i0 < 0 {
		i0 = 0
	}
	t := math.Min(1, idx-float64(i1))
	return Hermite(w[i0], w[i1], w[i2], w[i3], t)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
