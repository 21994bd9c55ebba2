// Package stats — скользящая статистика по окну фиксированного размера
// (джиттер таймера, выходной момент).
package stats

import "math"

// DefaultWindow — размер окна по умолчанию (500 тиков = 1 с при периоде 2 мс)
const DefaultWindow = 500

// Summary — снимок статистики окна
type Summary struct {
	Min, Max, Avg    float64
	Variance, StdDev float64
	Count            int
}

// Window — кольцевой буфер значений; Update пересчитывает итоги.
// Незаполненные ячейки считаются нулями (как среднее по полному окну).
type Window struct {
	values []float64
	idx    int
	n      int
	total  float64
	last   Summary
}

// Len возвращает размер окна
func (w *Window) Len() int {
	return len(w.values)
}

// NewWindow создаёт окно размера size (size <= 0 → DefaultWindow).
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindow
	}
	return &Window{values: make([]float64, size)}
}

// Update добавляет значение и возвращает обновлённую сводку.
// NaN и ±Inf пропускаются: сводка остаётся прежней.
func (w *Window) Update(v float64) Summary {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return w.last
	}
	old := w.values[w.idx]
	w.values[w.idx] = v
	w.idx++
	if w.idx >= len(w.values) {
		w.idx = 0
	}
	if w.n < len(w.values) {
		w.n++
	}
	w.total += v - old

	size := float64(len(w.values))
	avg := w.total / size
	minV, maxV := math.Inf(1), math.Inf(-1)
	var variance float64
	for _, x := range w.values {
		if x < minV {
			minV = x
		}
		if x > maxV {
			maxV = x
		}
		d := x - avg
		variance += d * d
	}
	variance /= size
	w.last = Summary{
		Min:      minV,
		Max:      maxV,
		Avg:      avg,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		Count:    w.n,
	}
	return w.last
}

// Summary возвращает последнюю посчитанную сводку
func (w *Window) Summary() Summary {
	return w.last
}

// Reset обнуляет окно
func (w *Window) Reset() {
	for i := range w.values {
		w.values[i] = 0
	}
	w.idx = 0
	w.n = 0
	w.total = 0
	w.last = Summary{}
}
