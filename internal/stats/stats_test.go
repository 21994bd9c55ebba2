package stats

import (
	"math"
	"testing"
)

func TestWindow_Update(t *testing.T) {
	w := NewWindow(4)
	for _, v := range []float64{1, 2, 3, 4} {
		w.Update(v)
	}
	s := w.Summary()
	if s.Min != 1 || s.Max != 4 {
		t.Errorf("min/max = %v/%v, want 1/4", s.Min, s.Max)
	}
	if s.Avg != 2.5 {
		t.Errorf("avg = %v, want 2.5", s.Avg)
	}
	if math.Abs(s.Variance-1.25) > 1e-12 {
		t.Errorf("variance = %v, want 1.25", s.Variance)
	}
	if math.Abs(s.StdDev-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("stddev = %v", s.StdDev)
	}
	if s.Count != 4 {
		t.Errorf("count = %d, want 4", s.Count)
	}
}

func TestWindow_Wraps(t *testing.T) {
	w := NewWindow(2)
	w.Update(10)
	w.Update(20)
	s := w.Update(30) // вытесняет 10
	if s.Min != 20 || s.Max != 30 {
		t.Errorf("после переполнения min/max = %v/%v, want 20/30", s.Min, s.Max)
	}
	if s.Avg != 25 {
		t.Errorf("avg = %v, want 25", s.Avg)
	}
}

func TestWindow_Reset(t *testing.T) {
	w := NewWindow(0)
	w.Update(5)
	w.Reset()
	if s := w.Summary(); s.Count != 0 || s.Avg != 0 {
		t.Errorf("после Reset ожидали пустую сводку, получили %+v", s)
	}
	s := w.Update(0)
	if s.Max != 0 {
		t.Errorf("после Reset буфер должен быть обнулён, max=%v", s.Max)
	}
}

func TestWindow_SkipsNonFinite(t *testing.T) {
	w := NewWindow(2)
	w.Update(1)
	before := w.Update(3)
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if s := w.Update(v); s != before {
			t.Errorf("Update(%v) изменил сводку: %+v", v, s)
		}
	}
	s := w.Update(5) // вытесняет 1
	if s.Avg != 4 || s.Min != 3 || s.Max != 5 {
		t.Errorf("после NaN avg/min/max = %v/%v/%v, want 4/3/5", s.Avg, s.Min, s.Max)
	}
	s = w.Update(7)
	if math.IsNaN(s.Avg) || s.Avg != 6 {
		t.Errorf("avg = %v, want 6", s.Avg)
	}
}
