package ffb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shiwa/ffb-sync/internal/config"
	"github.com/shiwa/ffb-sync/internal/telemetry"
)

func TestHermite_Endpoints(t *testing.T) {
	pts := [][4]float64{
		{0, 1, 2, 3},
		{-5, 3.25, -7, 11},
		{10, 10, 10, 10},
	}
	for _, v := range pts {
		require.InDelta(t, v[1], Hermite(v[0], v[1], v[2], v[3], 0), 1e-12)
		require.InDelta(t, v[2], Hermite(v[0], v[1], v[2], v[3], 1), 1e-12)
	}
}

func TestLerp(t *testing.T) {
	require.Equal(t, 2.0, Lerp(2, 4, 0))
	require.Equal(t, 4.0, Lerp(2, 4, 1))
	require.Equal(t, 3.0, Lerp(2, 4, 0.5))
	require.Equal(t, 4.0, Lerp(2, 4, 7), "t ограничивается сверху")
	require.Equal(t, 2.0, Lerp(2, 4, -1), "t ограничивается снизу")
}

func TestResample(t *testing.T) {
	w := telemetry.Window{0, 1, 2, 3, 4, 5, 6, 6}
	tests := []struct {
		name    string
		elapsed float64
		want    float64
	}{
		{"начало окна", 0, 1},
		{"второй подшаг", 1000.0 / SubstepRate, 2},
		{"пятый подшаг", 4 * 1000.0 / SubstepRate, 5},
		{"за концом окна", 100, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, Resample(&w, tt.elapsed), 1e-9)
		})
	}

	mid := Resample(&w, 0.5*1000/SubstepRate)
	require.InDelta(t, 1.5, mid, 1e-9, "на линейных данных сплайн линеен")
	require.Equal(t, 6.0, w.Sample60())
}

func settings(mut func(f *config.FFB)) *config.FFB {
	f := config.DefaultFFB()
	if mut != nil {
		mut(&f)
	}
	f.Clamp()
	return &f
}

func TestAlgorithms_UnitBias(t *testing.T) {
	cfg := settings(func(f *config.FFB) {
		f.DetailBoostBias = 1
		f.DeltaLimiterBias = 1
		f.DetailBoost = 3
		f.DeltaLimit = 5
		f.MaxForce = 40
	})
	for _, a := range config.Algorithms() {
		t.Run(a.String(), func(t *testing.T) {
			algo, err := NewAlgorithm(a)
			require.NoError(t, err)
			require.Equal(t, a.String(), algo.Name())

			var st State
			c := *cfg
			c.Algorithm = a
			torque := algo.Step(&st, &c, Input{Sample: 22, Sample60: 22})
			require.Equal(t, 22.0/40, torque/c.MaxForce)
			require.Equal(t, 22.0, st.Previous)
		})
	}
}

func TestNewAlgorithm_Unknown(t *testing.T) {
	_, err := NewAlgorithm(config.Algorithm(42))
	require.Error(t, err)
}

func TestDeltaLimiter(t *testing.T) {
	cfg := settings(func(f *config.FFB) {
		f.Algorithm = config.DeltaLimiter
		f.DeltaLimit = 10
		f.DeltaLimiterBias = config.MinBias
	})
	b := cfg.Bias()

	var st State
	r := DeltaLimiter{}.Step(&st, cfg, Input{Sample: 100})
	require.InDelta(t, 10*(1-b)+100*b, r, 1e-9)
	// приращение ограничено L; смещение к цели добавляет только b·(s−p)
	require.LessOrEqual(t, math.Abs(r-0), cfg.DeltaLimit*(1-b)+b*100+1e-9)
	require.InDelta(t, cfg.DeltaLimit, r, 0.1)
	require.Equal(t, 100.0, st.Previous)

	t.Run("отрицательное приращение", func(t *testing.T) {
		st := State{Accumulator: 50, Previous: 50}
		r := DeltaLimiter{}.Step(&st, cfg, Input{Sample: -50})
		require.InDelta(t, 40*(1-b)-50*b, r, 1e-9)
	})

	t.Run("curb сводит предел к 1", func(t *testing.T) {
		var st State
		r := DeltaLimiter{}.Step(&st, cfg, Input{Sample: 100, Curb: 1})
		require.InDelta(t, 1*(1-b)+100*b, r, 1e-9)
	})

	t.Run("малое приращение проходит", func(t *testing.T) {
		var st State
		r := DeltaLimiter{}.Step(&st, cfg, Input{Sample: 3})
		require.InDelta(t, 3, r, 1e-9)
	})

	t.Run("60 Гц", func(t *testing.T) {
		var st State
		r := DeltaLimiter{On60Hz: true}.Step(&st, cfg, Input{Sample: 0, Sample60: 4})
		require.InDelta(t, 4, r, 1e-9)
		require.Equal(t, 4.0, st.Previous)
	})
}

func TestDetailBooster(t *testing.T) {
	cfg := settings(func(f *config.FFB) {
		f.Algorithm = config.DetailBooster
		f.DetailBoost = 1
		f.DetailBoostBias = config.MinBias
	})
	b := cfg.Bias()

	st := State{Accumulator: 10, Previous: 10}
	r := DetailBooster{}.Step(&st, cfg, Input{Sample: 12})
	require.InDelta(t, (10+2*2)*(1-b)+12*b, r, 1e-9, "приращение удваивается")

	st = State{Accumulator: 10, Previous: 10}
	r = DetailBooster{}.Step(&st, cfg, Input{Sample: 12, Curb: 1})
	require.InDelta(t, 12, r, 1e-9, "при curb усиление снимается")
}

func TestCompressionBlend(t *testing.T) {
	cfg := settings(func(f *config.FFB) {
		f.Algorithm = config.CompressionBlend
		f.DeltaLimit = 5
		f.CompressionRate = 0.5
		f.DeltaLimiterBias = 0.5
	})

	for _, s := range []float64{2, 20, -30} {
		st := State{Accumulator: 1, Previous: 0}
		r := CompressionBlend{}.Step(&st, cfg, Input{Sample: s})
		require.InDelta(t, Lerp(1+s, s, 0.5), r, 1e-9, "sample %v", s)
		require.Equal(t, s, st.Previous)
	}
}

func TestAccumulatorConverges(t *testing.T) {
	for _, a := range config.Algorithms() {
		cfg := settings(func(f *config.FFB) {
			f.Algorithm = a
			f.DetailBoost = 2
		})
		algo, err := NewAlgorithm(a)
		require.NoError(t, err)
		st := State{Accumulator: 80, Previous: 0}
		var r float64
		for i := 0; i < 2000; i++ {
			r = algo.Step(&st, cfg, Input{Sample: 10, Sample60: 10})
		}
		require.InDelta(t, 10, r, 1e-6, a.String())
	}
}
