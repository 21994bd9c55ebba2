package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Algorithm — стратегия интегрирования новых сэмплов в накопитель
type Algorithm int

const (
	Native60Hz Algorithm = iota
	Native360Hz
	DetailBooster
	DeltaLimiter
	DetailBoosterOn60Hz
	DeltaLimiterOn60Hz
	CompressionBlend
)

var algorithmNames = [...]string{
	Native60Hz:          "Native60Hz",
	Native360Hz:         "Native360Hz",
	DetailBooster:       "DetailBooster",
	DeltaLimiter:        "DeltaLimiter",
	DetailBoosterOn60Hz: "DetailBoosterOn60Hz",
	DeltaLimiterOn60Hz:  "DeltaLimiterOn60Hz",
	CompressionBlend:    "CompressionBlend",
}

// Algorithms возвращает все стратегии в порядке объявления
func Algorithms() []Algorithm {
	out := make([]Algorithm, len(algorithmNames))
	for i := range algorithmNames {
		out[i] = Algorithm(i)
	}
	return out
}

func (a Algorithm) String() string {
	if a < 0 || int(a) >= len(algorithmNames) {
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
	return algorithmNames[a]
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// ParseAlgorithm принимает имя в любом регистре, с _ или - ("detail_booster", "DetailBooster").
func ParseAlgorithm(s string) (Algorithm, error) {
	n := normalizeName(s)
	for i, name := range algorithmNames {
		if normalizeName(name) == n {
			return Algorithm(i), nil
		}
	}
	return DetailBooster, fmt.Errorf("unknown ffb algorithm %q", s)
}

// UnmarshalYAML — алгоритм задаётся строкой
func (a *Algorithm) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseAlgorithm(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Unpack — то же для go-ucfg (конфиг Beat)
func (a *Algorithm) Unpack(s string) error {
	parsed, err := ParseAlgorithm(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalYAML — обратное к UnmarshalYAML
func (a Algorithm) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// FFB — скалярные настройки процессора, читаются раз за тик.
type FFB struct {
	Enabled     bool      `yaml:"enabled" config:"enabled"`
	Algorithm   Algorithm `yaml:"algorithm" config:"algorithm"`
	FadeEnabled bool      `yaml:"fade_enabled" config:"fade_enabled"`

	MaxForce         float64 `yaml:"max_force" config:"max_force"`     // Н·м, соответствует выходу 1.0
	AutoMargin       float64 `yaml:"auto_margin" config:"auto_margin"` // запас для auto max force: peak*(1+margin)
	DetailBoost      float64 `yaml:"detail_boost" config:"detail_boost"`
	DetailBoostBias  float64 `yaml:"detail_boost_bias" config:"detail_boost_bias"`
	DeltaLimit       float64 `yaml:"delta_limit" config:"delta_limit"`
	DeltaLimiterBias float64 `yaml:"delta_limiter_bias" config:"delta_limiter_bias"`
	CompressionRate  float64 `yaml:"compression_rate" config:"compression_rate"`

	ParkedStrength   float64 `yaml:"parked_strength" config:"parked_strength"`
	SoftLockStrength float64 `yaml:"soft_lock_strength" config:"soft_lock_strength"`
	Friction         float64 `yaml:"friction" config:"friction"`

	OutputMinimum float64 `yaml:"output_minimum" config:"output_minimum"`
	OutputMaximum float64 `yaml:"output_maximum" config:"output_maximum"`
	OutputCurve   float64 `yaml:"output_curve" config:"output_curve"`

	Crash CrashProtection `yaml:"crash_protection" config:"crash_protection"`
	Curb  CurbProtection  `yaml:"curb_protection" config:"curb_protection"`
}

// CrashProtection — снижение силы после удара
type CrashProtection struct {
	GForce    float64 `yaml:"g_force" config:"g_force"`
	Duration  float64 `yaml:"duration" config:"duration"` // секунды
	Reduction float64 `yaml:"reduction" config:"reduction"`
}

// CurbProtection — смягчение на поребриках
type CurbProtection struct {
	ShockVelocity float64 `yaml:"shock_velocity" config:"shock_velocity"` // м/с
	Duration      float64 `yaml:"duration" config:"duration"`             // секунды
	Reduction     float64 `yaml:"reduction" config:"reduction"`
}

// Диапазоны настроек
const (
	MinMaxForce = 5.0
	MaxMaxForce = 99.9
	MinBias     = 0.001
)

// DefaultFFB — настройки по умолчанию
func DefaultFFB() FFB {
	return FFB{
		Enabled:          true,
		Algorithm:        DetailBooster,
		FadeEnabled:      true,
		MaxForce:         50,
		AutoMargin:       0,
		DetailBoost:      0,
		DetailBoostBias:  0.1,
		DeltaLimit:       32.4,
		DeltaLimiterBias: 0.2,
		CompressionRate:  0.1,
		ParkedStrength:   0.25,
		SoftLockStrength: 0.25,
		Friction:         0,
		OutputMinimum:    0,
		OutputMaximum:    1,
		OutputCurve:      0,
		Crash: CrashProtection{
			GForce:    8,
			Duration:  1,
			Reduction: 0.95,
		},
		Curb: CurbProtection{
			ShockVelocity: 0.5,
			Duration:      0.1,
			Reduction:     0.75,
		},
	}
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

// ClampMaxForce приводит max force к допустимому диапазону
func ClampMaxForce(v float64) float64 {
	return clamp(v, MinMaxForce, MaxMaxForce)
}

// Clamp приводит все значения к допустимым диапазонам.
// Bias всегда в (0, 1]: накопитель не может уйти от входного сигнала.
func (f *FFB) Clamp() {
	if f.Algorithm < 0 || int(f.Algorithm) >= len(algorithmNames) {
		f.Algorithm = DetailBooster
	}
	f.MaxForce = ClampMaxForce(f.MaxForce)
	f.AutoMargin = clamp(f.AutoMargin, -1, 1)
	f.DetailBoost = clamp(f.DetailBoost, 0, 9.99)
	f.DetailBoostBias = clamp(f.DetailBoostBias, MinBias, 1)
	f.DeltaLimit = clamp(f.DeltaLimit, 0, 99.9)
	f.DeltaLimiterBias = clamp(f.DeltaLimiterBias, MinBias, 1)
	f.CompressionRate = clamp(f.CompressionRate, 0, 1)
	f.ParkedStrength = clamp(f.ParkedStrength, 0, 1)
	f.SoftLockStrength = clamp(f.SoftLockStrength, 0, 1)
	f.Friction = clamp(f.Friction, 0, 1)
	f.OutputMinimum = clamp(f.OutputMinimum, 0, 0.1)
	f.OutputMaximum = clamp(f.OutputMaximum, 0.2, 1)
	f.OutputCurve = clamp(f.OutputCurve, -1, 1)
	f.Crash.GForce = clamp(f.Crash.GForce, 2, 20)
	f.Crash.Duration = clamp(f.Crash.Duration, 0, 10)
	f.Crash.Reduction = clamp(f.Crash.Reduction, 0, 1)
	f.Curb.ShockVelocity = clamp(f.Curb.ShockVelocity, 0, 1)
	f.Curb.Duration = clamp(f.Curb.Duration, 0, 1)
	f.Curb.Reduction = clamp(f.Curb.Reduction, 0, 1)
}

// Bias возвращает bias для выбранного алгоритма
func (f *FFB) Bias() float64 {
	switch f.Algorithm {
	case DetailBooster, DetailBoosterOn60Hz:
		return f.DetailBoostBias
	default:
		return f.DeltaLimiterBias
	}
}
