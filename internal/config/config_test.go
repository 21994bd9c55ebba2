package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.FFB.Enabled || !c.FFB.FadeEnabled {
		t.Error("enabled/fade_enabled должны быть true по умолчанию")
	}
	if c.FFB.MaxForce != 50 || c.FFB.Algorithm != DetailBooster {
		t.Errorf("max_force=%v algorithm=%v", c.FFB.MaxForce, c.FFB.Algorithm)
	}
	if c.Clock.Period != "2ms" || c.Clock.Grace != "4s" {
		t.Errorf("clock = %+v", c.Clock)
	}
	if c.Device.CAN.CommandID != 0x32 || c.Device.CAN.FeedbackID != 0x97 {
		t.Errorf("can = %+v", c.Device.CAN)
	}
}

func TestParse_FFB(t *testing.T) {
	data := []byte(`
device:
  id: serial:/dev/ttyACM0
ffb:
  enabled: false
  algorithm: delta_limiter_on_60hz
  max_force: 200
  delta_limiter_bias: 0
  output_maximum: 0.1
  crash_protection:
    g_force: 1
    reduction: 0.5
`)
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Device.ID != "serial:/dev/ttyACM0" {
		t.Errorf("device.id = %q", c.Device.ID)
	}
	f := c.FFB
	if f.Enabled {
		t.Error("enabled: false не применился")
	}
	if f.Algorithm != DeltaLimiterOn60Hz {
		t.Errorf("algorithm = %v, want DeltaLimiterOn60Hz", f.Algorithm)
	}
	if f.MaxForce != MaxMaxForce {
		t.Errorf("max_force = %v, want %v (clamp)", f.MaxForce, MaxMaxForce)
	}
	if f.DeltaLimiterBias != MinBias {
		t.Errorf("delta_limiter_bias = %v, want %v", f.DeltaLimiterBias, MinBias)
	}
	if f.OutputMaximum != 0.2 {
		t.Errorf("output_maximum = %v, want 0.2", f.OutputMaximum)
	}
	if f.Crash.GForce != 2 || f.Crash.Reduction != 0.5 || f.Crash.Duration != 1 {
		t.Errorf("crash = %+v", f.Crash)
	}
}

func TestParse_BadAlgorithm(t *testing.T) {
	if _, err := Parse([]byte("ffb:\n  algorithm: turbo\n")); err == nil {
		t.Error("ожидали ошибку для неизвестного алгоритма")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ffb.yml")
	if err := os.WriteFile(path, []byte("clock:\n  grace: PT2S\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d := MustDuration(c.Clock.Grace, time.Second); d != 2*time.Second {
		t.Errorf("grace = %v, want 2s", d)
	}
	if c.Clock.Period != "2ms" {
		t.Errorf("period = %q, want default 2ms", c.Clock.Period)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("ожидали ошибку для отсутствующего файла")
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in   string
		want Algorithm
	}{
		{"Native60Hz", Native60Hz},
		{"native_360hz", Native360Hz},
		{"detail-booster", DetailBooster},
		{"DETAILBOOSTERON60HZ", DetailBoosterOn60Hz},
		{"compression_blend", CompressionBlend},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	for _, a := range Algorithms() {
		back, err := ParseAlgorithm(a.String())
		if err != nil || back != a {
			t.Errorf("%v: обратный разбор дал %v, %v", a, back, err)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", time.Second, false},
		{"200ms", 200 * time.Millisecond, false},
		{"PT4S", 4 * time.Second, false},
		{"soon", time.Second, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in, time.Second)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestStore(t *testing.T) {
	s := NewStore(DefaultFFB())
	first := s.Snapshot()
	s.SetMaxForce(1000)
	if got := s.Snapshot().MaxForce; got != MaxMaxForce {
		t.Errorf("SetMaxForce(1000) → %v, want %v", got, MaxMaxForce)
	}
	if first.MaxForce != 50 {
		t.Error("старый снимок не должен меняться")
	}
	f := DefaultFFB()
	f.Algorithm = Native360Hz
	s.Replace(f)
	if s.Snapshot().Algorithm != Native360Hz || s.Snapshot().MaxForce != 50 {
		t.Errorf("Replace: %+v", s.Snapshot())
	}
}

func TestFFB_Bias(t *testing.T) {
	f := DefaultFFB()
	f.Algorithm = DetailBoosterOn60Hz
	if f.Bias() != f.DetailBoostBias {
		t.Error("DetailBooster* использует detail_boost_bias")
	}
	f.Algorithm = CompressionBlend
	if f.Bias() != f.DeltaLimiterBias {
		t.Error("CompressionBlend использует delta_limiter_bias")
	}
}

func TestAlgorithm_Unpack(t *testing.T) {
	var a Algorithm
	if err := a.Unpack("delta_limiter_on_60hz"); err != nil || a != DeltaLimiterOn60Hz {
		t.Errorf("Unpack = %v, %v", a, err)
	}
	if err := a.Unpack("warp"); err == nil {
		t.Error("ожидали ошибку для неизвестного алгоритма")
	}
}

func TestNormalize(t *testing.T) {
	c := &Config{FFB: DefaultFFB()}
	c.FFB.MaxForce = 500
	Normalize(c)
	if c.Clock.Period != "2ms" || c.Device.Serial.Baud != 115200 {
		t.Errorf("пустые значения не заполнены: %+v", c.Clock)
	}
	if c.FFB.MaxForce != 99.9 {
		t.Errorf("max force = %v, want 99.9", c.FFB.MaxForce)
	}
}
