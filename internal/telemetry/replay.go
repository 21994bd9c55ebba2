package telemetry

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shiwa/ffb-sync/internal/logger"
)

// Replay — записанные кадры телеметрии (CSV), воспроизводятся вместо симулятора.
//
// Колонки (по заголовку, порядок любой, отсутствующие = 0):
//
//	tick, tick_rate, connected, on_track, surface, native_ffb,
//	velocity_x, velocity_y, steering_angle, steering_angle_max,
//	torque_0..torque_5, shock_<channel>_<substep> (0..5)
type Replay struct {
	Frames []Frame
}

// LoadReplay читает CSV-файл
func LoadReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()
	r, err := ParseReplay(f)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}
	return r, nil
}

// ParseReplay разбирает CSV из r
func ParseReplay(r io.Reader) (*Replay, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["torque_0"]; !ok {
		return nil, errors.New("missing required column \"torque_0\"")
	}

	rep := &Replay{}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		col := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		fr := Frame{
			Connected: true,
			Surface:   OnTrack,
			TickCount: len(rep.Frames),
		}
		if v := col("tick"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: tick %q: %w", line, v, err)
			}
			fr.TickCount = n
		}
		if v := col("surface"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: surface %q: %w", line, v, err)
			}
			fr.Surface = Surface(n)
		}
		fr.TickRate = parseFloat(col("tick_rate"))
		fr.Connected = parseBool(col("connected"), true)
		fr.OnTrack = parseBool(col("on_track"), true)
		fr.NativeFFB = parseBool(col("native_ffb"), false)
		fr.VelocityX = parseFloat(col("velocity_x"))
		fr.VelocityY = parseFloat(col("velocity_y"))
		fr.SteeringAngle = parseFloat(col("steering_angle"))
		fr.SteeringAngleMax = parseFloat(col("steering_angle_max"))
		for i := 0; i < Substeps; i++ {
			fr.Torque[i] = parseFloat(col("torque_" + strconv.Itoa(i)))
			for c := 0; c < ShockChannels; c++ {
				fr.ShockVelocity[c][i] = parseFloat(col(fmt.Sprintf("shock_%d_%d", c, i)))
			}
		}
		rep.Frames = append(rep.Frames, fr)
	}
	if len(rep.Frames) == 0 {
		return nil, errors.New("no frames")
	}
	return rep, nil
}

// Run публикует кадры в in с частотой rate (Гц) до отмены ctx.
// При loop = false после последнего кадра отправляется отключение.
func (r *Replay) Run(ctx context.Context, in *Ingest, rate float64, loop bool) error {
	if rate <= 0 {
		rate = defaultTickRate
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	logger.Info("telemetry: replay %d frames at %.0f Hz (loop=%v)", len(r.Frames), rate, loop)
	base := 0
	i := 0
	for {
		select {
		case <-ctx.Done():
			in.Disconnect()
			return ctx.Err()
		case <-ticker.C:
		}
		if i == len(r.Frames) {
			if !loop {
				in.Disconnect()
				return nil
			}
			base += r.Frames[len(r.Frames)-1].TickCount + 1
			i = 0
		}
		fr := r.Frames[i]
		fr.TickCount += base
		in.Publish(&fr)
		i++
	}
}

// parseFloat — невалидное или нечисловое (NaN, Inf) значение считается нулём (как пропавший канал)
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}
