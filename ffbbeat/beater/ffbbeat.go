// Package beater реализует интерфейс Beater для Ffbbeat (libbeat v7).
package beater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/beats/v7/libbeat/beat"
	"github.com/elastic/beats/v7/libbeat/common"
	"github.com/elastic/beats/v7/libbeat/logp"
	pkgconfig "github.com/shiwa/ffb-sync/pkg/config"
	"github.com/shiwa/ffb-sync/pkg/ffbsync"
)

const defaultPeriod = 10 * time.Second

// settings — параметры самого Beat рядом с секциями ffb-sync
type settings struct {
	Period     time.Duration `config:"period"`
	ConfigFile string        `config:"config_file"`
}

// Ffbbeat реализует beat.Beater.
type Ffbbeat struct {
	done     chan struct{}
	config   *pkgconfig.Config
	settings settings
	client   beat.Client
}

// New создаёт Beater из конфигурации Beat.
// Секции ffbbeat.* совпадают с ffb-sync.yml; config_file — отдельный YAML вместо них.
func New(b *beat.Beat, cfg *common.Config) (beat.Beater, error) {
	sub, err := cfg.Child("ffbbeat", -1)
	if err != nil || sub == nil {
		return nil, fmt.Errorf("конфиг ffbbeat не найден: %v", err)
	}
	s := settings{Period: defaultPeriod}
	if err := sub.Unpack(&s); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфига ffbbeat: %w", err)
	}

	var config *pkgconfig.Config
	if s.ConfigFile != "" {
		config, err = pkgconfig.Load(s.ConfigFile)
		if err != nil {
			return nil, err
		}
	} else {
		config = pkgconfig.Default()
		if err := sub.Unpack(config); err != nil {
			return nil, fmt.Errorf("ошибка разбора конфига ffbbeat: %w", err)
		}
		pkgconfig.Normalize(config)
	}
	if s.Period <= 0 {
		s.Period = defaultPeriod
	}

	bt := &Ffbbeat{
		done:     make(chan struct{}),
		config:   config,
		settings: s,
	}
	return bt, nil
}

// Run запускает ядро FFB (ffb-sync) до Stop() и публикует диагностику каждые period.
func (bt *Ffbbeat) Run(b *beat.Beat) error {
	logp.Info("ffbbeat запущен (ядро FFB на базе ffb-sync)")
	var err error
	bt.client, err = b.Publisher.Connect()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-bt.done
		cancel()
	}()

	opts := []ffbsync.Option{ffbsync.WithReports(bt.settings.Period, bt.publish)}
	if bt.settings.ConfigFile != "" {
		opts = append(opts, ffbsync.WithConfigFile(bt.settings.ConfigFile))
	}
	err = ffbsync.RunDaemon(ctx, bt.config, true, opts...)
	if err != nil && !errors.Is(err, context.Canceled) {
		logp.Warn("ffbsync завершён: %v", err)
	}
	return nil
}

// Stop останавливает Run.
func (bt *Ffbbeat) Stop() {
	if bt.client != nil {
		bt.client.Close()
	}
	close(bt.done)
}

func (bt *Ffbbeat) publish(r *ffbsync.Report) {
	bt.client.Publish(beat.Event{
		Timestamp: r.Time,
		Fields:    reportFields(r),
	})
}

// reportFields — отчёт в поля события
func reportFields(r *ffbsync.Report) common.MapStr {
	p := r.Processor
	return common.MapStr{
		"type": "ffbbeat",
		"ffb": common.MapStr{
			"suspended":   p.Suspended,
			"fade":        p.Fade,
			"algorithm":   p.Algorithm,
			"max_force":   p.MaxForce,
			"peak":        p.Peak,
			"accumulator": p.Accumulator,
			"crash_scale": p.CrashScale,
			"curb_blend":  p.CurbBlend,
			"output": common.MapStr{
				"last":    p.Output,
				"avg":     p.OutputAvg,
				"std_dev": p.OutputStdDev,
			},
			"speed": p.Speed,
		},
		"clock": common.MapStr{
			"active":  r.Clock.Active,
			"ticks":   r.Clock.Ticks,
			"rate_hz": r.Clock.RateHz,
			"jitter_ms": common.MapStr{
				"min":     r.Clock.JitterMs.Min,
				"max":     r.Clock.JitterMs.Max,
				"avg":     r.Clock.JitterMs.Avg,
				"std_dev": r.Clock.JitterMs.StdDev,
			},
		},
		"device": common.MapStr{
			"id":        r.Device.ID,
			"status":    r.Device.Status,
			"magnitude": r.Device.Magnitude,
		},
	}
}
