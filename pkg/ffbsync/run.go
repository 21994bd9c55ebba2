// Package ffbsync собирает ядро FFB (устройство, телеметрия, процессор, таймер)
// и необязательные приёмники диагностики. Используется из cmd/ffb-sync и Beat.
package ffbsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shiwa/ffb-sync/internal/clock"
	"github.com/shiwa/ffb-sync/internal/config"
	"github.com/shiwa/ffb-sync/internal/device"
	"github.com/shiwa/ffb-sync/internal/devselect"
	"github.com/shiwa/ffb-sync/internal/diag"
	"github.com/shiwa/ffb-sync/internal/ffb"
	"github.com/shiwa/ffb-sync/internal/logger"
	"github.com/shiwa/ffb-sync/internal/telemetry"
	pkgconfig "github.com/shiwa/ffb-sync/pkg/config"
)

// Report — снимок диагностики (процессор, часы, устройство)
type Report = diag.Report

// Option — параметр RunDaemon
type Option func(*options)

type options struct {
	configPath  string
	reportEvery time.Duration
	onReport    func(*Report)
	backends    []device.Backend
}

// WithConfigFile включает перечитывание файла по SIGHUP и при записи в него
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithReports вызывает fn со снимком диагностики каждые every
func WithReports(every time.Duration, fn func(*Report)) Option {
	return func(o *options) {
		o.reportEvery = every
		o.onReport = fn
	}
}

// ListDevices перечисляет устройства всех бэкендов из конфига
func ListDevices(cfg *pkgconfig.Config) []device.Info {
	return device.NewDriver(device.DefaultBackends(cfg.Device)...).Available()
}

// RunDaemon запускает ядро FFB до отмены ctx и возвращает ctx.Err().
// Устройство: device.id, иначе preferred → fallback → первое доступное.
func RunDaemon(ctx context.Context, cfg *pkgconfig.Config, quiet bool, opts ...Option) error {
	if cfg == nil {
		return errors.New("ffbsync: nil config")
	}
	logger.Quiet = quiet
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backends == nil {
		o.backends = device.DefaultBackends(cfg.Device)
	}

	store := config.NewStore(cfg.FFB)
	driver := device.NewDriver(o.backends...)
	defer driver.Shutdown()

	id := selectDevice(cfg.Device, driver)
	if id == "" {
		logger.Info("ffbsync: no force feedback device found, output disabled until one is selected")
	} else {
		logger.Info("ffbsync: device %s", id)
	}

	ingest := telemetry.New(store, driver)
	proc := ffb.New(store, ingest, driver, ffb.WithDevice(id))
	clk := clock.New(clock.Options{
		Period:   config.MustDuration(cfg.Clock.Period, clock.DefaultPeriod),
		Grace:    config.MustDuration(cfg.Clock.Grace, clock.DefaultGrace),
		Priority: cfg.Clock.Priority,
	}, proc.Update)
	ingest.OnConnect = func() {
		logger.Info("ffbsync: simulator connected")
		clk.Suspend(false)
	}
	ingest.OnDisconnect = func() {
		logger.Info("ffbsync: simulator disconnected")
		clk.Suspend(true)
	}
	clk.Start()
	defer clk.Stop()

	rec := diag.NewRecorder(func() diag.Report {
		return diag.Report{
			Processor: proc.Diagnostics(),
			Clock:     clk.Stats(),
			Device: diag.DeviceStatus{
				ID:        driver.ID(),
				Status:    driver.Status().String(),
				Magnitude: driver.LastMagnitude(),
			},
		}
	})

	var wg sync.WaitGroup
	spawn := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("ffbsync: %s: %v", name, err)
			}
		}()
	}

	if path := cfg.Telemetry.Replay; path != "" {
		rep, err := telemetry.LoadReplay(path)
		if err != nil {
			return err
		}
		spawn("replay", func() error {
			return rep.Run(ctx, ingest, cfg.Telemetry.Rate, cfg.Telemetry.Loop)
		})
	}

	d := cfg.Diagnostics
	if d.Listen != "" {
		srv := diag.NewServer(rec, proc, config.MustDuration(d.Interval, diag.DefaultInterval))
		spawn("diagnostics", func() error {
			return srv.ListenAndServe(ctx, d.Listen)
		})
	}
	if d.MQTT.Broker != "" {
		pub := diag.NewPublisher(diag.PublisherConfig{
			Broker:   d.MQTT.Broker,
			Topic:    d.MQTT.Topic,
			ClientID: d.MQTT.ClientID,
			Interval: config.MustDuration(d.MQTT.Interval, time.Second),
		}, rec)
		spawn("mqtt", func() error {
			return pub.Run(ctx)
		})
	}
	if o.onReport != nil {
		spawn("reports", func() error {
			return reportLoop(ctx, rec, o.reportEvery, o.onReport)
		})
	}
	if o.configPath != "" {
		r := &reloader{path: o.configPath, store: store, proc: proc, device: cfg.Device.ID}
		spawn("reload", func() error {
			return r.run(ctx)
		})
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// selectDevice — явный id из конфига или выбор среди доступных
func selectDevice(cfg pkgconfig.DeviceConfig, driver *device.Driver) string {
	if cfg.ID != "" {
		return cfg.ID
	}
	available := driver.Available()
	for _, d := range available {
		logger.Debug("ffbsync: available %s (%s)", d.ID, d.Name)
	}
	return devselect.NewElection(cfg.Preferred, cfg.Fallback, true).Select(available)
}

func reportLoop(ctx context.Context, rec *diag.Recorder, every time.Duration, fn func(*Report)) error {
	if every <= 0 {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			fn(rec.Sample())
		}
	}
}
