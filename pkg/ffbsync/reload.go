package ffbsync

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/shiwa/ffb-sync/internal/config"
	"github.com/shiwa/ffb-sync/internal/logger"
)

// settingsReplacer — config.Store
type settingsReplacer interface {
	Replace(f config.FFB)
}

// deviceSwitcher — ffb.Processor
type deviceSwitcher interface {
	SetNextDevice(id string)
}

// reloader перечитывает конфиг по SIGHUP и при записи в файл.
// Применяются секция ffb и device.id; остальное требует перезапуска.
type reloader struct {
	path   string
	store  settingsReplacer
	proc   deviceSwitcher
	device string
}

func (r *reloader) run(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	// следим за каталогом: редакторы часто заменяют файл через rename
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return err
	}
	target := filepath.Clean(r.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-hup:
			logger.Info("ffbsync: SIGHUP, reloading %s", r.path)
			r.reload()
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			r.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("ffbsync: config watcher: %v", err)
		}
	}
}

// reload применяет файл; ошибка разбора оставляет прежние настройки
func (r *reloader) reload() bool {
	data, err := os.ReadFile(r.path)
	if err != nil || len(data) == 0 {
		// запись через ">" сначала обнуляет файл
		return false
	}
	cfg, err := config.Parse(data)
	if err != nil {
		logger.Warn("ffbsync: reload %s: %v", r.path, err)
		return false
	}
	r.store.Replace(cfg.FFB)
	if id := cfg.Device.ID; id != "" && id != r.device {
		logger.Info("ffbsync: device %s -> %s", r.device, id)
		r.device = id
		r.proc.SetNextDevice(id)
	}
	logger.Debug("ffbsync: settings reloaded (algorithm %s, max force %.1f)", cfg.FFB.Algorithm, cfg.FFB.MaxForce)
	return true
}
