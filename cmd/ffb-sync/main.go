// ffb-sync — ядро force feedback для симрейсинга: телеметрия симулятора → момент на руле.
//
// Возможности:
//   - Таймер ~2 мс (timerfd на Linux), пересэмплирование телеметрии 60 Гц → 360 Гц
//   - Алгоритмы: Native60Hz/360Hz, DetailBooster, DeltaLimiter, CompressionBlend
//   - Защита от ударов и поребриков, fade, soft lock, трение
//   - Устройства: USB HID PID, последовательные базы, CAN-приводы, I2C (ЦАП + датчик угла)
//   - Диагностика: WebSocket и MQTT
//
// Использование:
//
//	ffb-sync -list                           — показать доступные устройства
//	ffb-sync -run -config ffb-sync.yml       — запуск daemon
//	ffb-sync -run -replay lap.csv -device serial:/dev/ttyACM0
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shiwa/ffb-sync/internal/logger"
	pkgconfig "github.com/shiwa/ffb-sync/pkg/config"
	"github.com/shiwa/ffb-sync/pkg/ffbsync"
)

const defaultConfigPath = "ffb-sync.yml"

func main() {
	run := flag.Bool("run", false, "запуск daemon: таймер + процессор FFB + устройство")
	list := flag.Bool("list", false, "показать доступные FFB-устройства и выйти")
	configPath := flag.String("config", "", "путь к YAML конфигу (по умолчанию "+defaultConfigPath+")")
	deviceID := flag.String("device", "", "устройство <backend>:<address> (переопределяет config)")
	replay := flag.String("replay", "", "CSV с записанной телеметрией (переопределяет config)")
	quiet := flag.Bool("quiet", false, "меньше вывода")
	verbose := flag.Bool("verbose", false, "отладочный вывод")
	flag.Parse()

	logger.Quiet = *quiet
	logger.Verbose = *verbose

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *deviceID != "" {
		cfg.Device.ID = *deviceID
	}
	if *replay != "" {
		cfg.Telemetry.Replay = *replay
	}

	if *list {
		listDevices(cfg)
		return
	}
	if *run {
		runDaemonWithShutdown(cfg, path, *quiet)
		return
	}

	// По умолчанию: только список устройств
	listDevices(cfg)
	if !*quiet {
		fmt.Println("ffb-sync: для запуска daemon используйте -run.")
	}
}

// loadConfig читает конфиг; без -config отсутствующий файл по умолчанию не ошибка.
// Возвращает путь файла для перечитывания ("" если файла нет).
func loadConfig(path string) (*pkgconfig.Config, string, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && !explicit {
		return pkgconfig.Default(), "", nil
	}
	cfg, err := pkgconfig.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func listDevices(cfg *pkgconfig.Config) {
	devices := ffbsync.ListDevices(cfg)
	if len(devices) == 0 {
		fmt.Println("FFB-устройства не найдены")
		return
	}
	for _, d := range devices {
		fmt.Printf("%-40s %s\n", d.ID, d.Name)
	}
}

// runDaemonWithShutdown запускает ffbsync.RunDaemon; по SIGINT/SIGTERM контекст отменяется,
// устройство освобождается с нулевым моментом.
func runDaemonWithShutdown(cfg *pkgconfig.Config, path string, quiet bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("получен сигнал %v, завершение...", sig)
		cancel()
	}()

	var opts []ffbsync.Option
	if path != "" {
		opts = append(opts, ffbsync.WithConfigFile(path))
	}
	if err := ffbsync.RunDaemon(ctx, cfg, quiet, opts...); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
