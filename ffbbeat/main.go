// Ffbbeat — Beat на базе Elastic Beats v7 (libbeat) для ядра force feedback.
// Запускает ffb-sync и публикует диагностику (процессор, таймер, устройство) событиями.
package main

import (
	"os"

	"github.com/elastic/beats/v7/libbeat/cmd"
	"github.com/elastic/beats/v7/libbeat/cmd/instance"
	"github.com/shiwa/ffb-sync/ffbbeat/beater"
)

func main() {
	rootCmd := cmd.GenRootCmdWithSettings(beater.New, instance.Settings{
		Name: "ffbbeat",
	})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
