// Package devselect — выбор устройства FFB: preferred → fallback → первое доступное.
package devselect

import (
	"path"
	"strings"

	"github.com/shiwa/ffb-sync/internal/device"
)

// Election — выбор активного устройства из списков preferred и fallback.
// Элемент списка — точный id или шаблон ("hid:*", "serial:/dev/ttyACM*").
type Election struct {
	preferred []string
	fallback  []string
	anyDevice bool
}

// NewElection создаёт выборщик. При anyDevice = true, если списки ничего не дали,
// берётся первое доступное устройство.
func NewElection(preferred, fallback []string, anyDevice bool) *Election {
	return &Election{
		preferred: preferred,
		fallback:  fallback,
		anyDevice: anyDevice,
	}
}

// Select выбирает лучшее доступное устройство; "" если подходящих нет
func (e *Election) Select(available []device.Info) string {
	for _, list := range [][]string{e.preferred, e.fallback} {
		for _, pattern := range list {
			if id := match(pattern, available); id != "" {
				return id
			}
		}
	}
	if e.anyDevice && len(available) > 0 {
		return available[0].ID
	}
	return ""
}

func match(pattern string, available []device.Info) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return ""
	}
	for _, d := range available {
		if strings.EqualFold(d.ID, pattern) {
			return d.ID
		}
		if ok, err := path.Match(pattern, d.ID); err == nil && ok {
			return d.ID
		}
	}
	return ""
}
