package devselect

import (
	"testing"

	"github.com/shiwa/ffb-sync/internal/device"
)

func TestElection_Select(t *testing.T) {
	available := []device.Info{
		{ID: "hid:6f0b6c52-3f1e-4d0a-9a43-1e6d2f1a8c11", Backend: "hid"},
		{ID: "serial:/dev/ttyACM0", Backend: "serial"},
		{ID: "can:can0", Backend: "can"},
	}

	t.Run("no devices", func(t *testing.T) {
		e := NewElection([]string{"can:can0"}, nil, true)
		if got := e.Select(nil); got != "" {
			t.Errorf("expected empty id, got %q", got)
		}
	})

	t.Run("preferred available", func(t *testing.T) {
		e := NewElection([]string{"can:can0"}, []string{"serial:/dev/ttyACM0"}, false)
		if got := e.Select(available); got != "can:can0" {
			t.Errorf("expected preferred can:can0, got %q", got)
		}
		// повторный выбор по тому же списку стабилен
		if got := e.Select(available[1:]); got != "can:can0" {
			t.Errorf("expected stable can:can0, got %q", got)
		}
	})

	t.Run("preferred missing fallback pattern", func(t *testing.T) {
		e := NewElection([]string{"can:can1"}, []string{"serial:/dev/ttyACM*"}, false)
		if got := e.Select(available); got != "serial:/dev/ttyACM0" {
			t.Errorf("expected fallback serial, got %q", got)
		}
	})

	t.Run("backend wildcard", func(t *testing.T) {
		e := NewElection([]string{"hid:*"}, nil, false)
		if got := e.Select(available); got != available[0].ID {
			t.Errorf("expected hid device, got %q", got)
		}
	})

	t.Run("none matched without any", func(t *testing.T) {
		e := NewElection([]string{"i2c:1"}, nil, false)
		if got := e.Select(available); got != "" {
			t.Errorf("expected empty id, got %q", got)
		}
	})

	t.Run("first available", func(t *testing.T) {
		e := NewElection(nil, nil, true)
		if got := e.Select(available); got != available[0].ID {
			t.Errorf("expected first device, got %q", got)
		}
	})
}
