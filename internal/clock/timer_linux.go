//go:build linux

package clock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// timerfd — периодический таймер ядра на CLOCK_MONOTONIC
type timerfd struct {
	fd  int
	buf [8]byte
}

func platformTimer(period time.Duration) (Timer, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("timerfd_create: %w", err)
	}
	ts := unix.NsecToTimespec(period.Nanoseconds())
	spec := unix.ItimerSpec{Interval: ts, Value: ts}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("timerfd_settime: %w", err)
	}
	return &timerfd{fd: fd}, nil
}

// Wait читает счётчик срабатываний (пропущенные срабатывания схлопываются)
func (t *timerfd) Wait() error {
	for {
		n, err := unix.Read(t.fd, t.buf[:])
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return err
		}
		if n != len(t.buf) || binary.LittleEndian.Uint64(t.buf[:]) == 0 {
			continue
		}
		return nil
	}
}

func (t *timerfd) Close() error {
	return unix.Close(t.fd)
}

// setPriority меняет nice текущего потока (для отрицательных значений нужен CAP_SYS_NICE)
func setPriority(nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), nice)
}
