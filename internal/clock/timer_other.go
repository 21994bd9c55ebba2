//go:build !linux

package clock

import "time"

// tickerTimer — time.Ticker на платформах без timerfd
type tickerTimer struct {
	t *time.Ticker
}

func platformTimer(period time.Duration) (Timer, error) {
	return &tickerTimer{t: time.NewTicker(period)}, nil
}

func (t *tickerTimer) Wait() error {
	<-t.t.C
	return nil
}

func (t *tickerTimer) Close() error {
	t.t.Stop()
	return nil
}

// setPriority — приоритет потока не меняется
func setPriority(nice int) error {
	_ = nice
	return nil
}
