//go:build linux

package device

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.einride.tech/can/pkg/socketcan"

	"github.com/shiwa/ffb-sync/internal/logger"
)

const (
	canDialTimeout = time.Second
	canTxTimeout   = 5 * time.Millisecond
)

// Open подключается к интерфейсу socketcan и начинает слушать обратную связь
func (b *CANBackend) Open(address string) (Effect, error) {
	ctx, cancel := context.WithTimeout(context.Background(), canDialTimeout)
	defer cancel()
	conn, err := socketcan.DialContext(ctx, "can", address)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", address, err)
	}
	e := &canEffect{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
		rx:   socketcan.NewReceiver(conn),
		cmd:  b.cfg.CommandID,
		fb:   b.cfg.FeedbackID,
	}
	e.wg.Add(1)
	go e.readLoop()
	return e, nil
}

type canEffect struct {
	conn net.Conn
	tx   *socketcan.Transmitter
	rx   *socketcan.Receiver
	cmd  uint32
	fb   uint32
	axis axisCache
	wg   sync.WaitGroup
}

func (e *canEffect) SetMagnitude(m int) error {
	ctx, cancel := context.WithTimeout(context.Background(), canTxTimeout)
	defer cancel()
	return e.tx.TransmitFrame(ctx, encodeTorqueFrame(e.cmd, m))
}

func (e *canEffect) Axis() (raw, min, max int, ok bool) {
	return e.axis.load()
}

func (e *canEffect) readLoop() {
	defer e.wg.Done()
	for e.rx.Receive() {
		if pos, ok := decodePositionFrame(e.rx.Frame(), e.fb); ok {
			e.axis.store(pos, 0, canPositionMax)
		}
	}
	if err := e.rx.Err(); err != nil {
		logger.Debug("device: can receive: %v", err)
	}
}

func (e *canEffect) Close() error {
	_ = e.SetMagnitude(0)
	err := e.conn.Close()
	e.wg.Wait()
	return err
}
