package device

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.einride.tech/can"

	"github.com/shiwa/ffb-sync/internal/config"
	"github.com/shiwa/ffb-sync/internal/wire"
)

func TestPIDReports(t *testing.T) {
	t.Run("constant force", func(t *testing.T) {
		require.Equal(t, []byte{0x05, 2, 0x10, 0x27}, pidConstantForceReport(2, 10000))
		require.Equal(t, []byte{0x05, 2, 0xF0, 0xD8}, pidConstantForceReport(2, -20000))
	})
	t.Run("set effect", func(t *testing.T) {
		r := pidSetEffectReport(3)
		require.Equal(t, byte(pidSetEffect), r[0])
		require.Equal(t, byte(3), r[1])
		require.Equal(t, byte(pidEffectConstant), r[2])
		require.Equal(t, []byte{0xFF, 0xFF}, r[3:5])
		require.Equal(t, byte(0xFF), r[11])
	})
	t.Run("block load", func(t *testing.T) {
		blk, ok := pidParseBlockLoad([]byte{pidBlockLoad, 4, pidBlockLoadSuccess, 0, 0})
		require.True(t, ok)
		require.Equal(t, uint8(4), blk)
		_, ok = pidParseBlockLoad([]byte{pidBlockLoad, 4, 0x02})
		require.False(t, ok, "block load full")
	})
	t.Run("operation", func(t *testing.T) {
		require.Equal(t, []byte{0x0A, 1, pidOpStop, 0xFF}, pidOperationReport(1, pidOpStop))
	})
}

func TestParseHIDAxis(t *testing.T) {
	cfg := config.HIDConfig{InputReportID: 1, AxisOffset: 2, LogicalMin: -32768, LogicalMax: 32767}
	v, ok := parseHIDAxis([]byte{1, 0xAA, 0xBB, 0x18, 0xFC}, cfg)
	require.True(t, ok)
	require.Equal(t, -1000, v)

	_, ok = parseHIDAxis([]byte{2, 0, 0, 0x18, 0xFC}, cfg)
	require.False(t, ok, "чужой report id")
	_, ok = parseHIDAxis([]byte{1, 0, 0, 0x18}, cfg)
	require.False(t, ok, "короткий отчёт")
}

func TestInstanceID(t *testing.T) {
	a := InstanceID(0x046d, 0xc262, "ABC")
	require.Equal(t, a, InstanceID(0x046d, 0xc262, "ABC"))
	require.NotEqual(t, a, InstanceID(0x046d, 0xc262, "ABD"))
}

func TestCANFrames(t *testing.T) {
	f := encodeTorqueFrame(0x32, -2)
	require.Equal(t, uint32(0x32), f.ID)
	require.Equal(t, uint8(8), f.Length)
	require.Equal(t, []byte{0xFF, 0xFE}, f.Data[0:2])

	fb := can.Frame{ID: 0x97, Length: 8}
	fb.Data[4], fb.Data[5] = 0x40, 0x00
	pos, ok := decodePositionFrame(fb, 0x97)
	require.True(t, ok)
	require.Equal(t, 16384, pos)

	_, ok = decodePositionFrame(fb, 0x98)
	require.False(t, ok)
}

func TestI2CEncoding(t *testing.T) {
	require.Equal(t, 0x0ABC, as5600Angle([]byte{0xFA, 0xBC}))
	require.Equal(t, []byte{0x08, 0x00}, mcp4725Frame(0))
	require.Equal(t, []byte{0x0F, 0xFF}, mcp4725Frame(NominalMax))
	require.Equal(t, []byte{0x00, 0x01}, mcp4725Frame(-2*NominalMax))
}

// fakePort — порт: чтение из pipe (данные "от устройства"), запись в буфер
type fakePort struct {
	r  *io.PipeReader
	mu sync.Mutex
	w  bytes.Buffer
}

func (p *fakePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Write(b)
}

func (p *fakePort) Close() error { return p.r.Close() }

func (p *fakePort) written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.w.Bytes()...)
}

func TestWireEffect(t *testing.T) {
	pr, pw := io.Pipe()
	port := &fakePort{r: pr}
	e := newWireEffect(port)

	_, _, _, ok := e.Axis()
	require.False(t, ok)

	go func() {
		_, _ = pw.Write(wire.Start()) // чужой кадр пропускается
		_, _ = pw.Write(wire.EncodeAxis(wire.Axis{Raw: 300, Min: 0, Max: 1000}))
	}()
	require.Eventually(t, func() bool {
		_, _, _, ok := e.Axis()
		return ok
	}, time.Second, time.Millisecond)
	raw, lo, hi, _ := e.Axis()
	require.Equal(t, []int{300, 0, 1000}, []int{raw, lo, hi})

	require.NoError(t, e.SetMagnitude(-20000))
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	var want []byte
	want = append(want, wire.ConstantForce(-NominalMax)...)
	want = append(want, wire.ConstantForce(0)...)
	want = append(want, wire.Stop()...)
	require.Equal(t, want, port.written())
}
