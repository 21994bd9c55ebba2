package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEffect struct {
	mock.Mock
}

func (m *mockEffect) SetMagnitude(v int) error {
	return m.Called(v).Error(0)
}

func (m *mockEffect) Axis() (int, int, int, bool) {
	a := m.Called()
	return a.Int(0), a.Int(1), a.Int(2), a.Bool(3)
}

func (m *mockEffect) Close() error {
	return m.Called().Error(0)
}

type fakeBackend struct {
	name    string
	eff     Effect
	openErr error
	listErr error
	list    []Info
	opened  []string
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) List() ([]Info, error) { return b.list, b.listErr }

func (b *fakeBackend) Open(address string) (Effect, error) {
	b.opened = append(b.opened, address)
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.eff, nil
}

func TestParseID(t *testing.T) {
	b, a, err := ParseID("serial:/dev/ttyACM0")
	require.NoError(t, err)
	require.Equal(t, "serial", b)
	require.Equal(t, "/dev/ttyACM0", a)

	b, a, err = ParseID("HID:6f0b6c52-3f1e-4d0a-9a43-1e6d2f1a8c11")
	require.NoError(t, err)
	require.Equal(t, "hid", b)
	require.Equal(t, "6f0b6c52-3f1e-4d0a-9a43-1e6d2f1a8c11", a)

	_, _, err = ParseID("")
	require.ErrorIs(t, err, ErrNoDevice)
	for _, bad := range []string{"serial", ":x", "can:"} {
		_, _, err = ParseID(bad)
		require.Error(t, err, bad)
	}
}

func TestMagnitude(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{0.5, 5000},
		{-0.25, -2500},
		{1.7, NominalMax},
		{-3, -NominalMax},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Magnitude(tt.in), "Magnitude(%v)", tt.in)
	}
}

func TestDriver_Lifecycle(t *testing.T) {
	eff := &mockEffect{}
	eff.On("SetMagnitude", 0).Return(nil)
	eff.On("SetMagnitude", 5000).Return(nil).Once()
	eff.On("SetMagnitude", -NominalMax).Return(nil).Once()
	eff.On("Close").Return(nil).Once()

	fb := &fakeBackend{name: "serial", eff: eff}
	d := NewDriver(fb)
	require.Equal(t, StatusIdle, d.Status())

	require.NoError(t, d.Initialize("serial:COM3"))
	require.True(t, d.Held())
	require.Equal(t, "serial:COM3", d.ID())
	require.Equal(t, StatusHeld, d.Status())
	require.Equal(t, []string{"COM3"}, fb.opened)

	d.UpdateEffect(0.5)
	require.Equal(t, 5000, d.LastMagnitude())
	d.UpdateEffect(-2)
	require.Equal(t, -NominalMax, d.LastMagnitude())

	d.Shutdown()
	require.False(t, d.Held())
	require.Equal(t, StatusIdle, d.Status())
	d.Shutdown() // повторно — без эффекта

	eff.AssertExpectations(t)
}

func TestDriver_NoDevice(t *testing.T) {
	d := NewDriver()
	d.UpdateEffect(1) // без устройства — ничего не происходит
	require.ErrorIs(t, d.Initialize(""), ErrNoDevice)
	require.Equal(t, StatusIdle, d.Status())

	err := d.Initialize("usb:1")
	require.ErrorIs(t, err, ErrUnknownBackend)
	require.Equal(t, StatusFaulted, d.Status())
	require.False(t, d.Held())

	pos, vel := d.PollPosition(0.016)
	require.Zero(t, pos)
	require.Zero(t, vel)
}

func TestDriver_OpenFailure(t *testing.T) {
	fb := &fakeBackend{name: "can", openErr: errors.New("no such device")}
	d := NewDriver(fb)
	require.Error(t, d.Initialize("can:can0"))
	require.Equal(t, StatusFaulted, d.Status())
	require.False(t, d.Held())
}

func TestDriver_UpdateFailureReleases(t *testing.T) {
	eff := &mockEffect{}
	eff.On("SetMagnitude", 0).Return(nil)
	eff.On("SetMagnitude", 1000).Return(errors.New("device removed")).Once()
	eff.On("Close").Return(nil).Once()

	d := NewDriver(&fakeBackend{name: "hid", eff: eff})
	require.NoError(t, d.Initialize("hid:/dev/hidraw3"))

	d.UpdateEffect(0.1)
	require.False(t, d.Held(), "после ошибки устройство освобождается")
	require.Equal(t, StatusFaulted, d.Status())

	d.UpdateEffect(0.1) // без повторов
	eff.AssertExpectations(t)
}

func TestDriver_PollPosition(t *testing.T) {
	eff := &mockEffect{}
	eff.On("SetMagnitude", 0).Return(nil)
	eff.On("Axis").Return(0, -100, 100, true).Once()
	eff.On("Axis").Return(50, -100, 100, true).Once()
	eff.On("Axis").Return(500, -100, 100, true).Once()
	eff.On("Axis").Return(0, 0, 0, false).Once()

	d := NewDriver(&fakeBackend{name: "i2c", eff: eff})
	require.NoError(t, d.Initialize("i2c:1"))

	pos, vel := d.PollPosition(0.5)
	require.InDelta(t, 0, pos, 1e-12)
	require.Zero(t, vel, "первый опрос после захвата — без скорости")

	pos, vel = d.PollPosition(0.5)
	require.InDelta(t, 0.5, pos, 1e-12)
	require.InDelta(t, 1.0, vel, 1e-12)

	pos, _ = d.PollPosition(0.5)
	require.InDelta(t, 1.0, pos, 1e-12, "значение за пределами диапазона ограничивается")

	pos2, vel2 := d.PollPosition(0.5)
	require.Equal(t, pos, pos2, "без показания — прошлые значения")
	require.InDelta(t, 1.0, vel2, 1e-12)
}

func TestDriver_ReacquireReleasesPrevious(t *testing.T) {
	first := &mockEffect{}
	first.On("SetMagnitude", 0).Return(nil)
	first.On("Close").Return(nil).Once()
	second := &mockEffect{}
	second.On("SetMagnitude", 0).Return(nil)

	fb := &fakeBackend{name: "serial", eff: first}
	d := NewDriver(fb)
	require.NoError(t, d.Initialize("serial:a"))
	fb.eff = second
	require.NoError(t, d.Initialize("serial:b"))
	require.Equal(t, "serial:b", d.ID())
	first.AssertExpectations(t)
}

func TestDriver_Available(t *testing.T) {
	d := NewDriver(
		&fakeBackend{name: "serial", list: []Info{{ID: "serial:COM3", Backend: "serial"}}},
		&fakeBackend{name: "hid", listErr: errors.New("hid init")},
		&fakeBackend{name: "can", list: []Info{{ID: "can:can0", Backend: "can"}}},
	)
	got := d.Available()
	require.Len(t, got, 2)
	require.Equal(t, "can:can0", got[0].ID)
	require.Equal(t, "serial:COM3", got[1].ID)
}
