package device

import (
	"encoding/binary"
	"net"
	"strings"

	"go.einride.tech/can"

	"github.com/shiwa/ffb-sync/internal/config"
)

// Кадры CAN-привода: команда момента и обратная связь по положению
const (
	canPositionMax = 32767
	canFrameLen    = 8
)

// CANBackend — direct-drive привод на шине CAN (socketcan)
type CANBackend struct {
	cfg config.CANConfig
}

// NewCANBackend создаёт бэкенд can
func NewCANBackend(cfg config.CANConfig) *CANBackend {
	return &CANBackend{cfg: cfg}
}

// Name — "can"
func (b *CANBackend) Name() string { return "can" }

// List перечисляет CAN-интерфейсы (can*, vcan*)
func (b *CANBackend) List() ([]Info, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var out []Info
	for _, ifc := range ifaces {
		if !strings.HasPrefix(ifc.Name, "can") && !strings.HasPrefix(ifc.Name, "vcan") {
			continue
		}
		out = append(out, Info{
			ID:      FormatID(b.Name(), ifc.Name),
			Name:    "CAN " + ifc.Name,
			Backend: b.Name(),
		})
	}
	return out, nil
}

// encodeTorqueFrame — команда момента: int16 big-endian в байтах 0–1
func encodeTorqueFrame(id uint32, magnitude int) can.Frame {
	f := can.Frame{ID: id, Length: canFrameLen}
	binary.BigEndian.PutUint16(f.Data[0:2], uint16(int16(clampInt(magnitude, -NominalMax, NominalMax))))
	return f
}

// decodePositionFrame — положение uint16 big-endian в байтах 4–5 (0..32767)
func decodePositionFrame(f can.Frame, id uint32) (int, bool) {
	if f.ID != id || f.IsRemote || f.Length < 6 {
		return 0, false
	}
	pos := int(binary.BigEndian.Uint16(f.Data[4:6]))
	if pos > canPositionMax {
		pos = canPositionMax
	}
	return pos, true
}
