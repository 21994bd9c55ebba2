// Package wire — кадры протокола последовательного руля (прошивки DIY direct-drive баз).
//
// Формат кадра: sync(2) | class | id | length(2, LE) | payload | ckA ckB.
// Контрольная сумма — 8-битный Fletcher по class..payload (как в UBX).
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Sync bytes
const (
	Sync1 = 0xA5
	Sync2 = 0x5A
)

// HeaderSize — sync + class + id + length
const HeaderSize = 6

// MaxPayload ограничивает длину payload при чтении (защита от мусора в линии)
const MaxPayload = 256

// Классы и ID сообщений
const (
	ClassFFB   = 0x10
	IDConstant = 0x01 // магнитуда постоянной силы, int16 LE
	IDStart    = 0x02
	IDStop     = 0x03

	ClassInput = 0x20
	IDAxis     = 0x01 // raw, min, max — int32 LE
)

// AxisSize — размер payload INPUT-AXIS
const AxisSize = 12

// ErrChecksum — контрольная сумма не совпала
var ErrChecksum = errors.New("wire: checksum mismatch")

// Header — заголовок кадра
type Header struct {
	Class  uint8
	ID     uint8
	Length uint16
}

// Axis — отчёт о положении оси руля
type Axis struct {
	Raw, Min, Max int32
}

// Checksum вычисляет контрольную сумму (без sync bytes)
func Checksum(data []byte) (ckA, ckB uint8) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// EncodePacket собирает полный кадр: header + payload + checksum
func EncodePacket(class, id uint8, payload []byte) []byte {
	buf := make([]byte, 0, HeaderSize+len(payload)+2)
	buf = append(buf, Sync1, Sync2, class, id)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	ckA, ckB := Checksum(buf[2:])
	return append(buf, ckA, ckB)
}

// ParseHeader парсит заголовок из буфера (минимум HeaderSize байт)
func ParseHeader(buf []byte) (h Header, ok bool) {
	if len(buf) < HeaderSize || buf[0] != Sync1 || buf[1] != Sync2 {
		return Header{}, false
	}
	return Header{
		Class:  buf[2],
		ID:     buf[3],
		Length: binary.LittleEndian.Uint16(buf[4:6]),
	}, true
}

// VerifyChecksum проверяет контрольную сумму полного кадра
func VerifyChecksum(packet []byte) bool {
	if len(packet) < HeaderSize+2 {
		return false
	}
	ckA, ckB := Checksum(packet[2 : len(packet)-2])
	return packet[len(packet)-2] == ckA && packet[len(packet)-1] == ckB
}

// Payload возвращает payload из полного кадра (без header и checksum)
func Payload(packet []byte) []byte {
	h, ok := ParseHeader(packet)
	if !ok || len(packet) < HeaderSize+int(h.Length)+2 {
		return nil
	}
	return packet[HeaderSize : HeaderSize+int(h.Length)]
}

// ConstantForce — кадр FFB-CONSTANT с магнитудой в единицах устройства
func ConstantForce(magnitude int16) []byte {
	var p [2]byte
	binary.LittleEndian.PutUint16(p[:], uint16(magnitude))
	return EncodePacket(ClassFFB, IDConstant, p[:])
}

// Start — кадр FFB-START (включить выход эффекта)
func Start() []byte {
	return EncodePacket(ClassFFB, IDStart, nil)
}

// Stop — кадр FFB-STOP (снять момент)
func Stop() []byte {
	return EncodePacket(ClassFFB, IDStop, nil)
}

// EncodeAxis — кадр INPUT-AXIS (используется эмуляторами и тестами)
func EncodeAxis(a Axis) []byte {
	p := make([]byte, AxisSize)
	binary.LittleEndian.PutUint32(p[0:], uint32(a.Raw))
	binary.LittleEndian.PutUint32(p[4:], uint32(a.Min))
	binary.LittleEndian.PutUint32(p[8:], uint32(a.Max))
	return EncodePacket(ClassInput, IDAxis, p)
}

// ParseAxis парсит payload INPUT-AXIS
func ParseAxis(payload []byte) (Axis, bool) {
	if len(payload) < AxisSize {
		return Axis{}, false
	}
	a := Axis{
		Raw: int32(binary.LittleEndian.Uint32(payload[0:])),
		Min: int32(binary.LittleEndian.Uint32(payload[4:])),
		Max: int32(binary.LittleEndian.Uint32(payload[8:])),
	}
	if a.Max <= a.Min {
		return Axis{}, false
	}
	return a, true
}

// ReadPacket читает один кадр: ждёт sync, затем заголовок, payload и checksum.
func ReadPacket(r io.Reader) ([]byte, error) {
	var win [2]byte
	for {
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		win[0], win[1] = win[1], b[0]
		if win[0] == Sync1 && win[1] == Sync2 {
			break
		}
	}
	rest := make([]byte, 4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, err
	}
	length := int(binary.LittleEndian.Uint16(rest[2:4]))
	if length > MaxPayload {
		return nil, fmt.Errorf("wire: payload too long (%d)", length)
	}
	buf := make([]byte, 0, HeaderSize+length+2)
	buf = append(buf, Sync1, Sync2)
	buf = append(buf, rest...)
	tail := make([]byte, length+2)
	if _, err := io.ReadFull(r, tail); err != nil {
		return nil, err
	}
	buf = append(buf, tail...)
	if !VerifyChecksum(buf) {
		return buf, ErrChecksum
	}
	return buf, nil
}
