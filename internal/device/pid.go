package device

import "encoding/binary"

// USB HID PID (Physical Interface Device) — отчёты, используемые для постоянной силы.
// Report ID совпадают с распространёнными дескрипторами DIY-баз.
const (
	pidSetEffect        = 0x01
	pidSetConstantForce = 0x05
	pidEffectOperation  = 0x0A
	pidDeviceControl    = 0x0C
	pidCreateNewEffect  = 0x11 // feature
	pidBlockLoad        = 0x12 // feature

	pidEffectConstant = 0x01

	pidOpStart = 0x01
	pidOpStop  = 0x03

	pidControlEnableActuators = 0x01
	pidControlStopAll         = 0x04

	pidBlockLoadSuccess = 0x01

	pidDurationInfinite = 0xFFFF
)

// pidCreateEffect — feature-отчёт Create New Effect (тип: постоянная сила)
func pidCreateEffect() []byte {
	return []byte{pidCreateNewEffect, pidEffectConstant, 0, 0}
}

// pidParseBlockLoad разбирает ответ Block Load: индекс блока эффекта
func pidParseBlockLoad(b []byte) (block uint8, ok bool) {
	if len(b) < 3 || b[0] != pidBlockLoad || b[2] != pidBlockLoadSuccess || b[1] == 0 {
		return 0, false
	}
	return b[1], true
}

// pidSetEffectReport — Set Effect: бесконечная длительность, gain 255, только ось X
func pidSetEffectReport(block uint8) []byte {
	b := make([]byte, 17)
	b[0] = pidSetEffect
	b[1] = block
	b[2] = pidEffectConstant
	binary.LittleEndian.PutUint16(b[3:], pidDurationInfinite)
	// trigger repeat, sample period, start delay = 0
	b[11] = 0xFF // gain
	b[12] = 0xFF // trigger button: нет
	b[13] = 0x01 // axes enable: X
	// direction X/Y = 0
	return b
}

// pidConstantForceReport — Set Constant Force с магнитудой ±NominalMax
func pidConstantForceReport(block uint8, magnitude int) []byte {
	b := make([]byte, 4)
	b[0] = pidSetConstantForce
	b[1] = block
	binary.LittleEndian.PutUint16(b[2:], uint16(int16(clampInt(magnitude, -NominalMax, NominalMax))))
	return b
}

// pidOperationReport — Effect Operation (start/stop)
func pidOperationReport(block, op uint8) []byte {
	return []byte{pidEffectOperation, block, op, 0xFF}
}

// pidControlReport — PID Device Control
func pidControlReport(ctrl uint8) []byte {
	return []byte{pidDeviceControl, ctrl}
}
