// Package telemetry — приём кадров симулятора и передача снимков процессору FFB.
//
// Писатель один (колбэк симулятора или replay), читатель один (поток таймера).
// Снимок публикуется целиком через atomic.Pointer: читатель видит последний кадр,
// очереди нет.
package telemetry

// Константы кадра
const (
	Substeps      = 6 // сэмплов 360 Гц на кадр 60 Гц
	ShockChannels = 6
	WindowSize    = Substeps + 2
	Gravity       = 9.80665
)

// Surface — положение машины на трассе (как PlayerTrackSurface симулятора)
type Surface int

const (
	NotInWorld Surface = iota - 1
	OffTrack
	InPitStall
	ApproachingPits
	OnTrack
)

func (s Surface) String() string {
	switch s {
	case NotInWorld:
		return "not_in_world"
	case OffTrack:
		return "off_track"
	case InPitStall:
		return "in_pit_stall"
	case ApproachingPits:
		return "approaching_pits"
	case OnTrack:
		return "on_track"
	default:
		return "unknown"
	}
}

// Frame — один колбэк симулятора. Отсутствующие каналы остаются нулями.
type Frame struct {
	Connected bool
	OnTrack   bool // IsOnTrack: машина на трассе, торк используется
	Surface   Surface
	NativeFFB bool // включён собственный FFB симулятора

	TickCount int
	TickRate  float64 // тиков симулятора в секунду; 0 → 60

	VelocityX, VelocityY float64 // м/с, система координат машины

	SteeringAngle    float64 // рад
	SteeringAngleMax float64 // рад

	Torque        [Substeps]float64 // Н·м, 360 Гц
	ShockVelocity [ShockChannels][Substeps]float64
}

// Window — 8 опорных точек сплайна: [0] последний сэмпл прошлого окна,
// [1..6] новые сэмплы, [7] копия [6].
type Window [WindowSize]float64

// Snapshot — неизменяемый снимок для процессора
type Snapshot struct {
	Seq       uint64
	Window    Window
	Connected bool
	UseTorque bool // торк валиден: подключены и на трассе
	Surface   Surface
	NativeFFB bool

	Speed            float64 // м/с
	SteeringAngle    float64
	SteeringAngleMax float64

	WheelPosition float64 // [-1, 1], от устройства
	WheelVelocity float64 // 1/с, от устройства

	GForce           float64 // последнее ускорение для crash protection
	MaxShockVelocity float64
}

// Sample60 — сэмпл "60 Гц" (последний подшаг кадра)
func (w *Window) Sample60() float64 {
	return w[Substeps]
}
