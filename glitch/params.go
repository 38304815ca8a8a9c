// Package glitch implements the glitch engine's parameter model and the
// arm/disarm lifecycle controller described by the pulse engine, trigger
// sources, and clock generator.
package glitch

// CyclesPerSecond is the system clock domain all cycle counts are taken
// against (150MHz, per the pin layout and PIO clock source).
const CyclesPerSecond = 150_000_000

// PulseOverheadCycles is the fixed per-iteration instruction overhead of
// the pulse engine's width/gap hold loops (see glitchpio.PulseEngine).
// Subtracted transparently from user-requested width/gap so the realised
// high/low duration matches the requested cycle count.
const PulseOverheadCycles = 5

// TriggerVariant selects which PIO program (if any) arms the glitch.
type TriggerVariant uint8

const (
	TriggerNone TriggerVariant = iota
	TriggerGpioEdge
	TriggerUartByte
)

func (v TriggerVariant) String() string {
	switch v {
	case TriggerNone:
		return "NONE"
	case TriggerGpioEdge:
		return "GPIO"
	case TriggerUartByte:
		return "UART"
	default:
		return "UNKNOWN"
	}
}

// Edge selects which transition a GPIO edge trigger fires on.
type Edge uint8

const (
	EdgeRising Edge = iota
	EdgeFalling
)

func (e Edge) String() string {
	if e == EdgeFalling {
		return "FALLING"
	}
	return "RISING"
}

// Parameters is the user-writable glitch configuration. Mutation is only
// permitted while the controller is Disarmed (see Controller.SetXxx).
type Parameters struct {
	PauseCycles  uint32
	WidthCycles  uint32
	GapCycles    uint32
	Count        uint32
	Variant      TriggerVariant
	TriggerPin   uint8
	TriggerEdge  Edge
	TriggerByte  uint8
	UartBaud     uint32
	APIMode      bool
}

// DefaultParameters returns the power-on/RESET-verb parameter set, grounded
// on original_source/src/glitch.c's defaults (trigger pin GP3, 115200 baud
// target UART assumed for the byte-match trigger's sample-clock divider).
func DefaultParameters() Parameters {
	return Parameters{
		PauseCycles: 0,
		WidthCycles: PulseOverheadCycles + 1,
		GapCycles:   0,
		Count:       1,
		Variant:     TriggerNone,
		TriggerPin:  3,
		TriggerEdge: EdgeRising,
		TriggerByte: 0,
		UartBaud:    115200,
		APIMode:     false,
	}
}

// adjustedWidth saturates width to the overhead floor and subtracts the
// per-iteration instruction overhead, so that the PIO down-counter loop's
// realised duration equals WidthCycles.
func adjustedWidth(widthCycles uint32) uint32 {
	if widthCycles <= PulseOverheadCycles {
		return 0
	}
	return widthCycles - PulseOverheadCycles
}

// adjustedGap saturates gap to the overhead floor (gap may legitimately be
// zero) and subtracts the same per-iteration overhead.
func adjustedGap(gapCycles uint32) uint32 {
	if gapCycles <= PulseOverheadCycles {
		return 0
	}
	return gapCycles - PulseOverheadCycles
}

// CyclesToMicros converts a cycle count to microseconds at CyclesPerSecond,
// used by GET's human-readable report.
func CyclesToMicros(cycles uint32) float32 {
	return float32(cycles) / (CyclesPerSecond / 1_000_000)
}

// MicrosToCycles is the inverse of CyclesToMicros.
func MicrosToCycles(us float32) uint32 {
	return uint32(us * (CyclesPerSecond / 1_000_000))
}
