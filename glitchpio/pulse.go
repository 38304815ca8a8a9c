//go:build rp2040 || rp2350

// Package glitchpio builds and drives the PIO programs that implement the
// glitch engine's pulse generator, trigger sources, manual-fire helper, and
// clock generator, and wires them together behind glitch.Hardware.
package glitchpio

import (
	"machine"

	pio "github.com/tinygo-org/pio/rp2-pio"
)

// pulseSideBit is the side-set bit width used by PulseEngine: one bit,
// mirrored onto the inverted output pin by a pad-level output-invert
// override (see hwpads) so both the normal and inverted glitch pins switch
// in the same PIO cycle with zero skew.
const pulseSideBit = 1

// pulseInstructions is the pulse engine program described by spec §4.1:
// waits for FIRE-IRQ, loads PAUSE/COUNT/WIDTH/GAP from its TX FIFO, then
// emits COUNT pulses of WIDTH high, GAP low, and raises a completion IRQ.
//
// Register usage: X is the live down-counter (width, then gap, per half of
// each pulse). Y holds COUNT-1 and survives the whole burst. ISR shadows
// the adjusted WIDTH value (MOV does not consume its source) since autopull
// is disabled; OSR is left holding the adjusted GAP value for the same
// reason after its one PULL.
var pulseInstructions = []uint16{
	// 0: wait 1 irq 0 -- block until the trigger (or manual-fire helper)
	// asserts the shared FIRE-IRQ.
	pio.EncodeWaitIRQ(true, false, 0),
	// 1: pull block -- OSR = PAUSE
	pio.EncodePull(false, true),
	// 2: mov x, osr
	pio.EncodeMov(pio.SrcDestX, pio.SrcDestOSR),
	// 3: pause_loop: jmp x--, pause_loop
	pio.EncodeJmp(3, pio.JmpXNZeroDec),
	// 4: pull block -- OSR = COUNT-1
	pio.EncodePull(false, true),
	// 5: mov y, osr
	pio.EncodeMov(pio.SrcDestY, pio.SrcDestOSR),
	// 6: pull block -- OSR = WIDTH_ADJ
	pio.EncodePull(false, true),
	// 7: mov isr, osr -- shadow width in ISR
	pio.EncodeMov(pio.SrcDestISR, pio.SrcDestOSR),
	// 8: pull block -- OSR = GAP_ADJ (stays put; MOV never overwrites OSR)
	pio.EncodePull(false, true),
	// 9: pulse_loop: mov x, isr side 0
	pio.EncodeMov(pio.SrcDestX, pio.SrcDestISR) | pio.EncodeSideSet(pulseSideBit, 0),
	// 10: set pins, 1 side 1 -- rising edge
	pio.EncodeSet(pio.SrcDestPins, 1) | pio.EncodeSideSet(pulseSideBit, 1),
	// 11: width_loop: jmp x--, width_loop side 1
	pio.EncodeJmp(11, pio.JmpXNZeroDec) | pio.EncodeSideSet(pulseSideBit, 1),
	// 12: mov x, osr side 1 -- reload gap counter, both pins still high
	pio.EncodeMov(pio.SrcDestX, pio.SrcDestOSR) | pio.EncodeSideSet(pulseSideBit, 1),
	// 13: set pins, 0 side 0 -- falling edge on both pins
	pio.EncodeSet(pio.SrcDestPins, 0) | pio.EncodeSideSet(pulseSideBit, 0),
	// 14: gap_loop: jmp x--, gap_loop side 0
	pio.EncodeJmp(14, pio.JmpXNZeroDec) | pio.EncodeSideSet(pulseSideBit, 0),
	// 15: jmp y--, pulse_loop
	pio.EncodeJmp(9, pio.JmpYNZeroDec),
	// 16: irq set 1 -- completion, .wrap back to 0
	pio.EncodeIRQSet(false, 1),
}

const pulseWrapTarget = 0
const pulseWrap = 16

// PulseEngine drives the pulse-generation state machine.
type PulseEngine struct {
	sm         pio.StateMachine
	offset     uint8
	outPin     machine.Pin
	mirrorPin  machine.Pin
	haveMirror bool
}

// NewPulseEngine claims sm, loads the pulse program, and configures outPin
// (SET) and mirrorPin (SIDE-SET) as its glitch outputs. mirrorPin may be
// the zero value if no inverted mirror is wired.
func NewPulseEngine(sm pio.StateMachine, outPin machine.Pin, mirrorPin machine.Pin, haveMirror bool) (*PulseEngine, error) {
	sm.TryClaim()
	p := sm.PIO()

	offset, err := p.AddProgram(pulseInstructions, -1)
	if err != nil {
		return nil, err
	}

	mode := p.PinMode()
	outPin.Configure(machine.PinConfig{Mode: mode})
	sm.SetPindirsConsecutive(outPin, 1, true)

	cfg := pio.DefaultStateMachineConfig()
	cfg.SetWrap(offset+pulseWrapTarget, offset+pulseWrap)
	cfg.SetSetPins(outPin, 1)
	if haveMirror {
		mirrorPin.Configure(machine.PinConfig{Mode: mode})
		sm.SetPindirsConsecutive(mirrorPin, 1, true)
		cfg.SetSidesetParams(pulseSideBit, false, false)
		cfg.SetSidesetPins(mirrorPin)
	}

	e := &PulseEngine{sm: sm, offset: offset, outPin: outPin, mirrorPin: mirrorPin, haveMirror: haveMirror}
	sm.Init(offset, cfg)
	return e, nil
}

// Reset stops the state machine, clears its FIFOs, and re-initializes it
// at the program entry point, ready for the next arm.
func (e *PulseEngine) Reset() {
	e.sm.SetEnabled(false)
	e.sm.ClearFIFOs()
	e.sm.Restart()
	e.sm.ClkDivRestart()
	e.sm.Exec(pio.EncodeJmp(e.offset, pio.JmpAlways))
}

// Load pushes the four burst parameters and enables the state machine. It
// blocks in hardware on the FIRE-IRQ, not here: Load returns immediately.
func (e *PulseEngine) Load(pauseCycles, countMinus1, widthAdjCycles, gapAdjCycles uint32) {
	e.sm.SetEnabled(true)
	e.sm.TxPut(pauseCycles)
	e.sm.TxPut(countMinus1)
	e.sm.TxPut(widthAdjCycles)
	e.sm.TxPut(gapAdjCycles)
}

// Disable stops the state machine and clears its FIFOs.
func (e *PulseEngine) Disable() {
	e.Reset()
}

// completionIRQ is the shared-flag index the pulse program raises on
// finishing its burst (distinct from the trigger sources' FIRE-IRQ, index 0).
const completionIRQ = 1

// Complete reports and clears the pulse engine's completion IRQ flag.
func (e *PulseEngine) Complete() bool {
	flags := e.sm.PIO().GetIRQ()
	bit := uint8(1) << completionIRQ
	if flags&bit == 0 {
		return false
	}
	e.sm.PIO().ClearIRQ(bit)
	return true
}
