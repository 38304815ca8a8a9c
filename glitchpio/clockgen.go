//go:build rp2040 || rp2350

package glitchpio

import (
	"machine"

	pio "github.com/tinygo-org/pio/rp2-pio"
)

// clockBaselineInstructions is the clock generator with no boost capacity:
// a fixed-frequency square wave gated only by Y, the half-period reload
// value set once via SetY before the state machine is enabled.
var clockBaselineInstructions = []uint16{
	// 0: wrap_target: mov x, y
	pio.EncodeMov(pio.SrcDestX, pio.SrcDestY),
	// 1: set pins, 1
	pio.EncodeSet(pio.SrcDestPins, 1),
	// 2: jmp x--, hi (addr 2)
	pio.EncodeJmp(2, pio.JmpXNZeroDec),
	// 3: mov x, y
	pio.EncodeMov(pio.SrcDestX, pio.SrcDestY),
	// 4: set pins, 0
	pio.EncodeSet(pio.SrcDestPins, 0),
	// 5: jmp x--, lo (addr 5) ; .wrap
	pio.EncodeJmp(5, pio.JmpXNZeroDec),
}

// clockBoostInstructions is the boost-capable clock generator. Y normally
// holds the baseline half-period, but is temporarily repurposed as the
// boost-burst half-period counter while FireSignal (the state machine's
// configured jmp-pin) is observed high; X always holds the live
// down-counter for whichever half-period is active. ISR holds the boosted
// half-period, pre-loaded once via Exec before the state machine starts and
// never touched again, so it survives the FireSignal-triggered excursion
// into the boost loop.
var clockBoostInstructions = []uint16{
	// 0: top: mov x, y
	pio.EncodeMov(pio.SrcDestX, pio.SrcDestY),
	// 1: jmp pin, boost_entry (addr 8)
	pio.EncodeJmp(8, pio.JmpPinInput),
	// 2: set pins, 1
	pio.EncodeSet(pio.SrcDestPins, 1),
	// 3: jmp x--, hi (addr 3)
	pio.EncodeJmp(3, pio.JmpXNZeroDec),
	// 4: mov x, y
	pio.EncodeMov(pio.SrcDestX, pio.SrcDestY),
	// 5: set pins, 0
	pio.EncodeSet(pio.SrcDestPins, 0),
	// 6: jmp x--, lo (addr 6)
	pio.EncodeJmp(6, pio.JmpXNZeroDec),
	// 7: jmp top (addr 0)
	pio.EncodeJmp(0, pio.JmpAlways),
	// 8: boost_entry: pull block -- OSR = boost count (COUNT half-periods)
	pio.EncodePull(false, true),
	// 9: mov y, osr -- Y temporarily repurposed as boost-remaining counter
	pio.EncodeMov(pio.SrcDestY, pio.SrcDestOSR),
	// 10: boost_loop: mov x, isr -- X = boosted half-period (persistent)
	pio.EncodeMov(pio.SrcDestX, pio.SrcDestISR),
	// 11: set pins, 1
	pio.EncodeSet(pio.SrcDestPins, 1),
	// 12: jmp x--, boost_hi (addr 12)
	pio.EncodeJmp(12, pio.JmpXNZeroDec),
	// 13: mov x, isr
	pio.EncodeMov(pio.SrcDestX, pio.SrcDestISR),
	// 14: set pins, 0
	pio.EncodeSet(pio.SrcDestPins, 0),
	// 15: jmp x--, boost_lo (addr 15)
	pio.EncodeJmp(15, pio.JmpXNZeroDec),
	// 16: jmp y--, boost_loop (addr 10)
	pio.EncodeJmp(10, pio.JmpYNZeroDec),
	// 17: pull block -- OSR = baseline half-period restore value
	pio.EncodePull(false, true),
	// 18: mov y, osr -- Y restored to baseline half-period
	pio.EncodeMov(pio.SrcDestY, pio.SrcDestOSR),
	// 19: jmp top (addr 0)
	pio.EncodeJmp(0, pio.JmpAlways),
}

// ClockGenerator drives the glitch clock output described by spec §4.4.
type ClockGenerator struct {
	sm       pio.StateMachine
	offset   uint8
	pin      machine.Pin
	firePin  machine.Pin
	boostCap bool
}

// NewClockGenerator claims sm and loads either the baseline-only or
// boost-capable program depending on boostCapable. firePin is the
// FireSignal input the boost-capable variant polls as its jmp-pin; it is
// ignored when boostCapable is false.
func NewClockGenerator(sm pio.StateMachine, pin, firePin machine.Pin, boostCapable bool) (*ClockGenerator, error) {
	sm.TryClaim()
	p := sm.PIO()

	instructions := clockBaselineInstructions
	if boostCapable {
		instructions = clockBoostInstructions
	}
	offset, err := p.AddProgram(instructions, -1)
	if err != nil {
		return nil, err
	}

	mode := p.PinMode()
	pin.Configure(machine.PinConfig{Mode: mode})
	sm.SetPindirsConsecutive(pin, 1, true)

	cfg := pio.DefaultStateMachineConfig()
	cfg.SetWrap(offset, offset+uint8(len(instructions))-1)
	cfg.SetSetPins(pin, 1)
	if boostCapable {
		firePin.Configure(machine.PinConfig{Mode: mode})
		sm.SetPindirsConsecutive(firePin, 1, false)
		cfg.SetJmpPin(firePin)
	}

	g := &ClockGenerator{sm: sm, offset: offset, pin: pin, firePin: firePin, boostCap: boostCapable}
	sm.Init(offset, cfg)
	return g, nil
}

// Start pre-loads the baseline half-period into Y, and, for the
// boost-capable variant, pre-loads the boosted half-period into ISR (via
// Exec, the same pio_encode_mov trick the original firmware uses to get a
// value into ISR without a FIFO round trip), then enables the SM.
func (g *ClockGenerator) Start(baselineHalfPeriod, boostedHalfPeriod uint32) {
	g.sm.SetY(baselineHalfPeriod)
	if g.boostCap {
		g.sm.SetX(boostedHalfPeriod)
		g.sm.Exec(pio.EncodeMov(pio.SrcDestISR, pio.SrcDestX))
	}
	g.sm.SetEnabled(true)
}

// Stop disables the clock generator and clears its FIFOs.
func (g *ClockGenerator) Stop() {
	g.sm.SetEnabled(false)
	g.sm.ClearFIFOs()
	g.sm.Restart()
}

// Boost pushes the boost-burst word count and the baseline half-period to
// restore afterward. Only meaningful on the boost-capable variant; a no-op
// otherwise.
func (g *ClockGenerator) Boost(count, restoreHalfPeriod uint32) {
	if !g.boostCap {
		return
	}
	g.sm.TxPut(count)
	g.sm.TxPut(restoreHalfPeriod)
}

// Unload frees the program's instruction memory. Call only while disabled.
func (g *ClockGenerator) Unload() {
	instructions := clockBaselineInstructions
	if g.boostCap {
		instructions = clockBoostInstructions
	}
	g.sm.PIO().ClearProgramSection(g.offset, uint8(len(instructions)))
}
