//go:build rp2040 || rp2350

package glitchpio

import (
	"machine"

	pio "github.com/tinygo-org/pio/rp2-pio"
)

// debounceChainDelay is the loop count used by the three fixed NOP chains
// that settle the input before the real edge wait, matching the ~639ns
// (three 32-cycle passes) stability window described in spec §4.2.
const debounceChainDelay = 31

// gpioTriggerInstructions builds the GPIO edge trigger program for the
// requested edge. Three fixed-delay NOP chains settle the input (spec
// §4.2's stability window) before the state machine commits to waiting for
// the requested transition, asserts FireSignal, and raises FIRE-IRQ.
func gpioTriggerInstructions(rising bool) []uint16 {
	confirmLevel := rising // confirm the opposite-of-target level first
	instr := make([]uint16, 0, 11)
	// 0: wait <not target> pin 0 -- confirm starting level
	instr = append(instr, pio.EncodeWaitPin(!confirmLevel, 0))
	// 1-2, 3-4, 5-6: three NOP delay chains (~32 cycles each)
	for i := 0; i < 3; i++ {
		setAddr := uint8(len(instr))
		loopAddr := setAddr + 1
		instr = append(instr, pio.EncodeSet(pio.SrcDestX, debounceChainDelay))
		instr = append(instr, pio.EncodeJmp(loopAddr, pio.JmpXNZeroDec))
	}
	// 7: wait <target> pin 0 -- the real edge
	instr = append(instr, pio.EncodeWaitPin(confirmLevel, 0))
	// 8: set pins, 1 -- raise FireSignal
	instr = append(instr, pio.EncodeSet(pio.SrcDestPins, 1))
	// 9: irq set 0 -- assert FIRE-IRQ
	instr = append(instr, pio.EncodeIRQSet(false, 0))
	// 10: jmp self -- halt; torn down externally on disarm
	haltAddr := uint8(len(instr))
	instr = append(instr, pio.EncodeJmp(haltAddr, pio.JmpAlways))
	return instr
}

// GPIOTrigger drives the edge-triggered GPIO trigger state machine.
type GPIOTrigger struct {
	sm       pio.StateMachine
	offset   uint8
	inPin    machine.Pin
	firePin  machine.Pin
	haveFire bool
}

// NewGPIOTrigger claims sm and loads the edge-trigger program watching
// inPin for the requested edge. firePin is optionally driven HIGH by the
// program on trigger (FireSignal); pass haveFire=false if unused.
func NewGPIOTrigger(sm pio.StateMachine, inPin, firePin machine.Pin, rising bool, haveFire bool) (*GPIOTrigger, error) {
	sm.TryClaim()
	p := sm.PIO()

	instructions := gpioTriggerInstructions(rising)
	offset, err := p.AddProgram(instructions, -1)
	if err != nil {
		return nil, err
	}

	mode := p.PinMode()
	inPin.Configure(machine.PinConfig{Mode: mode})
	sm.SetPindirsConsecutive(inPin, 1, false)

	cfg := pio.DefaultStateMachineConfig()
	cfg.SetWrap(offset, offset+uint8(len(instructions))-1)
	cfg.SetInPins(inPin)
	cfg.SetJmpPin(inPin)
	if haveFire {
		firePin.Configure(machine.PinConfig{Mode: mode})
		sm.SetPindirsConsecutive(firePin, 1, true)
		cfg.SetSetPins(firePin, 1)
	}

	t := &GPIOTrigger{sm: sm, offset: offset, inPin: inPin, firePin: firePin, haveFire: haveFire}
	sm.Init(offset, cfg)
	return t, nil
}

// Enable starts the trigger state machine.
func (t *GPIOTrigger) Enable() {
	t.sm.SetEnabled(true)
}

// Disable stops the trigger state machine and clears its FIFO, leaving it
// ready to be reinitialized (or unloaded) on the next arm.
func (t *GPIOTrigger) Disable() {
	t.sm.SetEnabled(false)
	t.sm.ClearFIFOs()
	t.sm.Restart()
}

// Unload frees the program's instruction memory. Call only while disabled.
func (t *GPIOTrigger) Unload() {
	t.sm.PIO().ClearProgramSection(t.offset, gpioTriggerProgramLen)
}

// gpioTriggerProgramLen is the worst-case instruction count (both edge
// variants are the same length), used to free the right-sized section.
const gpioTriggerProgramLen = 11
