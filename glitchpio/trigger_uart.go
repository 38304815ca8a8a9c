//go:build rp2040 || rp2350

package glitchpio

import (
	"machine"

	pio "github.com/tinygo-org/pio/rp2-pio"
)

// uartTriggerProgram is an 8x-oversampled UART byte-match trigger, adapted
// from the well-known pico-examples uart_rx.pio pattern: it shifts in 8
// bits (no autopush, shift-right) so the received byte lands in the top 8
// bits of ISR, matching the original firmware's byte<<24 compare word,
// then fires FireSignal+FIRE-IRQ on a match or clears ISR and restarts on
// a miss. No stop-bit check: the original configuration leaves its
// jmp-pin unused, so neither does this one.
func uartTriggerProgram() []uint16 {
	return []uint16{
		// 0: pull block -- OSR = trigger word
		pio.EncodePull(false, true),
		// 1: mov y, osr
		pio.EncodeMov(pio.SrcDestY, pio.SrcDestOSR),
		// 2: start: wait 0 pin 0
		pio.EncodeWaitPin(false, 0),
		// 3: set x, 7 [7]
		pio.EncodeSet(pio.SrcDestX, 7) | pio.EncodeDelay(7),
		// 4: bitloop: in pins, 1 [6]
		pio.EncodeIn(pio.SrcDestPins, 1) | pio.EncodeDelay(6),
		// 5: jmp x--, bitloop
		pio.EncodeJmp(4, pio.JmpXNZeroDec),
		// 6: mov x, isr
		pio.EncodeMov(pio.SrcDestX, pio.SrcDestISR),
		// 7: jmp x!=y, no_match (addr 11)
		pio.EncodeJmp(11, pio.JmpXNotEqualY),
		// 8: set pins, 1 -- raise FireSignal
		pio.EncodeSet(pio.SrcDestPins, 1),
		// 9: irq set 0 -- assert FIRE-IRQ
		pio.EncodeIRQSet(false, 0),
		// 10: jmp halt (addr 13) -- one-shot: never resume sampling after a match
		pio.EncodeJmp(13, pio.JmpAlways),
		// 11: no_match: mov isr, null
		pio.EncodeMov(pio.SrcDestISR, pio.SrcDestNull),
		// 12: jmp start
		pio.EncodeJmp(2, pio.JmpAlways),
		// 13: halt: jmp halt
		pio.EncodeJmp(13, pio.JmpAlways),
	}
}

const uartTriggerProgramLen = 14

// UARTTrigger drives the 8x-oversampled UART byte-match trigger state
// machine.
type UARTTrigger struct {
	sm       pio.StateMachine
	offset   uint8
	rxPin    machine.Pin
	firePin  machine.Pin
	haveFire bool
}

// NewUARTTrigger claims sm and loads the byte-match program sampling rxPin
// at 8x baud, comparing against triggerWord (byte<<24). firePin is
// optionally driven HIGH on match.
func NewUARTTrigger(sm pio.StateMachine, rxPin, firePin machine.Pin, baud uint32, triggerWord uint32, haveFire bool) (*UARTTrigger, error) {
	sm.TryClaim()
	p := sm.PIO()

	instructions := uartTriggerProgram()
	offset, err := p.AddProgram(instructions, -1)
	if err != nil {
		return nil, err
	}

	mode := p.PinMode()
	rxPin.Configure(machine.PinConfig{Mode: mode})
	sm.SetPindirsConsecutive(rxPin, 1, false)

	cfg := pio.DefaultStateMachineConfig()
	cfg.SetWrap(offset, offset+uartTriggerProgramLen-1)
	cfg.SetInPins(rxPin)
	cfg.SetInShift(true, false, 32)
	if haveFire {
		firePin.Configure(machine.PinConfig{Mode: mode})
		sm.SetPindirsConsecutive(firePin, 1, true)
		cfg.SetSetPins(firePin, 1)
	}

	whole, frac, err := pio.ClkDivFromFrequency(baud*8, uint32(machine.CPUFrequency()))
	if err != nil {
		return nil, err
	}
	cfg.SetClkDivIntFrac(whole, frac)

	t := &UARTTrigger{sm: sm, offset: offset, rxPin: rxPin, firePin: firePin, haveFire: haveFire}
	sm.Init(offset, cfg)
	sm.TxPut(triggerWord)
	return t, nil
}

// Enable starts the trigger state machine.
func (t *UARTTrigger) Enable() {
	t.sm.SetEnabled(true)
}

// Disable stops the trigger state machine and clears its FIFO.
func (t *UARTTrigger) Disable() {
	t.sm.SetEnabled(false)
	t.sm.ClearFIFOs()
	t.sm.Restart()
}

// Unload frees the program's instruction memory. Call only while disabled.
func (t *UARTTrigger) Unload() {
	t.sm.PIO().ClearProgramSection(t.offset, uartTriggerProgramLen)
}
