//go:build rp2040 || rp2350

package glitchpio

import (
	"machine"

	pio "github.com/tinygo-org/pio/rp2-pio"

	"github.com/AdamLaurie/raiden-pico/core"
	"github.com/AdamLaurie/raiden-pico/glitch"
	"github.com/AdamLaurie/raiden-pico/hwpads"
)

// Pin assignment (spec §6.4).
const (
	PinGlitchOut      = machine.Pin(2)
	PinGlitchOutInv   = machine.Pin(11)
	PinTrigger        = machine.Pin(3)
	PinArmedSignal    = machine.Pin(9)
	PinFireSignal     = machine.Pin(12)
	PinClockOut       = machine.Pin(6)
	PinTargetUARTRx   = machine.Pin(5)
	PinTargetUARTTx   = machine.Pin(4)
	PinTargetReset    = machine.Pin(8)
	PinTargetPower    = machine.Pin(7)
)

// Engine implements glitch.Hardware against two PIO blocks: PIO0 carries
// the pulse engine and the clock generator, PIO1 carries whichever trigger
// program is currently resident (the two trigger variants never coexist).
type Engine struct {
	pulse *PulseEngine
	clock *ClockGenerator

	triggerPIO   *pio.PIO
	gpioTrigger  *GPIOTrigger
	uartTrigger  *UARTTrigger
	manualFireSM pio.StateMachine

	boostCapable bool
}

// NewEngine claims and configures the pulse engine and ArmedSignal/manual
// -fire state machines. The clock generator and trigger programs are
// loaded lazily (clock via EnableClock, trigger via LoadTrigger) since
// their shape depends on runtime configuration.
func NewEngine(boostCapable bool) (*Engine, error) {
	hwpads.SetOutputInvert(uint8(PinGlitchOutInv), true)

	pulseSM, err := pio.PIO0.ClaimStateMachine()
	if err != nil {
		return nil, err
	}
	pulse, err := NewPulseEngine(pulseSM, PinGlitchOut, PinGlitchOutInv, true)
	if err != nil {
		return nil, err
	}

	manualFireSM, err := pio.PIO0.ClaimStateMachine()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		pulse:        pulse,
		triggerPIO:   pio.PIO1,
		manualFireSM: manualFireSM,
		boostCapable: boostCapable,
	}

	PinArmedSignal.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PinArmedSignal.Low()

	return e, nil
}

func (e *Engine) ClearFireSignal() {
	PinFireSignal.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PinFireSignal.Low()
}

func (e *Engine) ClearFireIRQ() {
	e.pulse.sm.PIO().ClearIRQ(1 << 0)
}

func (e *Engine) SetArmedSignal(on bool) {
	if on {
		PinArmedSignal.High()
	} else {
		PinArmedSignal.Low()
	}
}

func (e *Engine) LoadTrigger(variant glitch.TriggerVariant, pin uint8, edge glitch.Edge, triggerByte uint8, baud uint32) error {
	e.unloadTrigger()

	switch variant {
	case glitch.TriggerNone:
		return nil
	case glitch.TriggerGpioEdge:
		sm, err := e.triggerPIO.ClaimStateMachine()
		if err != nil {
			return glitch.ErrNoRoom
		}
		t, err := NewGPIOTrigger(sm, machine.Pin(pin), PinFireSignal, edge == glitch.EdgeRising, true)
		if err != nil {
			sm.Unclaim()
			return glitch.ErrNoRoom
		}
		e.gpioTrigger = t
		return nil
	case glitch.TriggerUartByte:
		sm, err := e.triggerPIO.ClaimStateMachine()
		if err != nil {
			return glitch.ErrNoRoom
		}
		// PinTargetUARTRx is already owned and configured by the target UART
		// peripheral; clear its isolation latch so this trigger SM, on the
		// other PIO block, can observe it too.
		hwpads.ClearIsolation(uint8(PinTargetUARTRx))
		triggerWord := uint32(triggerByte) << 24
		t, err := NewUARTTrigger(sm, PinTargetUARTRx, PinFireSignal, baud, triggerWord, true)
		if err != nil {
			sm.Unclaim()
			return glitch.ErrNoRoom
		}
		e.uartTrigger = t
		return nil
	}
	return nil
}

func (e *Engine) unloadTrigger() {
	if e.gpioTrigger != nil {
		e.gpioTrigger.Disable()
		e.gpioTrigger.Unload()
		e.gpioTrigger.sm.Unclaim()
		e.gpioTrigger = nil
	}
	if e.uartTrigger != nil {
		e.uartTrigger.Disable()
		e.uartTrigger.Unload()
		e.uartTrigger.sm.Unclaim()
		e.uartTrigger = nil
	}
}

func (e *Engine) EnableTrigger() {
	if e.gpioTrigger != nil {
		e.gpioTrigger.Enable()
	}
	if e.uartTrigger != nil {
		e.uartTrigger.Enable()
	}
}

func (e *Engine) DisableTrigger() {
	if e.gpioTrigger != nil {
		e.gpioTrigger.Disable()
	}
	if e.uartTrigger != nil {
		e.uartTrigger.Disable()
	}
}

func (e *Engine) ConfigurePulse() {
	e.pulse.Reset()
}

func (e *Engine) LoadPulseFIFO(pause, countMinus1, widthAdj, gapAdj uint32) {
	e.pulse.Load(pause, countMinus1, widthAdj, gapAdj)
}

func (e *Engine) DisablePulse() {
	e.pulse.Disable()
}

func (e *Engine) PulseComplete() bool {
	return e.pulse.Complete()
}

func (e *Engine) ManualFire() {
	if err := Fire(e.manualFireSM, PinFireSignal); err != nil {
		core.DebugPrintln("manual fire: " + err.Error())
	}
}

func (e *Engine) SetClockBoost(active bool, count uint32, restoreHalfPeriod uint32) {
	if !active || e.clock == nil {
		return
	}
	e.clock.Boost(count, restoreHalfPeriod)
}

func (e *Engine) EnableClock(freqHz uint32) error {
	e.DisableClock()

	sm, err := pio.PIO0.ClaimStateMachine()
	if err != nil {
		return err
	}
	// FireSignal is driven by whichever trigger program (or manual fire) is
	// currently loaded; clear isolation so the clock generator's jmp-pin
	// read of it is reliable regardless of which block drives it.
	hwpads.ClearIsolation(uint8(PinFireSignal))
	clk, err := NewClockGenerator(sm, PinClockOut, PinFireSignal, e.boostCapable)
	if err != nil {
		sm.Unclaim()
		return err
	}
	e.clock = clk

	// Boosted half-period nominally doubles the output frequency, per
	// spec's X = (Y+1)/2 - 1; only the boost-capable variant uses it.
	halfPeriod := (glitch.CyclesPerSecond/2)/freqHz - 1
	boostedHalfPeriod := (halfPeriod+1)/2 - 1
	e.clock.Start(halfPeriod, boostedHalfPeriod)
	return nil
}

func (e *Engine) DisableClock() {
	if e.clock == nil {
		return
	}
	e.clock.Stop()
	e.clock.Unload()
	e.clock.sm.Unclaim()
	e.clock = nil
}

var _ glitch.Hardware = (*Engine)(nil)
