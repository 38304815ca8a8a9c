//go:build rp2040 || rp2350

package glitchpio

import (
	"machine"
	"time"

	pio "github.com/tinygo-org/pio/rp2-pio"
)

// manualFireInstructions is the one-instruction helper used for software
// (unarmed-trigger) firing: it only asserts FIRE-IRQ, repeating harmlessly
// until torn down, mirroring the original firmware's one-instruction
// manual-fire program. FireSignal itself is raised directly by the caller
// via SetPinsConsecutive before the state machine is even enabled, which is
// what keeps the program itself to a single instruction.
var manualFireInstructions = []uint16{
	pio.EncodeIRQSet(false, 0),
}

// ManualFireHelper is a throwaway program spawned for one software fire and
// torn down immediately afterward.
type ManualFireHelper struct {
	sm      pio.StateMachine
	offset  uint8
	firePin machine.Pin
}

// Fire claims sm, raises firePin (FireSignal) directly, loads and runs the
// one-instruction FIRE-IRQ helper, waits briefly for the pulse engine (and
// any clock generator boost) to latch it, then tears the program down.
func Fire(sm pio.StateMachine, firePin machine.Pin) error {
	sm.TryClaim()
	p := sm.PIO()

	offset, err := p.AddProgram(manualFireInstructions, -1)
	if err != nil {
		return err
	}

	mode := p.PinMode()
	firePin.Configure(machine.PinConfig{Mode: mode})
	sm.SetPindirsConsecutive(firePin, 1, true)
	sm.SetPinsConsecutive(firePin, 1, true)

	cfg := pio.DefaultStateMachineConfig()
	cfg.SetWrap(offset, offset)
	sm.Init(offset, cfg)
	sm.SetEnabled(true)

	time.Sleep(time.Microsecond)

	sm.SetEnabled(false)
	sm.PIO().ClearProgramSection(offset, uint8(len(manualFireInstructions)))
	sm.Unclaim()
	return nil
}
