package glitch

import (
	"errors"

	"github.com/AdamLaurie/raiden-pico/core"
)

var (
	// ErrAlreadyArmed is returned by Arm when ArmState is already Armed.
	ErrAlreadyArmed = errors.New("already armed")
	// ErrNotArmed is returned by ManualFire when ArmState is Disarmed.
	ErrNotArmed = errors.New("not armed")
	// ErrArmed is returned by parameter setters while ArmState is Armed.
	ErrArmed = errors.New("armed")
	// ErrNoRoom is returned by Arm when the requested trigger program does
	// not fit in the remaining PIO instruction memory.
	ErrNoRoom = errors.New("no room")
	// ErrManualFireNeedsNone is returned by ManualFire when the configured
	// trigger variant is not TriggerNone.
	ErrManualFireNeedsNone = errors.New("manual fire requires TRIGGER NONE")
	// ErrClockFrequencyZero reports a zero clock frequency. EnableClock does
	// not return it: EnableClock(0) disables the clock instead.
	ErrClockFrequencyZero = errors.New("clock frequency must be non-zero")
	// ErrClockFrequencyTooHigh is returned by EnableClock when freqHz would
	// compute a negative half-period reload value.
	ErrClockFrequencyTooHigh = errors.New("clock frequency too high")
)

// maxClockFrequencyHz is the highest frequency for which the clock
// generator's half-period down-counter reload, (CyclesPerSecond/2)/freqHz-1,
// stays non-negative.
const maxClockFrequencyHz = CyclesPerSecond / 2

// Hardware is the set of PIO-backed side effects the Controller drives.
// glitchpio provides the RP2040/RP2350 implementation; tests use a fake.
type Hardware interface {
	ClearFireSignal()
	ClearFireIRQ()
	SetArmedSignal(on bool)

	// LoadTrigger loads and configures the PIO program for variant (a no-op
	// for TriggerNone), unloading any previously-resident trigger program
	// first. The state machine is left initialized but disabled.
	LoadTrigger(variant TriggerVariant, pin uint8, edge Edge, triggerByte uint8, baud uint32) error
	EnableTrigger()
	DisableTrigger()

	ConfigurePulse()
	LoadPulseFIFO(pause, countMinus1, widthAdj, gapAdj uint32)
	DisablePulse()
	// PulseComplete reports whether the pulse engine asserted its
	// completion IRQ since the last call, clearing the flag as it reports.
	PulseComplete() bool

	// ManualFire runs the tiny raise-FireSignal-then-FIRE-IRQ helper
	// program to completion (including its own brief settle wait) and
	// tears it down.
	ManualFire()

	// SetClockBoost pushes the boost-count and baseline-restore FIFO words
	// consumed by the clock generator's next fire. No-op if the clock is
	// not enabled.
	SetClockBoost(active bool, count uint32, restoreHalfPeriod uint32)
	EnableClock(freqHz uint32) error
	DisableClock()
}

// Controller is the process-wide arm/disarm authority described in
// spec §4.3: it owns PulseProgramResources, TriggerProgramResources, and
// both signal pins while Armed, and is the only mutator of ArmState.
type Controller struct {
	hw Hardware

	params Parameters
	state  ArmState

	clock       ClockConfig
	firedCount  uint32
	lastError   string
}

// ClockConfig mirrors spec §3's ClockConfig entity.
type ClockConfig struct {
	FrequencyHz uint32
	Enabled     bool
	BoostActive bool
}

// NewController constructs a Controller bound to the given hardware
// backend, with default parameters and a disarmed clock.
func NewController(hw Hardware) *Controller {
	return &Controller{
		hw:     hw,
		params: DefaultParameters(),
		state:  Disarmed,
	}
}

// State returns the current ArmState, collapsing a transient Fired
// observation to Disarmed (the "poll" side of the auto-disarm contract).
func (c *Controller) State() ArmState {
	c.collapseFired()
	return c.state
}

// FiredCount returns the monotonic count of completed firings.
func (c *Controller) FiredCount() uint32 {
	c.collapseFired()
	return c.firedCount
}

// Parameters returns a copy of the current parameter set.
func (c *Controller) Parameters() Parameters {
	return c.params
}

// LastError returns the last error message recorded by a failed command,
// for the host command surface's ERROR verb.
func (c *Controller) LastError() string {
	return c.lastError
}

func (c *Controller) fail(msg string) error {
	c.lastError = msg
	core.RecordTiming(core.EvtParamError, 0, core.GetTime(), 0, 0)
	for _, sentinel := range []error{ErrAlreadyArmed, ErrNotArmed, ErrArmed, ErrNoRoom, ErrManualFireNeedsNone, ErrClockFrequencyTooHigh} {
		if sentinel.Error() == msg {
			return sentinel
		}
	}
	return errors.New(msg)
}

// --- Parameter setters. All except SetAPIMode reject mutation while Armed
// (spec §9's Open Question decision: reject rather than defer). ---

func (c *Controller) requireDisarmed() error {
	if c.State() != Disarmed {
		return c.fail(ErrArmed.Error())
	}
	return nil
}

func (c *Controller) SetPause(cycles uint32) error {
	if err := c.requireDisarmed(); err != nil {
		return err
	}
	c.params.PauseCycles = cycles
	return nil
}

func (c *Controller) SetWidth(cycles uint32) error {
	if cycles == 0 {
		return c.fail("width must be positive")
	}
	if err := c.requireDisarmed(); err != nil {
		return err
	}
	c.params.WidthCycles = cycles
	return nil
}

func (c *Controller) SetGap(cycles uint32) error {
	if err := c.requireDisarmed(); err != nil {
		return err
	}
	c.params.GapCycles = cycles
	return nil
}

func (c *Controller) SetCount(n uint32) error {
	if n == 0 {
		return c.fail("count must be positive")
	}
	if err := c.requireDisarmed(); err != nil {
		return err
	}
	c.params.Count = n
	return nil
}

func (c *Controller) SetTriggerNone() error {
	if err := c.requireDisarmed(); err != nil {
		return err
	}
	c.params.Variant = TriggerNone
	return nil
}

func (c *Controller) SetTriggerGPIO(edge Edge) error {
	if err := c.requireDisarmed(); err != nil {
		return err
	}
	c.params.Variant = TriggerGpioEdge
	c.params.TriggerEdge = edge
	return nil
}

func (c *Controller) SetTriggerUART(triggerByte uint8) error {
	if err := c.requireDisarmed(); err != nil {
		return err
	}
	c.params.Variant = TriggerUartByte
	c.params.TriggerByte = triggerByte
	return nil
}

func (c *Controller) SetUartBaud(baud uint32) error {
	if err := c.requireDisarmed(); err != nil {
		return err
	}
	c.params.UartBaud = baud
	return nil
}

func (c *Controller) SetAPIMode(on bool) {
	c.params.APIMode = on
}

// Reset disarms (if needed) and reverts parameters to defaults, per the
// host command surface's RESET verb.
func (c *Controller) Reset() {
	_ = c.Disarm()
	c.DisableClock()
	apiMode := c.params.APIMode
	c.params = DefaultParameters()
	c.params.APIMode = apiMode
	c.lastError = ""
}

// Arm executes spec §4.3's arm operation (Disarmed -> Armed).
func (c *Controller) Arm() error {
	if c.State() != Disarmed {
		return c.fail(ErrAlreadyArmed.Error())
	}

	c.hw.ClearFireSignal()
	c.hw.DisableTrigger()

	if err := c.hw.LoadTrigger(c.params.Variant, c.params.TriggerPin, c.params.TriggerEdge, c.params.TriggerByte, c.params.UartBaud); err != nil {
		c.hw.ClearFireIRQ()
		return c.fail(err.Error())
	}

	c.hw.ClearFireIRQ()

	c.hw.ConfigurePulse()
	widthAdj := adjustedWidth(c.params.WidthCycles)
	gapAdj := adjustedGap(c.params.GapCycles)
	c.hw.LoadPulseFIFO(c.params.PauseCycles, c.params.Count-1, widthAdj, gapAdj)

	c.hw.EnableTrigger()

	if c.clock.Enabled && c.clock.BoostActive {
		restoreHalfPeriod := baselineHalfPeriod(c.clock.FrequencyHz)
		c.hw.SetClockBoost(true, c.params.Count, restoreHalfPeriod)
		core.RecordTiming(core.EvtBoostStart, 0, core.GetTime(), c.params.Count, restoreHalfPeriod)
	}

	c.hw.SetArmedSignal(true)
	c.state = Armed
	core.RecordTiming(core.EvtArm, 0, core.GetTime(), uint32(c.params.Variant), 0)
	return nil
}

// ManualFire is spec §4.3's manual-fire path: only valid from Armed with
// variant=None.
func (c *Controller) ManualFire() error {
	if c.State() != Armed {
		return c.fail(ErrNotArmed.Error())
	}
	if c.params.Variant != TriggerNone {
		return c.fail(ErrManualFireNeedsNone.Error())
	}

	c.hw.ManualFire()
	c.completeFire()
	return nil
}

// Disarm executes spec §4.3's disarm operation (any state -> Disarmed).
// It is idempotent: calling it while already Disarmed has no observable
// effect beyond re-asserting the (already-low) signal pins.
func (c *Controller) Disarm() error {
	c.hw.SetArmedSignal(false)
	c.hw.DisablePulse()
	c.hw.DisableTrigger()
	c.hw.ClearFireIRQ()
	c.state = Disarmed
	core.RecordTiming(core.EvtDisarm, 0, core.GetTime(), 0, 0)
	return nil
}

// Tick is the explicit poll the design notes ask for in place of the
// original's side-effecting getter: call from the main loop. It observes
// pulse-engine completion via the completion IRQ and auto-disarms.
//
// A TX-FIFO-empty check is deliberately not used as a completion signal:
// the pulse program pulls its four burst parameters once at the start of a
// burst and then runs the whole COUNT*(WIDTH+GAP) loop off registers, so
// the TX FIFO drains within a few cycles of Arm — long before the burst
// actually completes. Treating that as completion would truncate every
// burst after its first pulse.
func (c *Controller) Tick() {
	if c.state != Armed {
		return
	}
	if c.params.Variant == TriggerNone {
		// Manual fires complete synchronously in ManualFire; nothing to poll.
		return
	}
	if c.hw.PulseComplete() {
		c.completeFire()
	}
}

// completeFire performs the Fired transition and immediately collapses it
// to Disarmed, incrementing FiredCounter — mirroring spec §3's "Fired is
// transient" rule applied at the point of observation.
func (c *Controller) completeFire() {
	c.state = Fired
	core.RecordTiming(core.EvtFired, 0, core.GetTime(), c.firedCount, 0)
	c.collapseFired()
}

func (c *Controller) collapseFired() {
	if c.state != Fired {
		return
	}
	c.firedCount++
	_ = c.Disarm()
}

// --- Clock generator ---

// EnableClock starts the clock generator at freqHz with the requested
// boost opt-in (spec §4.4). Disabling uses freqHz=0.
func (c *Controller) EnableClock(freqHz uint32, boost bool) error {
	if freqHz == 0 {
		c.hw.DisableClock()
		c.clock = ClockConfig{}
		return nil
	}
	if freqHz > maxClockFrequencyHz {
		return c.fail(ErrClockFrequencyTooHigh.Error())
	}
	if err := c.hw.EnableClock(freqHz); err != nil {
		return c.fail(err.Error())
	}
	c.clock = ClockConfig{FrequencyHz: freqHz, Enabled: true, BoostActive: boost}
	return nil
}

// DisableClock stops the clock generator.
func (c *Controller) DisableClock() {
	c.hw.DisableClock()
	c.clock = ClockConfig{}
}

// Clock returns a copy of the current clock configuration.
func (c *Controller) Clock() ClockConfig {
	return c.clock
}

// baselineHalfPeriod computes Y = (system_clock/2)/frequency_hz - 1, the
// half-period down-counter reload value the clock generator program uses
// to restore baseline cadence after a boost burst (spec §4.4).
func baselineHalfPeriod(freqHz uint32) uint32 {
	if freqHz == 0 {
		return 0
	}
	return (CyclesPerSecond/2)/freqHz - 1
}
