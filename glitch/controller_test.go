package glitch

import "testing"

// fakeHardware is an in-memory stand-in for glitchpio.Engine, recording
// calls so tests can assert on the Arm/Disarm sequencing without real PIO
// hardware.
type fakeHardware struct {
	armedSignal    bool
	fireCleared    bool
	irqCleared     bool
	pulseLoaded    bool
	pulseDisabled  bool
	pulseEnabled   bool
	triggerLoaded  TriggerVariant
	triggerEnabled bool
	manualFired    bool
	clockEnabled   bool
	clockFreq      uint32
	boostApplied   bool
	boostCount     uint32
	boostRestore   uint32

	pulseComplete bool

	loadTriggerErr error

	lastPause, lastCountMinus1, lastWidthAdj, lastGapAdj uint32
}

func (f *fakeHardware) ClearFireSignal() { f.fireCleared = true }
func (f *fakeHardware) ClearFireIRQ()    { f.irqCleared = true }
func (f *fakeHardware) SetArmedSignal(on bool) {
	f.armedSignal = on
}

func (f *fakeHardware) LoadTrigger(variant TriggerVariant, pin uint8, edge Edge, triggerByte uint8, baud uint32) error {
	if f.loadTriggerErr != nil {
		return f.loadTriggerErr
	}
	f.triggerLoaded = variant
	return nil
}
func (f *fakeHardware) EnableTrigger()  { f.triggerEnabled = true }
func (f *fakeHardware) DisableTrigger() { f.triggerEnabled = false }

func (f *fakeHardware) ConfigurePulse() { f.pulseDisabled = false }
func (f *fakeHardware) LoadPulseFIFO(pause, countMinus1, widthAdj, gapAdj uint32) {
	f.pulseLoaded = true
	f.pulseEnabled = true
	f.lastPause, f.lastCountMinus1, f.lastWidthAdj, f.lastGapAdj = pause, countMinus1, widthAdj, gapAdj
}
func (f *fakeHardware) DisablePulse() {
	f.pulseDisabled = true
	f.pulseEnabled = false
}
func (f *fakeHardware) PulseComplete() bool {
	v := f.pulseComplete
	f.pulseComplete = false
	return v
}

func (f *fakeHardware) ManualFire() { f.manualFired = true }

func (f *fakeHardware) SetClockBoost(active bool, count uint32, restoreHalfPeriod uint32) {
	f.boostApplied = active
	f.boostCount = count
	f.boostRestore = restoreHalfPeriod
}
func (f *fakeHardware) EnableClock(freqHz uint32) error {
	f.clockEnabled = true
	f.clockFreq = freqHz
	return nil
}
func (f *fakeHardware) DisableClock() {
	f.clockEnabled = false
	f.clockFreq = 0
}

func TestArmDisarmLifecycle(t *testing.T) {
	hw := &fakeHardware{}
	c := NewController(hw)

	if c.State() != Disarmed {
		t.Fatalf("expected Disarmed, got %v", c.State())
	}

	if err := c.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if c.State() != Armed {
		t.Fatalf("expected Armed, got %v", c.State())
	}
	if !hw.armedSignal {
		t.Fatal("expected ArmedSignal HIGH after arm")
	}
	if !hw.fireCleared || !hw.irqCleared {
		t.Fatal("expected FireSignal and FIRE-IRQ cleared during arm")
	}
	if !hw.pulseLoaded {
		t.Fatal("expected pulse FIFO loaded during arm")
	}

	if err := c.Arm(); err == nil {
		t.Fatal("expected error re-arming while Armed")
	}

	if err := c.Disarm(); err != nil {
		t.Fatalf("Disarm: %v", err)
	}
	if c.State() != Disarmed {
		t.Fatalf("expected Disarmed after disarm, got %v", c.State())
	}
	if hw.armedSignal {
		t.Fatal("expected ArmedSignal LOW after disarm")
	}
}

func TestParameterWritesRejectedWhileArmed(t *testing.T) {
	hw := &fakeHardware{}
	c := NewController(hw)

	if err := c.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if err := c.SetWidth(100); err == nil {
		t.Fatal("expected error writing WIDTH while Armed")
	}
	if err := c.SetCount(3); err == nil {
		t.Fatal("expected error writing COUNT while Armed")
	}
	if c.LastError() != ErrArmed.Error() {
		t.Fatalf("expected last error %q, got %q", ErrArmed.Error(), c.LastError())
	}

	if err := c.Disarm(); err != nil {
		t.Fatalf("Disarm: %v", err)
	}
	if err := c.SetWidth(100); err != nil {
		t.Fatalf("expected SetWidth to succeed once disarmed: %v", err)
	}
	if c.Parameters().WidthCycles != 100 {
		t.Fatalf("expected WidthCycles=100, got %d", c.Parameters().WidthCycles)
	}
}

func TestWidthGapOverheadCompensation(t *testing.T) {
	hw := &fakeHardware{}
	c := NewController(hw)

	_ = c.SetWidth(3) // below overhead floor (5): should saturate to 0
	_ = c.SetGap(2)

	if err := c.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if hw.lastWidthAdj != 0 {
		t.Fatalf("expected widthAdj saturated to 0, got %d", hw.lastWidthAdj)
	}
	if hw.lastGapAdj != 0 {
		t.Fatalf("expected gapAdj saturated to 0, got %d", hw.lastGapAdj)
	}
}

func TestManualFireRequiresArmedAndTriggerNone(t *testing.T) {
	hw := &fakeHardware{}
	c := NewController(hw)

	if err := c.ManualFire(); err == nil {
		t.Fatal("expected error firing while Disarmed")
	}

	if err := c.SetTriggerGPIO(EdgeRising); err != nil {
		t.Fatalf("SetTriggerGPIO: %v", err)
	}
	if err := c.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if err := c.ManualFire(); err == nil {
		t.Fatal("expected error: manual fire requires TRIGGER NONE")
	}
	_ = c.Disarm()

	if err := c.SetTriggerNone(); err != nil {
		t.Fatalf("SetTriggerNone: %v", err)
	}
	if err := c.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if err := c.ManualFire(); err != nil {
		t.Fatalf("ManualFire: %v", err)
	}
	if !hw.manualFired {
		t.Fatal("expected hardware ManualFire to have been invoked")
	}
	if c.State() != Disarmed {
		t.Fatalf("expected auto-disarm after manual fire, got %v", c.State())
	}
	if c.FiredCount() != 1 {
		t.Fatalf("expected FiredCount=1, got %d", c.FiredCount())
	}
}

func TestTickAutoDisarmsOnCompletion(t *testing.T) {
	hw := &fakeHardware{}
	c := NewController(hw)

	if err := c.SetTriggerGPIO(EdgeRising); err != nil {
		t.Fatalf("SetTriggerGPIO: %v", err)
	}
	if err := c.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	c.Tick() // nothing fired yet
	if c.State() != Armed {
		t.Fatalf("expected still Armed, got %v", c.State())
	}

	hw.pulseComplete = true
	c.Tick()
	if c.State() != Disarmed {
		t.Fatalf("expected auto-disarm after completion IRQ, got %v", c.State())
	}
	if c.FiredCount() != 1 {
		t.Fatalf("expected FiredCount=1, got %d", c.FiredCount())
	}
}

func TestArmFailsWhenTriggerHasNoRoom(t *testing.T) {
	hw := &fakeHardware{loadTriggerErr: ErrNoRoom}
	c := NewController(hw)

	_ = c.SetTriggerUART(0x42)
	if err := c.Arm(); err == nil {
		t.Fatal("expected arm to fail when trigger program has no room")
	}
	if c.State() != Disarmed {
		t.Fatalf("expected ArmState to remain Disarmed on arm failure, got %v", c.State())
	}
}

func TestClockBoostPushedOnlyWhenEnabledAndActive(t *testing.T) {
	hw := &fakeHardware{}
	c := NewController(hw)

	if err := c.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if hw.boostApplied {
		t.Fatal("expected no boost push when clock disabled")
	}
	_ = c.Disarm()

	if err := c.EnableClock(1_000_000, true); err != nil {
		t.Fatalf("EnableClock: %v", err)
	}
	if err := c.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if !hw.boostApplied {
		t.Fatal("expected boost words pushed during arm with boost active")
	}
	if hw.boostCount != c.Parameters().Count {
		t.Fatalf("expected boost count=%d, got %d", c.Parameters().Count, hw.boostCount)
	}
}

func TestReset(t *testing.T) {
	hw := &fakeHardware{}
	c := NewController(hw)

	_ = c.SetWidth(200)
	c.SetAPIMode(true)
	c.Reset()

	if c.Parameters().WidthCycles != DefaultParameters().WidthCycles {
		t.Fatalf("expected WidthCycles reset to default, got %d", c.Parameters().WidthCycles)
	}
	if !c.Parameters().APIMode {
		t.Fatal("expected APIMode to survive reset")
	}
}

func TestResetDisablesClockHardware(t *testing.T) {
	hw := &fakeHardware{}
	c := NewController(hw)

	if err := c.EnableClock(1_000_000, false); err != nil {
		t.Fatalf("EnableClock: %v", err)
	}
	if !hw.clockEnabled {
		t.Fatal("expected hardware clock enabled")
	}

	c.Reset()

	if hw.clockEnabled {
		t.Fatal("expected Reset to disable the hardware clock generator")
	}
	if c.Clock().Enabled {
		t.Fatal("expected Clock().Enabled false after Reset")
	}
}

func TestEnableClockRejectsFrequencyTooHigh(t *testing.T) {
	hw := &fakeHardware{}
	c := NewController(hw)

	if err := c.EnableClock(maxClockFrequencyHz+1, false); err == nil {
		t.Fatal("expected error enabling clock above the maximum frequency")
	}
	if hw.clockEnabled {
		t.Fatal("expected hardware clock to remain untouched when frequency is rejected")
	}
	if c.LastError() != ErrClockFrequencyTooHigh.Error() {
		t.Fatalf("expected ErrClockFrequencyTooHigh, got %q", c.LastError())
	}

	if err := c.EnableClock(maxClockFrequencyHz, false); err != nil {
		t.Fatalf("expected max frequency itself to be accepted: %v", err)
	}
}
