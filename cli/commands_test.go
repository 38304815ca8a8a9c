package cli

import (
	"strings"
	"testing"

	"github.com/AdamLaurie/raiden-pico/glitch"
	"github.com/AdamLaurie/raiden-pico/target"
)

// fakeHardware is a minimal glitch.Hardware stub exercising only what the
// command round-trip tests above the Controller layer need; the
// Controller's own semantics are already covered by glitch's package tests.
type fakeHardware struct {
	armed         bool
	pulseComplete bool
	clockFreq     uint32
}

func (f *fakeHardware) ClearFireSignal() {}
func (f *fakeHardware) ClearFireIRQ()    {}
func (f *fakeHardware) SetArmedSignal(on bool) {
	f.armed = on
}
func (f *fakeHardware) LoadTrigger(glitch.TriggerVariant, uint8, glitch.Edge, uint8, uint32) error {
	return nil
}
func (f *fakeHardware) EnableTrigger()  {}
func (f *fakeHardware) DisableTrigger() {}
func (f *fakeHardware) ConfigurePulse() {}
func (f *fakeHardware) LoadPulseFIFO(pause, countMinus1, widthAdj, gapAdj uint32) {
}
func (f *fakeHardware) DisablePulse()       {}
func (f *fakeHardware) PulseComplete() bool { return f.pulseComplete }
func (f *fakeHardware) ManualFire()         {}
func (f *fakeHardware) SetClockBoost(active bool, count, restoreHalfPeriod uint32) {}
func (f *fakeHardware) EnableClock(freqHz uint32) error {
	f.clockFreq = freqHz
	return nil
}
func (f *fakeHardware) DisableClock() { f.clockFreq = 0 }

type fakePin struct{ high bool }

func (p *fakePin) High()     { p.high = true }
func (p *fakePin) Low()      { p.high = false }
func (p *fakePin) Get() bool { return p.high }

type fakeUART struct{ sent []byte }

func (u *fakeUART) Write(p []byte) (int, error) {
	u.sent = append(u.sent, p...)
	return len(p), nil
}
func (u *fakeUART) ReadByte() (byte, error) { return 0, nil }
func (u *fakeUART) Buffered() int           { return 0 }

func newTestDispatcher() (*Dispatcher, *fakeHardware) {
	hw := &fakeHardware{}
	ctrl := glitch.NewController(hw)
	tgt := target.New(&fakeUART{}, &fakePin{}, &fakePin{})
	d := NewDispatcher(ctrl, tgt, func(uint32) {}, func(bool) {}, true)
	return d, hw
}

func TestSetAndGetRoundTrip(t *testing.T) {
	d, _ := newTestDispatcher()
	resp := d.Handle("SET PAUSE 100")
	if !strings.HasPrefix(resp, "OK:") {
		t.Fatalf("SET PAUSE: %q", resp)
	}
	resp = d.Handle("GET PAUSE")
	if !strings.Contains(resp, "100 cycles") {
		t.Fatalf("GET PAUSE: %q", resp)
	}
}

func TestAbbreviatedSetWorks(t *testing.T) {
	d, _ := newTestDispatcher()
	resp := d.Handle("SET W 50")
	if !strings.Contains(resp, "WIDTH set to 50") {
		t.Fatalf("abbreviated SET WIDTH: %q", resp)
	}
}

func TestArmGlitchDisarmLifecycle(t *testing.T) {
	d, _ := newTestDispatcher()
	if resp := d.Handle("TRIGGER NONE"); !strings.HasPrefix(resp, "OK:") {
		t.Fatalf("TRIGGER NONE: %q", resp)
	}
	if resp := d.Handle("ARM"); resp != "OK: system armed" {
		t.Fatalf("ARM: %q", resp)
	}
	if resp := d.Handle("GLITCH"); resp != "OK: glitch executed" {
		t.Fatalf("GLITCH: %q", resp)
	}
	// ManualFire auto-disarms on completion, so GLITCH again should fail.
	if resp := d.Handle("GLITCH"); !strings.HasPrefix(resp, "ERROR:") {
		t.Fatalf("expected second GLITCH to fail after auto-disarm, got %q", resp)
	}
}

func TestSetRejectedWhileArmed(t *testing.T) {
	d, _ := newTestDispatcher()
	d.Handle("TRIGGER NONE")
	d.Handle("ARM")
	resp := d.Handle("SET PAUSE 5")
	if resp != "ERROR: armed" {
		t.Fatalf("expected ERROR: armed, got %q", resp)
	}
}

func TestStatusIncludesArmedState(t *testing.T) {
	d, _ := newTestDispatcher()
	resp := d.Handle("STATUS")
	if !strings.Contains(resp, "Armed:") || !strings.Contains(resp, "Disarmed") {
		t.Fatalf("STATUS: %q", resp)
	}
}

func TestClockOnOff(t *testing.T) {
	d, hw := newTestDispatcher()
	resp := d.Handle("CLOCK 1000000 BOOST")
	if !strings.HasPrefix(resp, "OK:") {
		t.Fatalf("CLOCK on: %q", resp)
	}
	if hw.clockFreq != 1000000 {
		t.Fatalf("expected hardware clock freq set, got %d", hw.clockFreq)
	}
	resp = d.Handle("CLOCK OFF")
	if !strings.HasPrefix(resp, "OK:") {
		t.Fatalf("CLOCK off: %q", resp)
	}
	if hw.clockFreq != 0 {
		t.Fatal("expected hardware clock disabled")
	}
}

func TestTargetSendHex(t *testing.T) {
	d, _ := newTestDispatcher()
	resp := d.Handle("TARGET SEND 68656c6c6f")
	if !strings.Contains(resp, "sent 5 bytes") {
		t.Fatalf("TARGET SEND: %q", resp)
	}
}

func TestUnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher()
	resp := d.Handle("BOGUS")
	if !strings.HasPrefix(resp, "ERROR:") {
		t.Fatalf("expected error for unknown command, got %q", resp)
	}
}

func TestAmbiguousCommand(t *testing.T) {
	d, _ := newTestDispatcher()
	resp := d.Handle("T NONE")
	if !strings.Contains(resp, "ambiguous") {
		t.Fatalf("expected ambiguous TRIGGER/TARGET error, got %q", resp)
	}
}

func TestErrorVerbReportsLastError(t *testing.T) {
	d, _ := newTestDispatcher()
	if resp := d.Handle("ERROR"); resp != "OK: no error" {
		t.Fatalf("expected no error initially, got %q", resp)
	}
	d.Handle("TRIGGER NONE")
	d.Handle("ARM")
	d.Handle("SET PAUSE 5") // rejected while armed, records lastError
	if resp := d.Handle("ERROR"); resp != "ERROR: armed" {
		t.Fatalf("expected ERROR: armed, got %q", resp)
	}
}

func TestHandleAPISuppressesTextForActionCommands(t *testing.T) {
	d, _ := newTestDispatcher()
	if resp := d.HandleAPI("TRIGGER NONE"); resp != ".+" {
		t.Fatalf("expected receipt+success bytes, got %q", resp)
	}
	if resp := d.HandleAPI("ARM"); resp != ".+" {
		t.Fatalf("expected receipt+success bytes, got %q", resp)
	}
	if resp := d.HandleAPI("ARM"); resp != ".!" {
		t.Fatalf("expected receipt+failure bytes on re-arm, got %q", resp)
	}
}

func TestHandleAPIStillReturnsQueryText(t *testing.T) {
	d, _ := newTestDispatcher()
	resp := d.HandleAPI("GET PAUSE")
	if !strings.HasPrefix(resp, ".") || !strings.Contains(resp, "cycles") {
		t.Fatalf("expected receipt byte plus GET text, got %q", resp)
	}
	resp = d.HandleAPI("STATUS")
	if !strings.HasPrefix(resp, ".") || !strings.Contains(resp, "Armed:") {
		t.Fatalf("expected receipt byte plus STATUS text, got %q", resp)
	}
}

func TestHandleAPITargetReadIsQueryButSendIsNot(t *testing.T) {
	d, _ := newTestDispatcher()
	if resp := d.HandleAPI("TARGET SEND 68656c6c6f"); resp != ".+" {
		t.Fatalf("expected receipt+success bytes for TARGET SEND, got %q", resp)
	}
	if resp := d.HandleAPI("TARGET READ"); resp != ".OK: (no data)" {
		t.Fatalf("expected receipt byte plus TARGET READ text, got %q", resp)
	}
}

func TestTargetResetRejectsInvalidMillis(t *testing.T) {
	d, _ := newTestDispatcher()
	resp := d.Handle("TARGET RESET notanumber")
	if !strings.HasPrefix(resp, "ERROR:") {
		t.Fatalf("expected error for invalid reset pulse duration, got %q", resp)
	}
}

func TestTargetResetAcceptsValidMillis(t *testing.T) {
	d, _ := newTestDispatcher()
	resp := d.Handle("TARGET RESET 50")
	if resp != "OK: target reset" {
		t.Fatalf("TARGET RESET 50: %q", resp)
	}
}

func TestHelpAndVersionAndPins(t *testing.T) {
	d, _ := newTestDispatcher()
	if resp := d.Handle("HELP"); !strings.Contains(resp, "Raiden Pico Command Reference") {
		t.Fatalf("HELP: %q", resp)
	}
	if resp := d.Handle("VERSION"); !strings.Contains(resp, "Raiden Pico") {
		t.Fatalf("VERSION: %q", resp)
	}
	if resp := d.Handle("PINS"); !strings.Contains(resp, "Pin Configuration") {
		t.Fatalf("PINS: %q", resp)
	}
}
