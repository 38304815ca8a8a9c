package glitch

import "testing"

func TestAdjustedWidthSaturatesAtFloor(t *testing.T) {
	cases := []struct{ in, want uint32 }{
		{0, 0},
		{PulseOverheadCycles, 0},
		{PulseOverheadCycles + 1, 1},
		{PulseOverheadCycles + 100, 100},
	}
	for _, c := range cases {
		if got := adjustedWidth(c.in); got != c.want {
			t.Errorf("adjustedWidth(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestAdjustedGapSaturatesAtFloor(t *testing.T) {
	if got := adjustedGap(0); got != 0 {
		t.Errorf("adjustedGap(0) = %d, want 0", got)
	}
	if got := adjustedGap(PulseOverheadCycles + 10); got != 10 {
		t.Errorf("adjustedGap(overhead+10) = %d, want 10", got)
	}
}

func TestCyclesMicrosRoundTrip(t *testing.T) {
	us := CyclesToMicros(150)
	if us != 1.0 {
		t.Errorf("CyclesToMicros(150) = %v, want 1.0", us)
	}
	if got := MicrosToCycles(1.0); got != 150 {
		t.Errorf("MicrosToCycles(1.0) = %d, want 150", got)
	}
}

func TestDefaultParameters(t *testing.T) {
	p := DefaultParameters()
	if p.Variant != TriggerNone {
		t.Errorf("expected default TriggerNone, got %v", p.Variant)
	}
	if p.Count != 1 {
		t.Errorf("expected default Count=1, got %d", p.Count)
	}
	if p.WidthCycles <= PulseOverheadCycles {
		t.Error("expected default WidthCycles above the overhead floor")
	}
}
