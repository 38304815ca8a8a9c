package cli

import (
	"strconv"
	"strings"

	"github.com/AdamLaurie/raiden-pico/core"
	"github.com/AdamLaurie/raiden-pico/glitch"
	"github.com/AdamLaurie/raiden-pico/target"
)

const version = "Raiden Pico Glitcher v0.3 (Go)"

var primaryCommands = []string{
	"SET", "GET", "TRIGGER", "ARM", "DISARM", "GLITCH", "STATUS", "PINS",
	"RESET", "REBOOT", "DEBUG", "API", "HELP", "VERSION", "CLOCK", "TARGET",
	"ERROR",
}

// API-mode acknowledgement bytes (spec §6.1): every command receives a "."
// on receipt, then "+" on success or "!" on failure; explicit query verbs
// instead return their normal human-oriented text after the ".", with no
// "+"/"!" byte.
const (
	apiReceiptByte = "."
	apiSuccessByte = "+"
	apiFailureByte = "!"
)

var setGetVariables = []string{"PAUSE", "WIDTH", "GAP", "COUNT", "UARTBAUD"}
var triggerTypes = []string{"NONE", "GPIO", "UART"}
var edges = []string{"RISING", "FALLING"}
var onOff = []string{"ON", "OFF"}
var targetSubcommands = []string{"SEND", "READ", "RESET", "POWER"}
var powerStates = []string{"ON", "OFF", "CYCLE"}

// Dispatcher is the line-oriented command surface described by spec §6.1,
// generalized from the original firmware's unique-prefix command_parser
// into a reusable handler over a glitch.Controller and an optional target
// interface.
type Dispatcher struct {
	ctrl     *glitch.Controller
	tgt      *target.Target
	sleepMs  func(uint32)
	reboot   func(bootloader bool)
	boostCap bool
}

// NewDispatcher builds a Dispatcher. sleepMs and reboot are injected so the
// package stays testable on host; tgt may be nil if no target is wired.
func NewDispatcher(ctrl *glitch.Controller, tgt *target.Target, sleepMs func(uint32), reboot func(bool), boostCapable bool) *Dispatcher {
	return &Dispatcher{ctrl: ctrl, tgt: tgt, sleepMs: sleepMs, reboot: reboot, boostCap: boostCapable}
}

// Handle parses and executes a single command line, returning the response
// text (without trailing CRLF; the caller's transport appends line
// endings). Handle always returns full OK:/ERROR: text; callers running in
// API mode should use HandleAPI instead, which applies the single-byte
// acknowledgement framing.
func (d *Dispatcher) Handle(line string) string {
	parts := tokenize(line)
	if len(parts) == 0 {
		return ""
	}

	cmd, ambiguous := matchPrefix(parts[0], primaryCommands)
	if ambiguous {
		return "ERROR: ambiguous command '" + parts[0] + "'"
	}

	switch cmd {
	case "SET":
		return d.cmdSet(parts)
	case "GET":
		return d.cmdGet(parts)
	case "TRIGGER":
		return d.cmdTrigger(parts)
	case "ARM":
		return d.cmdArm()
	case "DISARM":
		return d.cmdDisarm()
	case "GLITCH":
		return d.cmdGlitch()
	case "STATUS":
		return d.cmdStatus()
	case "PINS":
		return d.cmdPins()
	case "RESET":
		d.ctrl.Reset()
		return "OK: system reset"
	case "REBOOT":
		return d.cmdReboot(parts)
	case "DEBUG":
		return d.cmdDebug(parts)
	case "API":
		return d.cmdAPI(parts)
	case "HELP":
		return strings.TrimRight(helpText, "\r\n")
	case "VERSION":
		return version
	case "CLOCK":
		return d.cmdClock(parts)
	case "TARGET":
		return d.cmdTarget(parts)
	case "ERROR":
		return d.cmdError()
	}
	return "ERROR: unknown command '" + parts[0] + "'"
}

// HandleAPI parses and executes a single command line under the API-mode
// acknowledgement protocol (spec §6.1): a "." receipt byte precedes every
// response. Explicit query verbs (GET, STATUS, PINS, HELP, VERSION, ERROR,
// a bare API/DEBUG query, or TARGET READ) still return their human-oriented
// text; every other command has its text suppressed in favor of a trailing
// "+" (success) or "!" (failure) byte.
func (d *Dispatcher) HandleAPI(line string) string {
	parts := tokenize(line)
	if len(parts) == 0 {
		return ""
	}

	cmd, ambiguous := matchPrefix(parts[0], primaryCommands)
	if ambiguous {
		return apiReceiptByte + apiFailureByte
	}

	resp := d.Handle(line)

	if d.isQueryVerb(cmd, parts) {
		return apiReceiptByte + resp
	}
	if strings.HasPrefix(resp, "ERROR") {
		return apiReceiptByte + apiFailureByte
	}
	return apiReceiptByte + apiSuccessByte
}

func (d *Dispatcher) isQueryVerb(cmd string, parts []string) bool {
	switch cmd {
	case "GET", "STATUS", "PINS", "HELP", "VERSION", "ERROR":
		return true
	case "API", "DEBUG":
		return len(parts) < 2
	case "TARGET":
		if len(parts) < 2 {
			return false
		}
		sub, ambiguous := matchPrefix(parts[1], targetSubcommands)
		return !ambiguous && sub == "READ"
	}
	return false
}

func (d *Dispatcher) cmdError() string {
	if msg := d.ctrl.LastError(); msg != "" {
		return "ERROR: " + msg
	}
	return "OK: no error"
}

func parseUint(s string) (uint32, bool) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

func (d *Dispatcher) cmdSet(parts []string) string {
	if len(parts) != 3 {
		return "ERROR: usage: SET <PAUSE|WIDTH|GAP|COUNT|UARTBAUD> <value>"
	}
	variable, ambiguous := matchPrefix(parts[1], setGetVariables)
	if ambiguous {
		return "ERROR: ambiguous variable name '" + parts[1] + "'"
	}
	value, ok := parseUint(parts[2])
	if !ok {
		return "ERROR: invalid numeric value '" + parts[2] + "'"
	}

	var err error
	switch variable {
	case "PAUSE":
		err = d.ctrl.SetPause(value)
	case "WIDTH":
		err = d.ctrl.SetWidth(value)
	case "GAP":
		err = d.ctrl.SetGap(value)
	case "COUNT":
		err = d.ctrl.SetCount(value)
	case "UARTBAUD":
		err = d.ctrl.SetUartBaud(value)
	default:
		return "ERROR: unknown variable '" + parts[1] + "'"
	}
	if err != nil {
		return "ERROR: " + err.Error()
	}
	return "OK: " + variable + " set to " + utoa(value) + " (" + microsString(value) + ")"
}

func (d *Dispatcher) cmdGet(parts []string) string {
	if len(parts) != 2 {
		return "ERROR: usage: GET <PAUSE|WIDTH|GAP|COUNT|UARTBAUD>"
	}
	variable, ambiguous := matchPrefix(parts[1], setGetVariables)
	if ambiguous {
		return "ERROR: ambiguous variable name '" + parts[1] + "'"
	}
	p := d.ctrl.Parameters()
	switch variable {
	case "PAUSE":
		return utoa(p.PauseCycles) + " cycles (" + microsString(p.PauseCycles) + ")"
	case "WIDTH":
		return utoa(p.WidthCycles) + " cycles (" + microsString(p.WidthCycles) + ")"
	case "GAP":
		return utoa(p.GapCycles) + " cycles (" + microsString(p.GapCycles) + ")"
	case "COUNT":
		return utoa(p.Count)
	case "UARTBAUD":
		return utoa(p.UartBaud)
	}
	return "ERROR: unknown variable '" + parts[1] + "'"
}

func (d *Dispatcher) cmdTrigger(parts []string) string {
	if len(parts) < 2 {
		return "ERROR: usage: TRIGGER <NONE|GPIO|UART>"
	}
	kind, ambiguous := matchPrefix(parts[1], triggerTypes)
	if ambiguous {
		return "ERROR: ambiguous trigger type '" + parts[1] + "'"
	}
	switch kind {
	case "NONE":
		if err := d.ctrl.SetTriggerNone(); err != nil {
			return "ERROR: " + err.Error()
		}
		return "OK: trigger disabled"
	case "GPIO":
		if len(parts) < 3 {
			return "ERROR: usage: TRIGGER GPIO <RISING|FALLING>"
		}
		edgeStr, ambiguous := matchPrefix(parts[2], edges)
		if ambiguous {
			return "ERROR: ambiguous edge '" + parts[2] + "'"
		}
		edge := glitch.EdgeRising
		if edgeStr == "FALLING" {
			edge = glitch.EdgeFalling
		} else if edgeStr != "RISING" {
			return "ERROR: usage: TRIGGER GPIO <RISING|FALLING>"
		}
		if err := d.ctrl.SetTriggerGPIO(edge); err != nil {
			return "ERROR: " + err.Error()
		}
		return "OK: GPIO trigger, " + edgeStr + " edge"
	case "UART":
		if len(parts) < 3 {
			return "ERROR: usage: TRIGGER UART <byte>"
		}
		b, ok := parseHexOrDecByte(parts[2])
		if !ok {
			return "ERROR: invalid byte value '" + parts[2] + "'"
		}
		if err := d.ctrl.SetTriggerUART(b); err != nil {
			return "ERROR: " + err.Error()
		}
		return "OK: UART trigger on byte 0x" + hexByte(b)
	}
	return "ERROR: unknown trigger type '" + parts[1] + "'"
}

func parseHexOrDecByte(s string) (uint8, bool) {
	trimmed := s
	if strings.HasPrefix(strings.ToUpper(trimmed), "0X") {
		trimmed = trimmed[2:]
	}
	if n, err := strconv.ParseUint(trimmed, 16, 8); err == nil {
		return uint8(n), true
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		return uint8(n), true
	}
	return 0, false
}

const hexDigits = "0123456789ABCDEF"

func hexByte(b uint8) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0xf]})
}

func (d *Dispatcher) cmdArm() string {
	if err := d.ctrl.Arm(); err != nil {
		return "ERROR: " + err.Error()
	}
	return "OK: system armed"
}

func (d *Dispatcher) cmdDisarm() string {
	_ = d.ctrl.Disarm()
	return "OK: system disarmed"
}

func (d *Dispatcher) cmdGlitch() string {
	if err := d.ctrl.ManualFire(); err != nil {
		return "ERROR: " + err.Error()
	}
	return "OK: glitch executed"
}

func (d *Dispatcher) cmdStatus() string {
	p := d.ctrl.Parameters()
	var b strings.Builder
	b.WriteString("=== System Status ===\r\n")
	b.WriteString("Armed:        " + d.ctrl.State().String() + "\r\n")
	b.WriteString("Fired count:  " + utoa(d.ctrl.FiredCount()) + "\r\n")
	b.WriteString("Pause:        " + utoa(p.PauseCycles) + " cycles (" + microsString(p.PauseCycles) + ")\r\n")
	b.WriteString("Width:        " + utoa(p.WidthCycles) + " cycles (" + microsString(p.WidthCycles) + ")\r\n")
	b.WriteString("Gap:          " + utoa(p.GapCycles) + " cycles (" + microsString(p.GapCycles) + ")\r\n")
	b.WriteString("Count:        " + utoa(p.Count) + "\r\n")
	b.WriteString("Trigger:      " + p.Variant.String() + "\r\n")
	if p.Variant == glitch.TriggerUartByte {
		b.WriteString("UART byte:    0x" + hexByte(p.TriggerByte) + "\r\n")
		b.WriteString("UART baud:    " + utoa(p.UartBaud) + "\r\n")
	}
	if p.Variant == glitch.TriggerGpioEdge {
		b.WriteString("Trigger edge: " + p.TriggerEdge.String() + "\r\n")
	}
	clk := d.ctrl.Clock()
	if clk.Enabled {
		b.WriteString("Clock:        " + utoa(clk.FrequencyHz) + " Hz, boost=" + boolOnOff(clk.BoostActive) + "\r\n")
	} else {
		b.WriteString("Clock:        disabled\r\n")
	}
	return strings.TrimRight(b.String(), "\r\n")
}

func boolOnOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func (d *Dispatcher) cmdPins() string {
	return strings.TrimRight(pinsText, "\r\n")
}

func (d *Dispatcher) cmdReboot(parts []string) string {
	bootloader := len(parts) >= 2 && (parts[1] == "BL" || strings.HasPrefix("BOOTLOADER", parts[1]))
	if d.reboot != nil {
		d.reboot(bootloader)
	}
	if bootloader {
		return "rebooting into bootloader mode..."
	}
	return "rebooting..."
}

func (d *Dispatcher) cmdDebug(parts []string) string {
	if len(parts) < 2 {
		if core.IsDebugEnabled() {
			return "debug mode: ON"
		}
		return "debug mode: OFF"
	}
	if strings.HasPrefix("DUMP", parts[1]) {
		core.DumpTimingRing()
		return "OK: timing ring dumped"
	}
	state, ambiguous := matchPrefix(parts[1], onOff)
	if ambiguous {
		return "ERROR: usage: DEBUG [ON|OFF|DUMP]"
	}
	switch state {
	case "ON":
		core.SetDebugEnabled(true)
		return "OK: debug mode enabled"
	case "OFF":
		core.SetDebugEnabled(false)
		return "OK: debug mode disabled"
	}
	return "ERROR: usage: DEBUG [ON|OFF]"
}

func (d *Dispatcher) cmdAPI(parts []string) string {
	if len(parts) < 2 {
		if d.ctrl.Parameters().APIMode {
			return "API mode: ON"
		}
		return "API mode: OFF"
	}
	state, ambiguous := matchPrefix(parts[1], onOff)
	if ambiguous {
		return "ERROR: usage: API [ON|OFF]"
	}
	switch state {
	case "ON":
		d.ctrl.SetAPIMode(true)
		return "OK: API mode enabled"
	case "OFF":
		d.ctrl.SetAPIMode(false)
		return "OK: API mode disabled"
	}
	return "ERROR: usage: API [ON|OFF]"
}

func (d *Dispatcher) cmdClock(parts []string) string {
	if len(parts) < 2 {
		return "ERROR: usage: CLOCK <freq_hz>|OFF [BOOST]"
	}
	if strings.EqualFold(parts[1], "OFF") || parts[1] == "0" {
		if err := d.ctrl.EnableClock(0, false); err != nil {
			return "ERROR: " + err.Error()
		}
		return "OK: clock disabled"
	}
	freq, ok := parseUint(parts[1])
	if !ok || freq == 0 {
		return "ERROR: invalid frequency '" + parts[1] + "'"
	}
	boost := len(parts) >= 3 && strings.HasPrefix("BOOST", parts[2])
	if boost && !d.boostCap {
		return "ERROR: boost not available on this build"
	}
	if err := d.ctrl.EnableClock(freq, boost); err != nil {
		return "ERROR: " + err.Error()
	}
	return "OK: clock enabled at " + utoa(freq) + " Hz, boost=" + boolOnOff(boost)
}

func (d *Dispatcher) cmdTarget(parts []string) string {
	if d.tgt == nil {
		return "ERROR: no target interface configured"
	}
	if len(parts) < 2 {
		return "ERROR: usage: TARGET <SEND|READ|RESET|POWER>"
	}
	sub, ambiguous := matchPrefix(parts[1], targetSubcommands)
	if ambiguous {
		return "ERROR: ambiguous TARGET sub-command '" + parts[1] + "'"
	}
	switch sub {
	case "SEND":
		if len(parts) < 3 {
			return "ERROR: usage: TARGET SEND <hex-bytes>"
		}
		data, ok := parseHexBytes(parts[2])
		if !ok {
			return "ERROR: invalid hex data '" + parts[2] + "'"
		}
		n, err := d.tgt.Send(data)
		if err != nil {
			return "ERROR: " + err.Error()
		}
		return "OK: sent " + utoa(uint32(n)) + " bytes"
	case "READ":
		data := d.tgt.ReadAvailable()
		if len(data) == 0 {
			return "OK: (no data)"
		}
		return "OK: " + hexBytes(data)
	case "RESET":
		if len(parts) >= 3 {
			ms, ok := parseUint(parts[2])
			if !ok {
				return "ERROR: invalid reset pulse duration '" + parts[2] + "'"
			}
			d.tgt.SetResetPulseMillis(ms)
		}
		if err := d.tgt.Reset(d.sleepMs); err != nil {
			return "ERROR: " + err.Error()
		}
		return "OK: target reset"
	case "POWER":
		if len(parts) < 3 {
			return "ERROR: usage: TARGET POWER <ON|OFF|CYCLE>"
		}
		state, ambiguous := matchPrefix(parts[2], powerStates)
		if ambiguous {
			return "ERROR: ambiguous power state '" + parts[2] + "'"
		}
		var err error
		switch state {
		case "ON":
			err = d.tgt.PowerOn()
		case "OFF":
			err = d.tgt.PowerOff()
		case "CYCLE":
			err = d.tgt.PowerCycle(d.sleepMs)
		default:
			return "ERROR: usage: TARGET POWER <ON|OFF|CYCLE>"
		}
		if err != nil {
			return "ERROR: " + err.Error()
		}
		return "OK: target power " + state
	}
	return "ERROR: unknown TARGET sub-command '" + parts[1] + "'"
}

func parseHexBytes(s string) ([]byte, bool) {
	if len(s)%2 != 0 {
		return nil, false
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		n, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, false
		}
		out[i] = byte(n)
	}
	return out, true
}

func hexBytes(data []byte) string {
	var b strings.Builder
	for _, v := range data {
		b.WriteString(hexByte(v))
	}
	return b.String()
}
