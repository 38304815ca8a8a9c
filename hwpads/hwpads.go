//go:build rp2040 || rp2350

// Package hwpads provides direct register access to two GPIO pad controls
// that neither machine nor the rp2-pio package expose: the per-pin output
// invert override (used to mirror the glitch pulse onto its complementary
// output pin with zero skew) and the pad isolation latch (cleared so a PIO
// program on one block can observe a pin another peripheral, or a PIO
// program on the other block, also drives).
package hwpads

import (
	"runtime/volatile"
	"unsafe"
)

// IO_BANK0 GPIOx_CTRL register layout (identical across RP2040/RP2350):
// each GPIO occupies two consecutive 32-bit registers (STATUS, CTRL);
// OUTOVER occupies CTRL bits 9:8.
const (
	gpioCtrlStride  = 8
	gpioCtrlOffset  = 4
	outOverShift    = 8
	outOverMask     = 0x3 << outOverShift
	outOverNormal   = 0x0 << outOverShift
	outOverInvert   = 0x1 << outOverShift
)

// PADS_BANK0 per-pin register layout: GPIO0's control register starts at
// offset 0x04 (offset 0x00 is VOLTAGE_SELECT), one register per pin. ISO
// is bit 6.
const (
	padsGPIO0Offset = 0x04
	padsStride      = 0x04
	padsIsoBit      = 1 << 6
)

func ioCtrlReg(pin uint8) *volatile.Register32 {
	addr := uintptr(ioBank0Base) + uintptr(pin)*gpioCtrlStride + gpioCtrlOffset
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

func padsReg(pin uint8) *volatile.Register32 {
	addr := uintptr(padsBank0Base) + padsGPIO0Offset + uintptr(pin)*padsStride
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

// SetOutputInvert sets or clears the pad-level output-invert override on
// pin, leaving every other CTRL field untouched.
func SetOutputInvert(pin uint8, invert bool) {
	reg := ioCtrlReg(pin)
	v := reg.Get() &^ uint32(outOverMask)
	if invert {
		v |= uint32(outOverInvert)
	} else {
		v |= uint32(outOverNormal)
	}
	reg.Set(v)
}

// ClearIsolation clears the pad isolation latch on pin, which the boot ROM
// otherwise leaves set on pins that reset in a high-impedance state. A pin
// driven or read by a PIO program that never went through machine's normal
// Configure path (e.g. a second PIO block observing a pin already owned by
// another peripheral) needs this cleared explicitly.
func ClearIsolation(pin uint8) {
	reg := padsReg(pin)
	reg.Set(reg.Get() &^ uint32(padsIsoBit))
}
