//go:build rp2040

package hwpads

// RP2040 peripheral base addresses (RP2040 datasheet §2.3.1, §2.19.6).
const (
	ioBank0Base   = 0x40014000
	padsBank0Base = 0x4001c000
)
