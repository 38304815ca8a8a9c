//go:build rp2350

package hwpads

// RP2350 peripheral base addresses (RP2350 datasheet §3, §9): both blocks
// moved relative to RP2040, same register layout within each GPIO's slot.
const (
	ioBank0Base   = 0x40028000
	padsBank0Base = 0x40038000
)
