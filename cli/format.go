package cli

// utoa converts an unsigned integer to a string without using fmt, mirroring
// core/strutil.go's convention: this is a TinyGo embedded firmware and fmt
// stays off the MCU-resident hot path.
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// itoa32 converts a signed integer to a string.
func itoa32(n int32) string {
	if n < 0 {
		return "-" + utoa(uint32(-n))
	}
	return utoa(uint32(n))
}

// microsString renders a cycle count's microsecond equivalent as "x.xx us",
// matching the original firmware's `%.2f` annotation without strconv/fmt.
func microsString(cycles uint32) string {
	// microseconds = cycles / 150, rounded to two decimal places.
	whole := cycles / 150
	remCycles := cycles % 150
	hundredths := (remCycles*100 + 75) / 150
	return utoa(whole) + "." + pad2(hundredths) + " us"
}

func pad2(n uint32) string {
	s := utoa(n)
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
