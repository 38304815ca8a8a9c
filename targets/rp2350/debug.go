//go:build rp2350

package main

import (
	"machine"

	"github.com/AdamLaurie/raiden-pico/core"
)

var debugUART *machine.UART

// InitDebugUART configures UART1 on GPIO36 (TX) and GPIO37 (RX) as the
// debug log sink and wires it into core's debug writer, so core.DebugPrintln
// reaches this UART whenever DEBUG ON is active.
func InitDebugUART() {
	debugUART = machine.UART1

	if err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO36,
		RX:       machine.GPIO37,
	}); err != nil {
		return
	}

	core.SetDebugWriter(func(s string) {
		debugUART.Write([]byte(s))
		debugUART.Write([]byte("\r\n"))
	})
}
