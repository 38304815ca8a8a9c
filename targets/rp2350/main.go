//go:build rp2350

package main

import (
	"machine"
	"time"

	"github.com/AdamLaurie/raiden-pico/cli"
	"github.com/AdamLaurie/raiden-pico/core"
	"github.com/AdamLaurie/raiden-pico/glitch"
	"github.com/AdamLaurie/raiden-pico/glitchpio"
	"github.com/AdamLaurie/raiden-pico/protocol"
	"github.com/AdamLaurie/raiden-pico/target"
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	dispatcher   *cli.Dispatcher
	ctrl         *glitch.Controller
	lineErrors   uint32
	rebootWanted bool
	rebootToBL   bool
)

func main() {
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	InitClock()
	core.TimerInit()
	InitDebugUART()

	engine, err := glitchpio.NewEngine(true)
	if err != nil {
		core.DebugPrintln("engine init failed: " + err.Error())
		return
	}
	ctrl = glitch.NewController(engine)

	targetUART := machine.UART1
	if err := targetUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       glitchpio.PinTargetUARTTx,
		RX:       glitchpio.PinTargetUARTRx,
	}); err != nil {
		core.DebugPrintln("target UART init failed: " + err.Error())
	}
	glitchpio.PinTargetReset.Configure(machine.PinConfig{Mode: machine.PinOutput})
	glitchpio.PinTargetReset.High()
	glitchpio.PinTargetPower.Configure(machine.PinConfig{Mode: machine.PinOutput})
	tgt := target.New(targetUART, glitchpio.PinTargetReset, glitchpio.PinTargetPower)

	dispatcher = cli.NewDispatcher(ctrl, tgt, sleepMillis, requestReboot, true)

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()
	core.InitAsyncDebug()

	go usbReaderLoop()

	var line []byte
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					lineErrors++
					core.DebugAsync("panic recovered in main loop")
					line = line[:0]
				}
			}()

			UpdateSystemTime()
			ctrl.Tick()

			if inputBuffer.Available() > 0 {
				snapshot := inputBuffer.Data()
				view := protocol.NewSliceInputBuffer(snapshot)
				consumed := 0
				for view.Available() > 0 {
					b := view.Data()[0]
					view.Pop(1)
					consumed++
					if b == '\n' || b == '\r' {
						if len(line) > 0 {
							var resp string
							if ctrl.Parameters().APIMode {
								resp = dispatcher.HandleAPI(string(line))
							} else {
								resp = dispatcher.Handle(string(line))
							}
							writeResponse(resp)
							line = line[:0]
						}
						continue
					}
					line = append(line, b)
				}
				inputBuffer.Pop(consumed)
			}

			if rebootWanted {
				doReboot(rebootToBL)
			}
		}()

		time.Sleep(200 * time.Microsecond)
	}
}

func sleepMillis(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func requestReboot(bootloader bool) {
	rebootWanted = true
	rebootToBL = bootloader
}

func doReboot(bootloader bool) {
	if bootloader {
		machine.EnterBootloader()
		return
	}
	_ = machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
	_ = machine.Watchdog.Start()
	for {
		time.Sleep(time.Millisecond)
	}
}

func writeResponse(resp string) {
	outputBuffer.Reset()
	outputBuffer.Output([]byte(resp))
	outputBuffer.Output([]byte("\r\n"))
	data := outputBuffer.Result()
	written := 0
	for written < len(data) {
		n, err := USBWriteBytes(data[written:])
		if err != nil || n == 0 {
			return
		}
		written += n
	}
}

func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			lineErrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			b, err := USBRead()
			if err != nil {
				time.Sleep(time.Millisecond)
				continue
			}
			if inputBuffer.Write([]byte{b}) == 0 {
				lineErrors++
				core.DebugAsync("input FIFO full, byte dropped")
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}
