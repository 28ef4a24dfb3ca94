//go:build rp2040

package main

import (
	"machine"
	"time"

	"hwtimer/core"
	"hwtimer/protocol"
)

const (
	heartbeatTimer  = core.TimerID(0)
	heartbeatMillis = 500
)

var (
	// Link state
	decoder      *protocol.FrameDecoder
	outputBuffer *protocol.ScratchOutput
	encoder      *protocol.FrameEncoder
	readBuf      [64]byte

	// Debug counters
	framesReceived uint32
	msgerrors      uint32
	eventsLost     uint32

	consecutiveWriteFailures uint32

	led            = machine.LED
	heartbeatDelay = core.Tick(core.TicksFromMillis(core.Freq1MS, heartbeatMillis))
)

func main() {
	// Disable the watchdog in case it survived a reset
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()

	if lcd, err := newLCDConsole(); err == nil {
		core.SetDebugWriter(lcd.WriteLine)
		core.InitAsyncDebug()
		core.SetDebugEnabled(true)
	}

	core.SetTimerDriver(newAlarmDriver())
	core.InitTimerCommands()

	decoder = protocol.NewFrameDecoder(protocol.MessageToDevice)
	outputBuffer = protocol.NewScratchOutput()
	encoder = protocol.NewFrameEncoder(outputBuffer, protocol.MessageToHost)

	startHeartbeat()
	core.DebugAsync("hwtimer " + protocol.Version)

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					outputBuffer.Reset()
				}
			}()

			if USBAvailable() > 0 && decoder.Free() > 0 {
				n := decoder.Free()
				if n > len(readBuf) {
					n = len(readBuf)
				}
				decoder.Write(readBuf[:USBRead(readBuf[:n])])
			}

			for {
				frame, ok := decoder.Next()
				if !ok {
					break
				}
				framesReceived++
				if err := core.DispatchCommand(frame.Payload, encoder); err != nil {
					msgerrors++
				}
			}

			eventsLost += core.SendTimingEvents(encoder)
			writeUSB()
		}()

		time.Sleep(100 * time.Microsecond)
	}
}

// startHeartbeat blinks the LED from timer 0's compare interrupt
func startHeartbeat() {
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	timers := core.MustTimers()
	if err := timers.Init(heartbeatTimer, core.Freq1MS, heartbeat, nil); err != nil {
		core.DebugAsync("heartbeat: " + core.StatusOf(err).String())
		return
	}
	_ = timers.ScheduleDelay(heartbeatTimer, heartbeatDelay)
}

// heartbeat runs in interrupt context and re-arms itself
func heartbeat() {
	led.Set(!led.Get())
	_ = core.MustTimers().ScheduleDelay(heartbeatTimer, heartbeatDelay)
}

// writeUSB flushes the output buffer to USB
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}

	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			// Host gone, drop stale data after repeated failures
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
