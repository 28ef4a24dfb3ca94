//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks every interrupt source, timer alarms included,
// and returns the previous mask so fences can nest inside ISRs.
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts puts back the mask saved by disableInterrupts
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
