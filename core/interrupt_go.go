//go:build !tinygo

package core

// State is the saved interrupt state on regular Go
type State uintptr

// interruptDepth counts open fences. Interrupts are delivered synchronously
// by the simulator on regular Go, so the fence only needs to be balanced.
var interruptDepth int

// disableInterrupts opens a fence and returns the previous depth
func disableInterrupts() State {
	prev := State(interruptDepth)
	interruptDepth++
	return prev
}

// restoreInterrupts closes the fence opened by the matching disableInterrupts
func restoreInterrupts(state State) {
	interruptDepth = int(state)
}
