package core

// InterruptDepth exposes the open fence count to external tests
func InterruptDepth() int {
	return interruptDepth
}
