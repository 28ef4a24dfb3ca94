package core

// TimerID identifies one physical timer peripheral, 0 <= id < HWTimerNum
type TimerID uint8

// Tick is one unit of a timer's free-running 16-bit counter
type Tick uint16

// FrequencyMode selects the tick rate of a timer
type FrequencyMode uint8

const (
	// Freq1MS runs the counter at 1024 ticks per second (~1ms per tick)
	Freq1MS FrequencyMode = 0
	// Freq32K runs the counter at 32768 ticks per second
	Freq32K FrequencyMode = 1

	Ticks1MS = 1024
	Ticks32K = 32768
)

// Valid reports whether the mode is one the bank supports
func (m FrequencyMode) Valid() bool {
	return m == Freq1MS || m == Freq32K
}

func (m FrequencyMode) String() string {
	switch m {
	case Freq1MS:
		return "1ms"
	case Freq32K:
		return "32k"
	}
	return "freq(" + utoa(uint32(m)) + ")"
}

// TimerCallback is invoked from interrupt context with interrupts disabled.
// It must return quickly, must not block and must not allocate. A nil
// callback disables notification for its event class.
type TimerCallback func()

// InterruptSink receives the timer interrupts raised by a TimerDriver.
// TimerBank implements it.
type InterruptSink interface {
	// HandleCompare is called when the counter reached the comparator value
	HandleCompare(id TimerID)

	// HandleOverflow is called when the counter wrapped from its maximum to zero
	HandleOverflow(id TimerID)
}

// TimerDriver is the abstract timer peripheral interface the bank uses.
// Platform-specific implementations own registers, prescalers and the
// interrupt vectors. Callers guarantee id < HWTimerNum.
type TimerDriver interface {
	// Configure sets the tick rate for a timer and starts its counter.
	// Returns ErrUnsupported if the platform cannot run that mode.
	Configure(id TimerID, mode FrequencyMode) error

	// Counter reads the free-running counter
	Counter(id TimerID) Tick

	// ResetCounter sets the counter to zero without raising an overflow
	ResetCounter(id TimerID)

	// SetCompare programs the comparator register
	SetCompare(id TimerID, tick Tick)

	// EnableCompareIRQ / DisableCompareIRQ gate the comparator interrupt source
	EnableCompareIRQ(id TimerID)
	DisableCompareIRQ(id TimerID)

	// CompareIRQEnabled reports whether the comparator interrupt is enabled
	CompareIRQEnabled(id TimerID) bool

	// EnableOverflowIRQ enables the wraparound interrupt source
	EnableOverflowIRQ(id TimerID)

	// ComparePending / OverflowPending read the latched interrupt flags
	ComparePending(id TimerID) bool
	OverflowPending(id TimerID) bool

	// ClearCompare / ClearOverflow acknowledge a latched interrupt flag
	ClearCompare(id TimerID)
	ClearOverflow(id TimerID)

	// Attach installs the sink the interrupt handlers forward to
	Attach(sink InterruptSink)
}

// Global bank used by the command handlers and firmware main loops.
var hwTimers *TimerBank

// SetTimerDriver is called by target-specific code to register its driver.
// It binds a fresh TimerBank to the driver.
func SetTimerDriver(d TimerDriver) {
	hwTimers = NewTimerBank(d)
}

// MustTimers returns the configured bank or panics if missing.
func MustTimers() *TimerBank {
	if hwTimers == nil {
		panic("timer driver not configured")
	}
	return hwTimers
}
