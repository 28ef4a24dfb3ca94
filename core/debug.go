package core

import "sync"

// DebugWriter is the text-display collaborator: it writes one line and
// reports whether the display accepted it
type DebugWriter func(string) error

// TimingEvent captures a timer event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Timer     uint8  // Timer id
	Clock     uint32 // Counter value at the event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtTimerInit     = 1 // Init succeeded, v1=mode
	EvtTimerSchedule = 2 // Comparator programmed, v1=target tick
	EvtTimerCancel   = 3 // Schedule cancelled
	EvtTimerFire     = 4 // Compare-match handled, v1=1 if a callback ran
	EvtTimerOverflow = 5 // Wraparound handled, v1=1 if a callback ran
	EvtCounterReset  = 6 // Counter reset, v1=counter before reset
	EvtTimerReject   = 7 // Operation refused, v1=status, v2=event code of the operation
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	debugPrintln DebugWriter = func(s string) error { return nil }

	// debugEnabled controls whether DebugPrintln output is active
	debugEnabled bool = false

	// Timing capture ring buffer (non-blocking, for post-mortem).
	// timingSeq counts every event ever recorded; the ring slot is seq % size.
	timingRing    [TimingRingSize]TimingEvent
	timingSeq     uint32
	timingDrained uint32
	timingEnabled bool = true

	// Async debug output channel
	debugChan chan string

	// displayMu serializes writes to the text display. The async worker,
	// DebugPrintln and DumpTimingRing all write from different goroutines.
	displayMu sync.Mutex
)

// SetDebugWriter sets the platform-specific text output
func SetDebugWriter(writer DebugWriter) {
	displayMu.Lock()
	debugPrintln = writer
	displayMu.Unlock()
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// SetTimingEnabled turns event capture on or off
func SetTimingEnabled(enabled bool) {
	timingEnabled = enabled
}

// InitAsyncDebug starts the async debug output goroutine.
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker() {
	for msg := range debugChan {
		displayMu.Lock()
		if debugPrintln != nil {
			_ = debugPrintln(msg)
		}
		displayMu.Unlock()
	}
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Blocks while the display is busy; use DebugAsync from time-critical code.
func DebugPrintln(msg string) error {
	if !debugEnabled {
		return nil
	}
	displayMu.Lock()
	defer displayMu.Unlock()
	if debugPrintln != nil {
		return debugPrintln(msg)
	}
	return nil
}

// DebugAsync queues a debug message for async output.
// Drops the message if the queue is full or InitAsyncDebug was not called.
func DebugAsync(msg string) bool {
	if debugChan == nil {
		return false
	}
	select {
	case debugChan <- msg:
		return true
	default:
		return false
	}
}

// RecordTiming captures an event in the ring buffer.
// Callers hold the interrupt fence, so ISRs and normal code never interleave here.
func RecordTiming(eventType, timer uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	timingRing[timingSeq%TimingRingSize] = TimingEvent{
		EventType: eventType,
		Timer:     timer,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingSeq++
}

// DrainTimingRing hands every event recorded since the previous drain to fn,
// oldest first. Events overwritten before they were drained are skipped.
// Returns the number of events lost that way.
func DrainTimingRing(fn func(TimingEvent)) uint32 {
	state := disableInterrupts()
	start := timingDrained
	end := timingSeq
	var lost uint32
	if end-start > TimingRingSize {
		lost = end - start - TimingRingSize
		start = end - TimingRingSize
	}
	var batch [TimingRingSize]TimingEvent
	n := 0
	for seq := start; seq != end; seq++ {
		batch[n] = timingRing[seq%TimingRingSize]
		n++
	}
	timingDrained = end
	restoreInterrupts(state)

	// fn runs outside the fence, it may write to a slow display or link
	for i := 0; i < n; i++ {
		fn(batch[i])
	}
	return lost
}

// EventName returns the short display name of an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtTimerInit:
		return "INIT"
	case EvtTimerSchedule:
		return "SCHED"
	case EvtTimerCancel:
		return "CANCEL"
	case EvtTimerFire:
		return "FIRE"
	case EvtTimerOverflow:
		return "OVF"
	case EvtCounterReset:
		return "RESET"
	case EvtTimerReject:
		return "REJECT!"
	}
	return "UNKNOWN"
}

// FormatEvent renders an event as one display line
func FormatEvent(evt TimingEvent) string {
	return "[TIMER] " + EventName(evt.EventType) +
		" id=" + utoa(uint32(evt.Timer)) +
		" tick=" + utoa(evt.Clock) +
		" v1=" + utoa(evt.Value1) +
		" v2=" + utoa(evt.Value2)
}

// DumpTimingRing writes the ring buffer through the debug writer, oldest
// first. The display is held for the whole dump so queued debug lines land
// before or after it.
func DumpTimingRing() error {
	displayMu.Lock()
	defer displayMu.Unlock()
	if debugPrintln == nil {
		return nil
	}

	state := disableInterrupts()
	ring := timingRing
	seq := timingSeq
	restoreInterrupts(state)

	if err := debugPrintln("[TIMER] === Timing Ring Dump ==="); err != nil {
		return err
	}
	for i := uint32(0); i < TimingRingSize; i++ {
		evt := &ring[(seq+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		if err := debugPrintln(FormatEvent(*evt)); err != nil {
			return err
		}
	}
	return debugPrintln("[TIMER] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingSeq = 0
	timingDrained = 0
}
