package core

// timerRecord is the per-timer state owned by the bank.
// scheduled is only ever true while initialized is true.
type timerRecord struct {
	initialized bool
	scheduled   bool
	mode        FrequencyMode
	compare     TimerCallback
	overflow    TimerCallback
}

// TimerBank maps each TimerID 1:1 onto a hardware timer and dispatches its
// compare-match and overflow interrupts to the installed callbacks.
//
// Every mutation happens inside the interrupt fence, so normal-context calls
// and the interrupt handlers never observe a half-updated record.
type TimerBank struct {
	drv    TimerDriver
	timers [HWTimerNum]timerRecord
}

// NewTimerBank creates a bank on top of a driver and attaches itself as the
// driver's interrupt sink
func NewTimerBank(drv TimerDriver) *TimerBank {
	b := &TimerBank{drv: drv}
	drv.Attach(b)
	return b
}

// record returns the bounds-checked record for id
func (b *TimerBank) record(id TimerID) (*timerRecord, error) {
	if int(id) >= len(b.timers) {
		return nil, ErrOutOfRange
	}
	return &b.timers[id], nil
}

// liveRecord returns the record for id if it has been initialized
func (b *TimerBank) liveRecord(id TimerID) (*timerRecord, error) {
	rec, err := b.record(id)
	if err != nil {
		return nil, err
	}
	if !rec.initialized {
		return nil, ErrNotInitialized
	}
	return rec, nil
}

// reject traces a refused operation and returns err unchanged
func (b *TimerBank) reject(op uint8, id TimerID, err error) error {
	RecordTiming(EvtTimerReject, uint8(id), 0, uint32(StatusOf(err)), uint32(op))
	return err
}

// Init configures a timer's tick rate and installs its callbacks.
// Either callback may be nil. The counter is left running untouched and the
// timer starts idle. A timer can only be initialized once.
func (b *TimerBank) Init(id TimerID, mode FrequencyMode, compare, overflow TimerCallback) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	rec, err := b.record(id)
	if err != nil {
		return b.reject(EvtTimerInit, id, err)
	}
	if !mode.Valid() {
		return b.reject(EvtTimerInit, id, ErrUnsupported)
	}
	if rec.initialized {
		return b.reject(EvtTimerInit, id, ErrAlreadyInitialized)
	}

	if err := b.drv.Configure(id, mode); err != nil {
		return b.reject(EvtTimerInit, id, err)
	}

	// Drop anything latched before the timer belonged to us
	b.drv.DisableCompareIRQ(id)
	b.drv.ClearCompare(id)
	b.drv.ClearOverflow(id)
	b.drv.EnableOverflowIRQ(id)

	rec.mode = mode
	rec.compare = compare
	rec.overflow = overflow
	rec.scheduled = false
	rec.initialized = true

	RecordTiming(EvtTimerInit, uint8(id), uint32(b.drv.Counter(id)), uint32(mode), 0)
	return nil
}

// Schedule arms the timer to fire once when the counter reaches tick.
// A pending schedule is replaced. The comparison wraps: a tick at or below
// the current counter value fires after the next wraparound.
func (b *TimerBank) Schedule(id TimerID, tick Tick) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	rec, err := b.liveRecord(id)
	if err != nil {
		return b.reject(EvtTimerSchedule, id, err)
	}

	b.drv.DisableCompareIRQ(id)
	b.drv.ClearCompare(id)
	b.drv.SetCompare(id, tick)
	b.drv.EnableCompareIRQ(id)
	rec.scheduled = true

	RecordTiming(EvtTimerSchedule, uint8(id), uint32(b.drv.Counter(id)), uint32(tick), 0)
	return nil
}

// ScheduleDelay schedules the timer delay ticks after the current counter value.
// The counter keeps running between the read and the schedule, so the real
// delay may be slightly longer.
func (b *TimerBank) ScheduleDelay(id TimerID, delay Tick) error {
	return b.Schedule(id, b.GetValue(id)+delay)
}

// Cancel disarms the timer. Cancelling an idle timer is not an error.
// A compare-match already latched but not yet handled is discarded.
func (b *TimerBank) Cancel(id TimerID) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	rec, err := b.liveRecord(id)
	if err != nil {
		return b.reject(EvtTimerCancel, id, err)
	}

	b.disarm(id, rec)
	RecordTiming(EvtTimerCancel, uint8(id), uint32(b.drv.Counter(id)), 0, 0)
	return nil
}

// CounterReset sets the counter back to zero and cancels any pending schedule.
// The overflow callback is not invoked, and an overflow latched before the
// reset is discarded with the old counter.
func (b *TimerBank) CounterReset(id TimerID) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	rec, err := b.liveRecord(id)
	if err != nil {
		return b.reject(EvtCounterReset, id, err)
	}

	b.disarm(id, rec)
	before := b.drv.Counter(id)
	b.drv.ResetCounter(id)
	b.drv.ClearOverflow(id)

	RecordTiming(EvtCounterReset, uint8(id), 0, uint32(before), 0)
	return nil
}

// disarm must be called inside the fence
func (b *TimerBank) disarm(id TimerID, rec *timerRecord) {
	b.drv.DisableCompareIRQ(id)
	b.drv.ClearCompare(id)
	rec.scheduled = false
}

// GetValue returns the counter value, or 0 if id is out of range or the
// timer is not initialized
func (b *TimerBank) GetValue(id TimerID) Tick {
	if int(id) >= len(b.timers) || !b.timers[id].initialized {
		return 0
	}
	return b.drv.Counter(id)
}

// IsOverflowPending reports whether a wraparound happened whose handler has not run yet
func (b *TimerBank) IsOverflowPending(id TimerID) bool {
	if int(id) >= len(b.timers) || !b.timers[id].initialized {
		return false
	}
	return b.drv.OverflowPending(id)
}

// IsInterruptPending reports whether the scheduled tick was reached but the
// handler has not run yet
func (b *TimerBank) IsInterruptPending(id TimerID) bool {
	if int(id) >= len(b.timers) || !b.timers[id].initialized {
		return false
	}
	return b.drv.CompareIRQEnabled(id) && b.drv.ComparePending(id)
}

// IsInitialized reports whether Init succeeded for id
func (b *TimerBank) IsInitialized(id TimerID) bool {
	return int(id) < len(b.timers) && b.timers[id].initialized
}

// IsScheduled reports whether id has an armed comparator target
func (b *TimerBank) IsScheduled(id TimerID) bool {
	return int(id) < len(b.timers) && b.timers[id].scheduled
}

// Mode returns the frequency mode id was initialized with
func (b *TimerBank) Mode(id TimerID) (FrequencyMode, bool) {
	if !b.IsInitialized(id) {
		return 0, false
	}
	return b.timers[id].mode, true
}

// HandleCompare is the compare-match interrupt handler. The comparator is
// disabled before the callback runs, so a timer fires once per Schedule.
func (b *TimerBank) HandleCompare(id TimerID) {
	if int(id) >= len(b.timers) {
		return
	}
	state := disableInterrupts()
	defer restoreInterrupts(state)

	rec := &b.timers[id]
	b.disarm(id, rec)
	if !rec.initialized {
		return
	}

	cb := rec.compare
	RecordTiming(EvtTimerFire, uint8(id), uint32(b.drv.Counter(id)), boolValue(cb != nil), 0)
	if cb != nil {
		cb()
	}
}

// HandleOverflow is the wraparound interrupt handler. It runs for every
// hardware wrap regardless of the schedule and leaves the schedule alone.
func (b *TimerBank) HandleOverflow(id TimerID) {
	if int(id) >= len(b.timers) {
		return
	}
	state := disableInterrupts()
	defer restoreInterrupts(state)

	b.drv.ClearOverflow(id)
	rec := &b.timers[id]
	if !rec.initialized {
		return
	}

	cb := rec.overflow
	RecordTiming(EvtTimerOverflow, uint8(id), uint32(b.drv.Counter(id)), boolValue(cb != nil), 0)
	if cb != nil {
		cb()
	}
}

func boolValue(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
