//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"hwtimer/core"
)

// RP2040 TIMER peripheral memory map
const (
	timerBase      = 0x40054000
	timerALARM0    = timerBase + 0x10 // ALARM1-3 follow at 4 byte strides
	timerARMED     = timerBase + 0x20
	timerTIMERAWH  = timerBase + 0x24 // Raw timer high word
	timerTIMERAWL  = timerBase + 0x28 // Raw timer low word
	timerINTR      = timerBase + 0x34 // Raw interrupts, write 1 to clear
	timerINTE      = timerBase + 0x38
	timerINTF      = timerBase + 0x3C // Force interrupts
	timerFrequency = 1000000
)

// ALARM0 drives the TinyGo scheduler, logical timer i owns ALARM i+1
const alarmOffset = 1

var (
	timerRAWH  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerArmed = (*volatile.Register32)(unsafe.Pointer(uintptr(timerARMED)))
	timerIntR  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerIntE  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
	timerIntF  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTF)))
)

func alarmRegister(alarm int) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM0 + 4*alarm)))
}

// uptime reads the 64-bit microsecond timer
func uptime() uint64 {
	// Read high, low, high again to detect a carry between the reads
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return uint64(high1)<<32 | uint64(low)
		}
	}
}

// alarmChannel is one logical 16-bit timer derived from the microsecond
// timer. Its counter is the time since epoch scaled to the mode's tick rate.
type alarmChannel struct {
	configured bool
	rate       uint64 // ticks per second
	epoch      uint64 // uptime at which the counter read zero
	period     uint64 // microseconds per full wrap

	compare      core.Tick
	compareIRQ   bool
	overflowIRQ  bool
	compareFlag  bool
	overflowFlag bool

	nextWrap     uint64
	compareAt    uint64
	compareArmed bool
}

// ticks returns the unwrapped tick count at time now
func (c *alarmChannel) ticks(now uint64) uint64 {
	return (now - c.epoch) * c.rate / timerFrequency
}

// tickTime returns the first microsecond at which the unwrapped count reaches t
func (c *alarmChannel) tickTime(t uint64) uint64 {
	return c.epoch + (t*timerFrequency+c.rate-1)/c.rate
}

// alarmDriver implements core.TimerDriver on ALARM1-3 of the RP2040 TIMER
type alarmDriver struct {
	ch   [core.HWTimerNum]alarmChannel
	sink core.InterruptSink
}

var alarms = &alarmDriver{}

// newAlarmDriver installs the alarm interrupt handlers and returns the driver
func newAlarmDriver() *alarmDriver {
	irqs := [core.HWTimerNum]interrupt.Interrupt{
		interrupt.New(rp.IRQ_TIMER_IRQ_1, func(interrupt.Interrupt) { alarms.handleAlarm(0) }),
		interrupt.New(rp.IRQ_TIMER_IRQ_2, func(interrupt.Interrupt) { alarms.handleAlarm(1) }),
		interrupt.New(rp.IRQ_TIMER_IRQ_3, func(interrupt.Interrupt) { alarms.handleAlarm(2) }),
	}
	for _, irq := range irqs {
		irq.SetPriority(0x40)
		irq.Enable()
	}
	return alarms
}

func alarmBit(id core.TimerID) uint32 {
	return 1 << (uint32(id) + alarmOffset)
}

func (d *alarmDriver) Attach(sink core.InterruptSink) {
	d.sink = sink
}

func (d *alarmDriver) Configure(id core.TimerID, mode core.FrequencyMode) error {
	if int(id) >= len(d.ch) {
		return core.ErrOutOfRange
	}
	if !mode.Valid() {
		return core.ErrUnsupported
	}

	state := interrupt.Disable()
	defer interrupt.Restore(state)

	c := &d.ch[id]
	c.configured = true
	c.rate = uint64(core.TicksPerSecond(mode))
	c.period = core.TickRange * timerFrequency / c.rate
	c.epoch = uptime()
	c.nextWrap = c.epoch + c.period
	timerIntE.SetBits(alarmBit(id))
	d.rearm(id, c.epoch)
	return nil
}

func (d *alarmDriver) Counter(id core.TimerID) core.Tick {
	c := &d.ch[id]
	if !c.configured {
		return 0
	}
	return core.Tick(c.ticks(uptime()))
}

func (d *alarmDriver) ResetCounter(id core.TimerID) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)

	c := &d.ch[id]
	if !c.configured {
		return
	}
	c.epoch = uptime()
	c.nextWrap = c.epoch + c.period
	d.rearm(id, c.epoch)
}

func (d *alarmDriver) SetCompare(id core.TimerID, tick core.Tick) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)

	d.ch[id].compare = tick
	d.rearm(id, uptime())
}

func (d *alarmDriver) EnableCompareIRQ(id core.TimerID) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)

	d.ch[id].compareIRQ = true
	d.rearm(id, uptime())
}

func (d *alarmDriver) DisableCompareIRQ(id core.TimerID) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)

	d.ch[id].compareIRQ = false
	d.rearm(id, uptime())
}

func (d *alarmDriver) CompareIRQEnabled(id core.TimerID) bool {
	return d.ch[id].compareIRQ
}

func (d *alarmDriver) EnableOverflowIRQ(id core.TimerID) {
	d.ch[id].overflowIRQ = true
}

func (d *alarmDriver) ComparePending(id core.TimerID) bool {
	state := interrupt.Disable()
	defer interrupt.Restore(state)

	d.latch(id, uptime())
	return d.ch[id].compareFlag
}

func (d *alarmDriver) OverflowPending(id core.TimerID) bool {
	state := interrupt.Disable()
	defer interrupt.Restore(state)

	d.latch(id, uptime())
	return d.ch[id].overflowFlag
}

func (d *alarmDriver) ClearCompare(id core.TimerID) {
	d.ch[id].compareFlag = false
}

func (d *alarmDriver) ClearOverflow(id core.TimerID) {
	d.ch[id].overflowFlag = false
}

// latch sets the flags for every event that has happened by now.
// Called with interrupts disabled.
func (d *alarmDriver) latch(id core.TimerID, now uint64) {
	c := &d.ch[id]
	if !c.configured {
		return
	}
	if now >= c.nextWrap {
		c.overflowFlag = true
		for now >= c.nextWrap {
			c.nextWrap += c.period
		}
	}
	if c.compareArmed && now >= c.compareAt {
		c.compareFlag = true
		c.compareArmed = false
	}
}

// rearm programs the alarm for the nearer of the next compare match and the
// next wrap. Called with interrupts disabled.
func (d *alarmDriver) rearm(id core.TimerID, now uint64) {
	c := &d.ch[id]
	if !c.configured {
		return
	}

	c.compareArmed = c.compareIRQ
	if c.compareArmed {
		// Next tick after now whose low 16 bits equal the comparator
		cur := c.ticks(now)
		t := cur&^(core.TickRange-1) | uint64(c.compare)
		if t <= cur {
			t += core.TickRange
		}
		c.compareAt = c.tickTime(t)
	}

	target := c.nextWrap
	if c.compareArmed && c.compareAt < target {
		target = c.compareAt
	}

	alarm := int(id) + alarmOffset
	alarmRegister(alarm).Set(uint32(target))
	if uptime() >= target {
		// Already passed, the comparator only matches on equality
		timerArmed.Set(1 << uint32(alarm))
		timerIntF.SetBits(alarmBit(id))
	}
}

// handleAlarm services ALARM id+1: latch, forward to the bank, rearm
func (d *alarmDriver) handleAlarm(id core.TimerID) {
	timerIntF.ClearBits(alarmBit(id))
	timerIntR.Set(alarmBit(id))

	now := uptime()
	d.latch(id, now)

	c := &d.ch[id]
	if c.overflowFlag && c.overflowIRQ && d.sink != nil {
		d.sink.HandleOverflow(id)
	}
	if c.compareFlag && c.compareIRQ && d.sink != nil {
		d.sink.HandleCompare(id)
	}
	d.rearm(id, uptime())
}
