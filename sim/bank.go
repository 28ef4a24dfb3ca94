// Package sim provides a software model of a timer peripheral bank.
//
// It implements core.TimerDriver for hosts and tests: each channel has a
// 16-bit counter, a comparator register, latched compare/overflow flags and
// per-source interrupt enables. A global mask stands in for the interrupt
// controller so latched events can be held back and observed as pending.
//
// The bank is driven from a single goroutine. Interrupts are delivered
// synchronously from Advance and Unmask, the way hardware preempts the
// normal execution stream.
package sim

import (
	"time"

	"hwtimer/core"
)

// channel models one timer peripheral
type channel struct {
	configured bool
	mode       core.FrequencyMode
	counter    core.Tick
	compare    core.Tick

	compareIRQ  bool
	overflowIRQ bool

	compareFlag  bool
	overflowFlag bool

	// sub carries the fractional tick left over by Elapse
	sub time.Duration
}

// Bank is a simulated bank of core.HWTimerNum timer peripherals
type Bank struct {
	ch     [core.HWTimerNum]channel
	sink   core.InterruptSink
	masked bool

	// Unsupported modes make Configure fail, to model a platform that
	// cannot run every frequency
	Unsupported map[core.FrequencyMode]bool
}

// New returns a bank with every channel stopped and interrupts unmasked
func New() *Bank {
	return &Bank{}
}

func (b *Bank) valid(id core.TimerID) bool {
	return int(id) < len(b.ch)
}

// Attach installs the interrupt sink
func (b *Bank) Attach(sink core.InterruptSink) {
	b.sink = sink
}

// Configure selects the tick rate and starts the counter
func (b *Bank) Configure(id core.TimerID, mode core.FrequencyMode) error {
	if !b.valid(id) {
		return core.ErrOutOfRange
	}
	if !mode.Valid() || b.Unsupported[mode] {
		return core.ErrUnsupported
	}
	c := &b.ch[id]
	c.mode = mode
	c.configured = true
	c.sub = 0
	return nil
}

// Counter reads the counter register
func (b *Bank) Counter(id core.TimerID) core.Tick {
	if !b.valid(id) {
		return 0
	}
	return b.ch[id].counter
}

// ResetCounter zeroes the counter without latching an overflow
func (b *Bank) ResetCounter(id core.TimerID) {
	if b.valid(id) {
		b.ch[id].counter = 0
		b.ch[id].sub = 0
	}
}

// SetCompare programs the comparator register
func (b *Bank) SetCompare(id core.TimerID, tick core.Tick) {
	if b.valid(id) {
		b.ch[id].compare = tick
	}
}

// EnableCompareIRQ enables the comparator interrupt source
func (b *Bank) EnableCompareIRQ(id core.TimerID) {
	if b.valid(id) {
		b.ch[id].compareIRQ = true
	}
}

// DisableCompareIRQ disables the comparator interrupt source
func (b *Bank) DisableCompareIRQ(id core.TimerID) {
	if b.valid(id) {
		b.ch[id].compareIRQ = false
	}
}

// CompareIRQEnabled reports whether the comparator interrupt source is enabled
func (b *Bank) CompareIRQEnabled(id core.TimerID) bool {
	return b.valid(id) && b.ch[id].compareIRQ
}

// EnableOverflowIRQ enables the wraparound interrupt source
func (b *Bank) EnableOverflowIRQ(id core.TimerID) {
	if b.valid(id) {
		b.ch[id].overflowIRQ = true
	}
}

// ComparePending reads the latched comparator flag
func (b *Bank) ComparePending(id core.TimerID) bool {
	return b.valid(id) && b.ch[id].compareFlag
}

// OverflowPending reads the latched overflow flag
func (b *Bank) OverflowPending(id core.TimerID) bool {
	return b.valid(id) && b.ch[id].overflowFlag
}

// ClearCompare acknowledges the comparator flag
func (b *Bank) ClearCompare(id core.TimerID) {
	if b.valid(id) {
		b.ch[id].compareFlag = false
	}
}

// ClearOverflow acknowledges the overflow flag
func (b *Bank) ClearOverflow(id core.TimerID) {
	if b.valid(id) {
		b.ch[id].overflowFlag = false
	}
}

// SetCounter writes the counter directly, like a debugger poking the
// register. Nothing is latched.
func (b *Bank) SetCounter(id core.TimerID, tick core.Tick) {
	if b.valid(id) {
		b.ch[id].counter = tick
	}
}

// Compare reads back the comparator register
func (b *Bank) Compare(id core.TimerID) core.Tick {
	if !b.valid(id) {
		return 0
	}
	return b.ch[id].compare
}

// Advance steps a running channel by n ticks. Flags latch on the exact tick
// they occur and, unless masked, their handlers run before the next tick.
func (b *Bank) Advance(id core.TimerID, n uint32) {
	if !b.valid(id) || !b.ch[id].configured {
		return
	}
	for i := uint32(0); i < n; i++ {
		b.step(id)
	}
}

// AdvanceAll steps every running channel by n ticks, interleaved tick by tick
func (b *Bank) AdvanceAll(n uint32) {
	for i := uint32(0); i < n; i++ {
		for id := range b.ch {
			if b.ch[id].configured {
				b.step(core.TimerID(id))
			}
		}
	}
}

// Elapse advances a channel by the ticks its mode produces in d
func (b *Bank) Elapse(id core.TimerID, d time.Duration) {
	if !b.valid(id) || !b.ch[id].configured {
		return
	}
	c := &b.ch[id]
	rate := time.Duration(core.TicksPerSecond(c.mode))
	total := c.sub + d*rate
	c.sub = total % time.Second
	b.Advance(id, uint32(total/time.Second))
}

// step advances one tick and latches what the hardware would latch
func (b *Bank) step(id core.TimerID) {
	c := &b.ch[id]
	c.counter++
	if c.counter == 0 {
		c.overflowFlag = true
	}
	if c.counter == c.compare {
		c.compareFlag = true
	}
	if !b.masked {
		b.service(id)
	}
}

// service runs the handler of every latched, enabled source once.
// Overflow is serviced before compare when both latch on the same tick.
func (b *Bank) service(id core.TimerID) {
	c := &b.ch[id]
	if c.overflowFlag && c.overflowIRQ {
		if b.sink != nil {
			b.sink.HandleOverflow(id)
		} else {
			c.overflowFlag = false
		}
	}
	if c.compareFlag && c.compareIRQ {
		if b.sink != nil {
			b.sink.HandleCompare(id)
		} else {
			c.compareFlag = false
		}
	}
}

// Mask holds back interrupt delivery; flags keep latching
func (b *Bank) Mask() {
	b.masked = true
}

// Unmask re-enables delivery and services everything latched meanwhile
func (b *Bank) Unmask() {
	b.masked = false
	for id := range b.ch {
		b.service(core.TimerID(id))
	}
}

// Masked reports whether delivery is held back
func (b *Bank) Masked() bool {
	return b.masked
}
