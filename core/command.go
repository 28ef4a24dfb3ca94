package core

import (
	"errors"

	"hwtimer/protocol"
)

var errArgRange = errors.New("command argument out of range")

// CommandHandler runs one decoded command against a bank. The returned
// error becomes the status reply; handlers may send extra replies on enc first.
type CommandHandler func(b *TimerBank, cmd protocol.Command, enc *protocol.FrameEncoder) error

// CommandRegistry maps link ops to their handlers
type CommandRegistry struct {
	handlers map[protocol.Op]CommandHandler
}

var globalRegistry = NewCommandRegistry()

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{handlers: make(map[protocol.Op]CommandHandler)}
}

// Register adds or replaces the handler for op
func (r *CommandRegistry) Register(op protocol.Op, handler CommandHandler) {
	r.handlers[op] = handler
}

// Count returns the number of registered handlers
func (r *CommandRegistry) Count() int {
	return len(r.handlers)
}

// Dispatch decodes a command payload, runs it and sends the status reply.
// Payloads that are not commands are dropped with an error.
func (r *CommandRegistry) Dispatch(b *TimerBank, payload []byte, enc *protocol.FrameEncoder) error {
	msg, err := protocol.Decode(payload)
	if err != nil {
		return err
	}
	cmd, ok := msg.(protocol.Command)
	if !ok {
		return protocol.ErrUnknownMessage
	}

	status := StatusError
	if handler, ok := r.handlers[cmd.Op]; ok {
		status = StatusOf(handler(b, cmd, enc))
	}

	reply := protocol.StatusReply{Op: cmd.Op, ID: cmd.ID, Status: uint8(status)}
	return enc.Send(reply.Encode)
}

// DispatchCommand runs a command payload against the global bank
func DispatchCommand(payload []byte, enc *protocol.FrameEncoder) error {
	return globalRegistry.Dispatch(MustTimers(), payload, enc)
}

// InitTimerCommands registers the timer operations with the global registry
func InitTimerCommands() {
	RegisterTimerCommands(globalRegistry)
}

// RegisterTimerCommands registers the timer operations with r.
// Timers initialized over the link get no callbacks; their events reach the
// host through the trace ring.
func RegisterTimerCommands(r *CommandRegistry) {
	r.Register(protocol.OpInit, handleInit)
	r.Register(protocol.OpSchedule, handleSchedule)
	r.Register(protocol.OpScheduleDelay, handleScheduleDelay)
	r.Register(protocol.OpCancel, handleCancel)
	r.Register(protocol.OpReset, handleReset)
	r.Register(protocol.OpQuery, handleQuery)
	r.Register(protocol.OpDump, handleDump)
}

func handleInit(b *TimerBank, cmd protocol.Command, _ *protocol.FrameEncoder) error {
	if cmd.Arg > 0xFF {
		return b.Init(TimerID(cmd.ID), FrequencyMode(0xFF), nil, nil)
	}
	return b.Init(TimerID(cmd.ID), FrequencyMode(cmd.Arg), nil, nil)
}

func tickArg(cmd protocol.Command) (Tick, error) {
	if cmd.Arg >= TickRange {
		return 0, errArgRange
	}
	return Tick(cmd.Arg), nil
}

func handleSchedule(b *TimerBank, cmd protocol.Command, _ *protocol.FrameEncoder) error {
	tick, err := tickArg(cmd)
	if err != nil {
		return err
	}
	return b.Schedule(TimerID(cmd.ID), tick)
}

func handleScheduleDelay(b *TimerBank, cmd protocol.Command, _ *protocol.FrameEncoder) error {
	delay, err := tickArg(cmd)
	if err != nil {
		return err
	}
	return b.ScheduleDelay(TimerID(cmd.ID), delay)
}

func handleCancel(b *TimerBank, cmd protocol.Command, _ *protocol.FrameEncoder) error {
	return b.Cancel(TimerID(cmd.ID))
}

func handleReset(b *TimerBank, cmd protocol.Command, _ *protocol.FrameEncoder) error {
	return b.CounterReset(TimerID(cmd.ID))
}

// handleQuery always sends a value reply with GetValue semantics, so an
// unknown id reads as tick 0 with no flags. The status reply still reports
// invalid-id for it.
func handleQuery(b *TimerBank, cmd protocol.Command, enc *protocol.FrameEncoder) error {
	id := TimerID(cmd.ID)
	reply := protocol.ValueReply{ID: cmd.ID, Tick: uint16(b.GetValue(id)), Flags: b.flags(id)}
	if err := enc.Send(reply.Encode); err != nil {
		return err
	}
	if int(id) >= HWTimerNum {
		return ErrOutOfRange
	}
	return nil
}

func handleDump(_ *TimerBank, _ protocol.Command, _ *protocol.FrameEncoder) error {
	return DumpTimingRing()
}

// flags packs the state bits reported by a value reply
func (b *TimerBank) flags(id TimerID) uint8 {
	var f uint8
	if b.IsInitialized(id) {
		f |= protocol.FlagInitialized
	}
	if b.IsScheduled(id) {
		f |= protocol.FlagScheduled
	}
	if b.IsInterruptPending(id) {
		f |= protocol.FlagComparePending
	}
	if b.IsOverflowPending(id) {
		f |= protocol.FlagOverflowPending
	}
	return f
}

// SendTimingEvents streams every trace event recorded since the last call
// as event frames. Returns the number of events lost, either to ring overrun
// or because the output could not take their frame.
func SendTimingEvents(enc *protocol.FrameEncoder) uint32 {
	var failed uint32
	lost := DrainTimingRing(func(evt TimingEvent) {
		report := protocol.EventReport{
			Kind:   evt.EventType,
			ID:     evt.Timer,
			Clock:  evt.Clock,
			Value1: evt.Value1,
			Value2: evt.Value2,
		}
		if err := enc.Send(report.Encode); err != nil {
			failed++
		}
	})
	return lost + failed
}
