package protocol

import "errors"

var ErrUnknownMessage = errors.New("unknown message id")

// Message ids, the first VLQ field of every payload
const (
	MsgCommand uint32 = 1 // host -> device: op id arg
	MsgStatus  uint32 = 2 // device -> host: op id status
	MsgValue   uint32 = 3 // device -> host: id tick flags
	MsgEvent   uint32 = 4 // device -> host: kind id clock value1 value2
)

// Op selects the timer operation a command runs
type Op uint8

const (
	OpInit          Op = 1 // arg = frequency mode
	OpSchedule      Op = 2 // arg = target tick
	OpScheduleDelay Op = 3 // arg = delay in ticks
	OpCancel        Op = 4
	OpReset         Op = 5
	OpQuery         Op = 6 // replies with a value message
	OpDump          Op = 7 // dumps the trace ring to the text display
)

var opNames = map[Op]string{
	OpInit:          "init",
	OpSchedule:      "schedule",
	OpScheduleDelay: "schedule_delay",
	OpCancel:        "cancel",
	OpReset:         "reset",
	OpQuery:         "query",
	OpDump:          "dump",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "op?"
}

// OpByName looks up an op by its console name
func OpByName(name string) (Op, bool) {
	for op, n := range opNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

// Value flags
const (
	FlagInitialized     = 1 << 0
	FlagScheduled       = 1 << 1
	FlagComparePending  = 1 << 2
	FlagOverflowPending = 1 << 3
)

// Command asks the device to run one timer operation
type Command struct {
	Op  Op
	ID  uint8
	Arg uint32
}

// StatusReply reports the result of a command
type StatusReply struct {
	Op     Op
	ID     uint8
	Status uint8
}

// ValueReply reports a timer's counter and state flags
type ValueReply struct {
	ID    uint8
	Tick  uint16
	Flags uint8
}

// EventReport carries one trace event from the device
type EventReport struct {
	Kind   uint8
	ID     uint8
	Clock  uint32
	Value1 uint32
	Value2 uint32
}

func (c Command) Encode(output OutputBuffer) {
	EncodeVLQUint(output, MsgCommand)
	EncodeVLQUint(output, uint32(c.Op))
	EncodeVLQUint(output, uint32(c.ID))
	EncodeVLQUint(output, c.Arg)
}

func (s StatusReply) Encode(output OutputBuffer) {
	EncodeVLQUint(output, MsgStatus)
	EncodeVLQUint(output, uint32(s.Op))
	EncodeVLQUint(output, uint32(s.ID))
	EncodeVLQUint(output, uint32(s.Status))
}

func (v ValueReply) Encode(output OutputBuffer) {
	EncodeVLQUint(output, MsgValue)
	EncodeVLQUint(output, uint32(v.ID))
	EncodeVLQUint(output, uint32(v.Tick))
	EncodeVLQUint(output, uint32(v.Flags))
}

func (e EventReport) Encode(output OutputBuffer) {
	EncodeVLQUint(output, MsgEvent)
	EncodeVLQUint(output, uint32(e.Kind))
	EncodeVLQUint(output, uint32(e.ID))
	EncodeVLQUint(output, e.Clock)
	EncodeVLQUint(output, e.Value1)
	EncodeVLQUint(output, e.Value2)
}

// decodeFields decodes len(dst) unsigned fields from data
func decodeFields(data *[]byte, dst ...*uint32) error {
	for _, p := range dst {
		v, err := DecodeVLQUint(data)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

// byteField narrows a decoded field to a byte. Values that do not fit
// saturate to 0xFF, which names no op and no timer.
func byteField(v uint32) uint8 {
	if v > 0xFF {
		return 0xFF
	}
	return uint8(v)
}

// Decode parses a payload into one of Command, StatusReply, ValueReply or
// EventReport
func Decode(payload []byte) (interface{}, error) {
	data := payload
	id, err := DecodeVLQUint(&data)
	if err != nil {
		return nil, err
	}

	var a, b, c, d, e uint32
	switch id {
	case MsgCommand:
		if err := decodeFields(&data, &a, &b, &c); err != nil {
			return nil, err
		}
		return Command{Op: Op(byteField(a)), ID: byteField(b), Arg: c}, nil
	case MsgStatus:
		if err := decodeFields(&data, &a, &b, &c); err != nil {
			return nil, err
		}
		return StatusReply{Op: Op(byteField(a)), ID: byteField(b), Status: byteField(c)}, nil
	case MsgValue:
		if err := decodeFields(&data, &a, &b, &c); err != nil {
			return nil, err
		}
		return ValueReply{ID: byteField(a), Tick: uint16(b), Flags: byteField(c)}, nil
	case MsgEvent:
		if err := decodeFields(&data, &a, &b, &c, &d, &e); err != nil {
			return nil, err
		}
		return EventReport{Kind: byteField(a), ID: byteField(b), Clock: c, Value1: d, Value2: e}, nil
	}
	return nil, ErrUnknownMessage
}
