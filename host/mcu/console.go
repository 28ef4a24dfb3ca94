package mcu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"hwtimer/core"
	"hwtimer/protocol"
)

var ErrEmptyLine = errors.New("empty command line")

// modeNames maps console spellings to frequency modes
var modeNames = map[string]core.FrequencyMode{
	core.Freq1MS.String(): core.Freq1MS,
	core.Freq32K.String(): core.Freq32K,
}

// argCount is the number of arguments each console command takes after its name
var argCount = map[protocol.Op]int{
	protocol.OpInit:          2, // id mode
	protocol.OpSchedule:      2, // id tick
	protocol.OpScheduleDelay: 2, // id ticks
	protocol.OpCancel:        1,
	protocol.OpReset:         1,
	protocol.OpQuery:         1,
	protocol.OpDump:          0,
}

// ParseLine turns a console line such as "schedule 0 100" into a command.
// Arguments may be quoted; numbers accept 0x and 0b prefixes.
func ParseLine(line string) (protocol.Command, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return protocol.Command{}, err
	}
	if len(words) == 0 {
		return protocol.Command{}, ErrEmptyLine
	}

	op, ok := protocol.OpByName(strings.ToLower(words[0]))
	if !ok {
		return protocol.Command{}, fmt.Errorf("unknown command %q", words[0])
	}
	args := words[1:]
	if len(args) != argCount[op] {
		return protocol.Command{}, fmt.Errorf("%v takes %d arguments, got %d", op, argCount[op], len(args))
	}

	cmd := protocol.Command{Op: op}
	if len(args) == 0 {
		return cmd, nil
	}

	id, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return protocol.Command{}, fmt.Errorf("bad timer id %q: %w", args[0], err)
	}
	cmd.ID = uint8(id)

	if len(args) == 2 {
		if mode, ok := modeNames[strings.ToLower(args[1])]; ok && op == protocol.OpInit {
			cmd.Arg = uint32(mode)
			return cmd, nil
		}
		arg, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return protocol.Command{}, fmt.Errorf("bad argument %q: %w", args[1], err)
		}
		cmd.Arg = uint32(arg)
	}
	return cmd, nil
}

// FormatReply renders the answer to cmd for the console
func FormatReply(cmd protocol.Command, reply Reply) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v %d: %v", cmd.Op, cmd.ID, reply.Status)
	if v := reply.Value; v != nil {
		fmt.Fprintf(&b, " tick=%d flags=%s", v.Tick, FormatFlags(v.Flags))
	}
	return b.String()
}

// FormatFlags lists the state bits of a value reply
func FormatFlags(flags uint8) string {
	var names []string
	if flags&protocol.FlagInitialized != 0 {
		names = append(names, "init")
	}
	if flags&protocol.FlagScheduled != 0 {
		names = append(names, "scheduled")
	}
	if flags&protocol.FlagComparePending != 0 {
		names = append(names, "compare-pending")
	}
	if flags&protocol.FlagOverflowPending != 0 {
		names = append(names, "overflow-pending")
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

// FormatEvent renders a streamed trace event the way the firmware's dump does
func FormatEvent(evt protocol.EventReport) string {
	return core.FormatEvent(core.TimingEvent{
		EventType: evt.Kind,
		Timer:     evt.ID,
		Clock:     evt.Clock,
		Value1:    evt.Value1,
		Value2:    evt.Value2,
	})
}
