package mcu

import (
	"testing"

	"hwtimer/core"
	"hwtimer/protocol"
)

func TestParseLine(t *testing.T) {
	testCases := []struct {
		line string
		want protocol.Command
	}{
		{"init 0 1ms", protocol.Command{Op: protocol.OpInit, ID: 0, Arg: uint32(core.Freq1MS)}},
		{"INIT 1 32K", protocol.Command{Op: protocol.OpInit, ID: 1, Arg: uint32(core.Freq32K)}},
		{"init 1 7", protocol.Command{Op: protocol.OpInit, ID: 1, Arg: 7}},
		{"schedule 2 0x100", protocol.Command{Op: protocol.OpSchedule, ID: 2, Arg: 256}},
		{"schedule_delay '3' 50", protocol.Command{Op: protocol.OpScheduleDelay, ID: 3, Arg: 50}},
		{"  cancel 1 ", protocol.Command{Op: protocol.OpCancel, ID: 1}},
		{"reset 0", protocol.Command{Op: protocol.OpReset}},
		{"query 3", protocol.Command{Op: protocol.OpQuery, ID: 3}},
		{"dump", protocol.Command{Op: protocol.OpDump}},
	}

	for _, tc := range testCases {
		got, err := ParseLine(tc.line)
		if err != nil {
			t.Errorf("ParseLine(%q) failed: %v", tc.line, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLine(%q) = %+v, want %+v", tc.line, got, tc.want)
		}
	}
}

func TestParseLineErrors(t *testing.T) {
	for _, line := range []string{
		"fire 0",
		"schedule 0",
		"cancel 0 1",
		"query 300",
		"schedule 0 -5",
		"schedule 0 99999999999",
		"init 0 'unterminated",
		"schedule 0 32k",
	} {
		if _, err := ParseLine(line); err == nil {
			t.Errorf("ParseLine(%q) accepted a bad line", line)
		}
	}

	if _, err := ParseLine("   "); err != ErrEmptyLine {
		t.Errorf("expected ErrEmptyLine, got %v", err)
	}
}

func TestFormatReply(t *testing.T) {
	cmd := protocol.Command{Op: protocol.OpQuery, ID: 1}
	reply := Reply{
		Status: core.StatusSuccess,
		Value:  &protocol.ValueReply{ID: 1, Tick: 42, Flags: protocol.FlagInitialized | protocol.FlagComparePending},
	}
	want := "query 1: ok tick=42 flags=init,compare-pending"
	if got := FormatReply(cmd, reply); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	cmd = protocol.Command{Op: protocol.OpCancel, ID: 0}
	if got := FormatReply(cmd, Reply{Status: core.StatusNotInitialized}); got != "cancel 0: not-initialized" {
		t.Errorf("unexpected reply line %q", got)
	}
	if got := FormatFlags(0); got != "-" {
		t.Errorf("expected - for no flags, got %q", got)
	}
}

func TestFormatEvent(t *testing.T) {
	evt := protocol.EventReport{Kind: core.EvtTimerFire, ID: 2, Clock: 100, Value1: 1}
	if got := FormatEvent(evt); got != "[TIMER] FIRE id=2 tick=100 v1=1 v2=0" {
		t.Errorf("unexpected event line %q", got)
	}
}
