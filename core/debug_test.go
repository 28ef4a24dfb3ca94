package core

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDrainTimingRingInOrder(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()

	for i := uint32(0); i < 5; i++ {
		RecordTiming(EvtTimerSchedule, 1, i, i*10, 0)
	}

	var got []TimingEvent
	lost := DrainTimingRing(func(evt TimingEvent) {
		got = append(got, evt)
	})
	if lost != 0 {
		t.Errorf("expected no lost events, got %d", lost)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 events, got %d", len(got))
	}
	for i, evt := range got {
		if evt.Clock != uint32(i) || evt.Value1 != uint32(i)*10 {
			t.Errorf("event %d out of order: %+v", i, evt)
		}
	}

	// A second drain only sees new events
	RecordTiming(EvtTimerCancel, 2, 99, 0, 0)
	got = got[:0]
	DrainTimingRing(func(evt TimingEvent) { got = append(got, evt) })
	if len(got) != 1 || got[0].EventType != EvtTimerCancel {
		t.Errorf("expected only the cancel event, got %+v", got)
	}
}

func TestDrainTimingRingOverrun(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()

	total := uint32(TimingRingSize + 8)
	for i := uint32(0); i < total; i++ {
		RecordTiming(EvtTimerFire, 0, i, 1, 0)
	}

	var first uint32
	n := 0
	lost := DrainTimingRing(func(evt TimingEvent) {
		if n == 0 {
			first = evt.Clock
		}
		n++
	})
	if lost != 8 {
		t.Errorf("expected 8 lost events, got %d", lost)
	}
	if n != TimingRingSize || first != 8 {
		t.Errorf("expected %d events starting at clock 8, got %d starting at %d", TimingRingSize, n, first)
	}
}

func TestDumpTimingRing(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()
	defer SetDebugWriter(func(string) error { return nil })

	var lines []string
	SetDebugWriter(func(s string) error {
		lines = append(lines, s)
		return nil
	})

	RecordTiming(EvtTimerInit, 0, 0, uint32(Freq32K), 0)
	RecordTiming(EvtTimerReject, 3, 0, uint32(StatusNotInitialized), EvtTimerSchedule)

	if err := DumpTimingRing(); err != nil {
		t.Fatalf("DumpTimingRing failed: %v", err)
	}
	if len(lines) != 4 {
		t.Fatalf("expected header, 2 events and footer, got %q", lines)
	}
	if !strings.Contains(lines[1], "INIT id=0") {
		t.Errorf("unexpected first event line %q", lines[1])
	}
	if lines[2] != "[TIMER] REJECT! id=3 tick=0 v1=2 v2=2" {
		t.Errorf("unexpected reject line %q", lines[2])
	}
}

func TestDumpTimingRingStopsOnDisplayError(t *testing.T) {
	defer SetDebugWriter(func(string) error { return nil })

	errBusy := errors.New("display busy")
	calls := 0
	SetDebugWriter(func(string) error {
		calls++
		return errBusy
	})

	if err := DumpTimingRing(); !errors.Is(err, errBusy) {
		t.Errorf("expected display error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected dump to stop after the first failure, got %d writes", calls)
	}
}

func TestDumpNotInterleavedWithAsyncDebug(t *testing.T) {
	ClearTimingRing()
	defer ClearTimingRing()
	defer SetDebugWriter(func(string) error { return nil })

	var (
		mu      sync.Mutex
		lines   []string
		writing atomic.Int32
		overlap atomic.Bool
	)
	SetDebugWriter(func(s string) error {
		if writing.Add(1) != 1 {
			overlap.Store(true)
		}
		time.Sleep(100 * time.Microsecond)
		mu.Lock()
		lines = append(lines, s)
		mu.Unlock()
		writing.Add(-1)
		return nil
	})
	InitAsyncDebug()

	for i := uint32(0); i < 5; i++ {
		RecordTiming(EvtTimerFire, 0, i, 1, 0)
	}
	for i := 0; i < 8; i++ {
		if !DebugAsync("async") {
			t.Fatal("debug queue full")
		}
	}
	if err := DumpTimingRing(); err != nil {
		t.Fatalf("DumpTimingRing failed: %v", err)
	}

	const total = 8 + 5 + 2
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(lines)
		mu.Unlock()
		if n == total {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d lines, got %d", total, n)
		}
		time.Sleep(time.Millisecond)
	}

	if overlap.Load() {
		t.Error("display written from two goroutines at once")
	}
	mu.Lock()
	defer mu.Unlock()
	start := -1
	for i, line := range lines {
		if strings.Contains(line, "Timing Ring Dump") {
			start = i
		}
	}
	if start < 0 || start+6 >= len(lines) {
		t.Fatalf("dump header missing or cut short: %q", lines)
	}
	for _, line := range lines[start+1 : start+7] {
		if line == "async" {
			t.Errorf("async line inside the dump: %q", lines)
			break
		}
	}
}

func TestDebugPrintlnGated(t *testing.T) {
	defer SetDebugWriter(func(string) error { return nil })
	defer SetDebugEnabled(false)

	written := 0
	SetDebugWriter(func(string) error {
		written++
		return nil
	})

	SetDebugEnabled(false)
	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("shown")

	if written != 1 {
		t.Errorf("expected 1 write, got %d", written)
	}
}

func TestUtoa(t *testing.T) {
	testCases := []struct {
		in   uint32
		want string
	}{
		{0, "0"},
		{7, "7"},
		{1024, "1024"},
		{65535, "65535"},
		{4294967295, "4294967295"},
	}
	for _, tc := range testCases {
		if got := utoa(tc.in); got != tc.want {
			t.Errorf("utoa(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStatusRoundTrip(t *testing.T) {
	for _, err := range []error{nil, ErrOutOfRange, ErrNotInitialized, ErrAlreadyInitialized, ErrUnsupported} {
		if got := StatusOf(err).Err(); got != err {
			t.Errorf("status of %v came back as %v", err, got)
		}
	}
	if StatusOf(errors.New("other")) != StatusError {
		t.Error("foreign error not mapped to StatusError")
	}
}
