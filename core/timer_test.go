package core

import "testing"

func TestTickConversions(t *testing.T) {
	testCases := []struct {
		mode      FrequencyMode
		ms        uint32
		wantTicks uint32
		wantUS    uint32
	}{
		{Freq1MS, 0, 0, 0},
		{Freq1MS, 500, 512, 500000},
		{Freq1MS, 1000, 1024, 1000000},
		{Freq1MS, 3, 3, 2929}, // 3.072 ticks round down
		{Freq32K, 1, 32, 976},
		{Freq32K, 2000, 65536, 2000000},
	}

	for _, tc := range testCases {
		ticks := TicksFromMillis(tc.mode, tc.ms)
		if ticks != tc.wantTicks {
			t.Errorf("TicksFromMillis(%v, %d) = %d, want %d", tc.mode, tc.ms, ticks, tc.wantTicks)
		}
		if us := TicksToMicros(tc.mode, ticks); us != tc.wantUS {
			t.Errorf("TicksToMicros(%v, %d) = %d, want %d", tc.mode, ticks, us, tc.wantUS)
		}
	}

	if TicksPerSecond(FrequencyMode(9)) != 0 || TicksToMicros(FrequencyMode(9), 10) != 0 {
		t.Error("unsupported mode should convert to 0")
	}
}

func TestElapsedWraps(t *testing.T) {
	testCases := []struct {
		from, to Tick
		want     uint16
	}{
		{100, 150, 50},
		{150, 150, 0},
		{65530, 4, 10},
		{1, 0, 65535},
	}
	for _, tc := range testCases {
		if got := Elapsed(tc.from, tc.to); got != tc.want {
			t.Errorf("Elapsed(%d, %d) = %d, want %d", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestModeString(t *testing.T) {
	if Freq1MS.String() != "1ms" || Freq32K.String() != "32k" {
		t.Errorf("unexpected mode names %q %q", Freq1MS, Freq32K)
	}
	if got := FrequencyMode(5).String(); got != "freq(5)" {
		t.Errorf("unexpected name for unknown mode %q", got)
	}
}
