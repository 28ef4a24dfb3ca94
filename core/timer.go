package core

// TickRange is the number of distinct counter values before a wraparound
const TickRange = 1 << 16

// TicksPerSecond returns the counter rate for a frequency mode, 0 if unsupported
func TicksPerSecond(mode FrequencyMode) uint32 {
	switch mode {
	case Freq1MS:
		return Ticks1MS
	case Freq32K:
		return Ticks32K
	}
	return 0
}

// TicksFromMillis converts milliseconds to ticks, rounding down
func TicksFromMillis(mode FrequencyMode, ms uint32) uint32 {
	return uint32(uint64(ms) * uint64(TicksPerSecond(mode)) / 1000)
}

// TicksToMicros converts ticks to microseconds, rounding down
func TicksToMicros(mode FrequencyMode, ticks uint32) uint32 {
	rate := TicksPerSecond(mode)
	if rate == 0 {
		return 0
	}
	return uint32(uint64(ticks) * 1000000 / uint64(rate))
}

// Elapsed returns the ticks from 'from' to 'to' going forward through at most one wrap
func Elapsed(from, to Tick) uint16 {
	return uint16(to - from)
}
