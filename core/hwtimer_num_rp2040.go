//go:build rp2040

package core

// HWTimerNum is the number of timer peripherals in the bank.
// ALARM0 is used by the TinyGo runtime for sleep, leaving ALARM1-3.
const HWTimerNum = 3
