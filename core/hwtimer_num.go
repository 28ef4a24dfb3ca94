//go:build !rp2040

package core

// HWTimerNum is the number of timer peripherals in the bank.
const HWTimerNum = 4
