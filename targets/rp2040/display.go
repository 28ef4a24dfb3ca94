//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/hd44780"
)

// 20x4 character LCD wired in 4-bit mode, RW tied low
const (
	lcdCols = 20
	lcdRows = 4
)

// lcdConsole scrolls text lines up a character LCD
type lcdConsole struct {
	dev   hd44780.Device
	lines [lcdRows]string
}

// newLCDConsole configures the LCD on GPIO10-13 (D4-D7), GPIO14 (E), GPIO15 (RS)
func newLCDConsole() (*lcdConsole, error) {
	dev, err := hd44780.NewGPIO4Bit(
		[]machine.Pin{machine.GPIO10, machine.GPIO11, machine.GPIO12, machine.GPIO13},
		machine.GPIO14, machine.GPIO15, machine.NoPin)
	if err != nil {
		return nil, err
	}
	if err := dev.Configure(hd44780.Config{Width: lcdCols, Height: lcdRows}); err != nil {
		return nil, err
	}
	return &lcdConsole{dev: dev}, nil
}

// WriteLine shows s on the bottom row, pushing older lines up.
// It matches core.DebugWriter.
func (l *lcdConsole) WriteLine(s string) error {
	if len(s) > lcdCols {
		s = s[:lcdCols]
	}
	copy(l.lines[:], l.lines[1:])
	l.lines[lcdRows-1] = s

	l.dev.ClearDisplay()
	for row, line := range l.lines {
		l.dev.SetCursor(0, uint8(row))
		if _, err := l.dev.Write([]byte(line)); err != nil {
			return err
		}
	}
	l.dev.Display()
	return nil
}
