package serial

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
)

// Port represents a serial port interface.
// Native ports use github.com/tarm/serial; tests substitute pipes.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string `toml:"device"`

	// Baud rate, ignored by USB CDC devices
	Baud int `toml:"baud"`

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int `toml:"read_timeout_ms"`
}

// DefaultConfig returns the configuration used for the firmware's USB CDC port
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}

// LoadConfig reads a TOML port description. Keys missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig("/dev/ttyACM0")
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load serial config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in serial config %s", undecoded[0].String(), path)
	}
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial config %s has no device", path)
	}
	return cfg, nil
}
