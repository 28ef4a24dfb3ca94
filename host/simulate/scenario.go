// Package simulate runs timer scenarios against a TimerBank on the simulated
// peripheral and reports what fired.
package simulate

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"golang.org/x/exp/slices"

	"hwtimer/core"
	"hwtimer/protocol"
)

var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario describes timers to start and operations to apply over time
type Scenario struct {
	Name       string      `toml:"name"`
	DurationMS uint32      `toml:"duration_ms"`
	Timers     []TimerSpec `toml:"timer"`
	Steps      []StepSpec  `toml:"step"`

	// Disabled modes make Init fail, like a platform without that clock
	Disabled []string `toml:"disabled_modes"`
}

// TimerSpec starts one timer at time zero
type TimerSpec struct {
	ID   uint8  `toml:"id"`
	Mode string `toml:"mode"`

	// First is the delay in ticks before the first compare match
	First uint16 `toml:"first"`

	// Period re-arms the timer from its compare callback; 0 fires once
	Period uint16 `toml:"period"`
}

// StepSpec applies one bank operation at a point in time
type StepSpec struct {
	AtMS uint32 `toml:"at_ms"`
	Op   string `toml:"op"`
	ID   uint8  `toml:"id"`
	Arg  uint32 `toml:"arg"`
}

// stepOps are the operations a step may run
var stepOps = []string{
	protocol.OpSchedule.String(),
	protocol.OpScheduleDelay.String(),
	protocol.OpCancel.String(),
	protocol.OpReset.String(),
}

// modeNames are the accepted spellings of frequency modes
var modeNames = []string{core.Freq1MS.String(), core.Freq32K.String()}

// parseMode maps a mode name to its FrequencyMode
func parseMode(name string) (core.FrequencyMode, error) {
	i := slices.Index(modeNames, name)
	if i < 0 {
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidScenario, name)
	}
	return core.FrequencyMode(i), nil
}

// LoadScenario reads a scenario from a TOML file
func LoadScenario(path string) (*Scenario, error) {
	var s Scenario
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, fmt.Errorf("failed to load scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseScenario reads a scenario from TOML text
func ParseScenario(text string) (*Scenario, error) {
	var s Scenario
	if _, err := toml.Decode(text, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks names and ordering and sorts steps by time.
// Timer ids are not range checked so scenarios can exercise rejections.
func (s *Scenario) Validate() error {
	if s.DurationMS == 0 {
		return fmt.Errorf("%w: duration_ms must be positive", ErrInvalidScenario)
	}
	for _, t := range s.Timers {
		if _, err := parseMode(t.Mode); err != nil {
			return err
		}
	}
	for _, m := range s.Disabled {
		if _, err := parseMode(m); err != nil {
			return err
		}
	}
	for _, st := range s.Steps {
		if !slices.Contains(stepOps, st.Op) {
			return fmt.Errorf("%w: unknown step op %q", ErrInvalidScenario, st.Op)
		}
		if st.Arg >= core.TickRange {
			return fmt.Errorf("%w: step %s argument %d exceeds the counter range", ErrInvalidScenario, st.Op, st.Arg)
		}
		if st.AtMS > s.DurationMS {
			return fmt.Errorf("%w: step %s at %dms is past the end", ErrInvalidScenario, st.Op, st.AtMS)
		}
	}
	slices.SortStableFunc(s.Steps, func(a, b StepSpec) bool {
		return a.AtMS < b.AtMS
	})
	return nil
}
