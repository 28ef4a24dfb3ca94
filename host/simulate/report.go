package simulate

import (
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Report is the outcome of one scenario run
type Report struct {
	Name        string        `yaml:"name"`
	DurationMS  uint32        `yaml:"duration_ms"`
	Timers      []TimerReport `yaml:"timers"`
	Rejected    []string      `yaml:"rejected,omitempty"`
	TraceEvents uint32        `yaml:"trace_events"`
}

// TimerReport summarizes one timer. Intervals are measured in ticks between
// consecutive compare matches.
type TimerReport struct {
	ID             uint8   `yaml:"id"`
	Mode           string  `yaml:"mode"`
	Fires          int     `yaml:"fires"`
	Overflows      int     `yaml:"overflows"`
	MeanInterval   float64 `yaml:"mean_interval"`
	IntervalStdDev float64 `yaml:"interval_stddev"`
	MeanPeriodUS   uint32  `yaml:"mean_period_us"`
	FinalValue     uint16  `yaml:"final_value"`
	Scheduled      bool    `yaml:"scheduled"`
}

// WriteYAML encodes the report as a YAML document
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// WriteText renders the report as an aligned table
func (r *Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "scenario %q, %dms, %d trace events\n", r.Name, r.DurationMS, r.TraceEvents)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODE\tFIRES\tOVERFLOWS\tINTERVAL\tSTDDEV\tPERIOD(us)\tVALUE\tSCHEDULED")
	for _, t := range r.Timers {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.1f\t%.2f\t%d\t%d\t%v\n",
			t.ID, t.Mode, t.Fires, t.Overflows, t.MeanInterval, t.IntervalStdDev, t.MeanPeriodUS, t.FinalValue, t.Scheduled)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, line := range r.Rejected {
		if _, err := fmt.Fprintf(w, "rejected: %s\n", line); err != nil {
			return err
		}
	}
	return nil
}
