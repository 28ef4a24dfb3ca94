package simulate

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"hwtimer/core"
	"hwtimer/protocol"
	"hwtimer/sim"
)

// Step is the simulation time quantum, one tick of the fastest mode
const Step = time.Second / core.Ticks32K

// tracker records the activity of one timer from its callbacks
type tracker struct {
	bank   *core.TimerBank
	id     core.TimerID
	mode   core.FrequencyMode
	period core.Tick

	fires     int
	overflows int
	last      core.Tick
	intervals []float64
}

func (t *tracker) onCompare() {
	now := t.bank.GetValue(t.id)
	if t.fires > 0 {
		t.intervals = append(t.intervals, float64(core.Elapsed(t.last, now)))
	}
	t.last = now
	t.fires++
	if t.period > 0 {
		_ = t.bank.ScheduleDelay(t.id, t.period)
	}
}

func (t *tracker) onOverflow() {
	t.overflows++
}

func (t *tracker) report() TimerReport {
	r := TimerReport{
		ID:         uint8(t.id),
		Mode:       t.mode.String(),
		Fires:      t.fires,
		Overflows:  t.overflows,
		FinalValue: uint16(t.bank.GetValue(t.id)),
		Scheduled:  t.bank.IsScheduled(t.id),
	}
	switch {
	case len(t.intervals) > 1:
		r.MeanInterval, r.IntervalStdDev = stat.MeanStdDev(t.intervals, nil)
	case len(t.intervals) == 1:
		r.MeanInterval = t.intervals[0]
	}
	r.MeanPeriodUS = core.TicksToMicros(t.mode, uint32(r.MeanInterval+0.5))
	return r
}

// Run executes a validated scenario on a fresh simulated bank.
// It uses the global trace ring, so scenarios must not run concurrently.
func Run(s *Scenario) (*Report, error) {
	hw := sim.New()
	if len(s.Disabled) > 0 {
		hw.Unsupported = make(map[core.FrequencyMode]bool)
		for _, name := range s.Disabled {
			mode, err := parseMode(name)
			if err != nil {
				return nil, err
			}
			hw.Unsupported[mode] = true
		}
	}
	bank := core.NewTimerBank(hw)
	core.ClearTimingRing()

	report := &Report{Name: s.Name, DurationMS: s.DurationMS}

	var trackers []*tracker
	for _, spec := range s.Timers {
		mode, err := parseMode(spec.Mode)
		if err != nil {
			return nil, err
		}
		t := &tracker{bank: bank, id: core.TimerID(spec.ID), mode: mode, period: core.Tick(spec.Period)}
		if err := bank.Init(t.id, mode, t.onCompare, t.onOverflow); err != nil {
			report.reject(0, protocol.OpInit.String(), spec.ID, err)
			continue
		}
		trackers = append(trackers, t)
		if spec.First > 0 {
			if err := bank.ScheduleDelay(t.id, core.Tick(spec.First)); err != nil {
				report.reject(0, protocol.OpScheduleDelay.String(), spec.ID, err)
			}
		}
	}

	duration := time.Duration(s.DurationMS) * time.Millisecond
	next := 0
	for elapsed := time.Duration(0); elapsed < duration; elapsed += Step {
		for next < len(s.Steps) && time.Duration(s.Steps[next].AtMS)*time.Millisecond <= elapsed {
			report.apply(bank, s.Steps[next])
			next++
		}
		for id := 0; id < core.HWTimerNum; id++ {
			hw.Elapse(core.TimerID(id), Step)
		}
	}
	for ; next < len(s.Steps); next++ {
		report.apply(bank, s.Steps[next])
	}

	for _, t := range trackers {
		report.Timers = append(report.Timers, t.report())
	}
	lost := core.DrainTimingRing(func(core.TimingEvent) { report.TraceEvents++ })
	report.TraceEvents += lost
	return report, nil
}

// apply runs one step against the bank and records a rejection
func (r *Report) apply(bank *core.TimerBank, st StepSpec) {
	op, _ := protocol.OpByName(st.Op)
	id := core.TimerID(st.ID)

	var err error
	switch op {
	case protocol.OpSchedule:
		err = bank.Schedule(id, core.Tick(st.Arg))
	case protocol.OpScheduleDelay:
		err = bank.ScheduleDelay(id, core.Tick(st.Arg))
	case protocol.OpCancel:
		err = bank.Cancel(id)
	case protocol.OpReset:
		err = bank.CounterReset(id)
	default:
		err = fmt.Errorf("unsupported step op %q", st.Op)
	}
	if err != nil {
		r.reject(st.AtMS, st.Op, st.ID, err)
	}
}

func (r *Report) reject(atMS uint32, op string, id uint8, err error) {
	r.Rejected = append(r.Rejected, fmt.Sprintf("%dms %s %d: %v", atMS, op, id, core.StatusOf(err)))
}
