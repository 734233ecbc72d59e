package timeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/threadviz/tracing"
)

// A Phase is a named state in the lifecycle of an actor.
type Phase string

// Phases of the accelerator and of the workers.
const (
	PhaseCompute         Phase = "compute"
	PhasePush            Phase = "push"
	PhasePull            Phase = "pull"
	PhasePreAccelerator  Phase = "pre-accelerator"
	PhaseWaiting         Phase = "waiting"
	PhasePostAccelerator Phase = "post-accelerator"
)

// Phases lists all phases in their canonical order.
var Phases = []Phase{
	PhaseCompute,
	PhasePush,
	PhasePull,
	PhasePreAccelerator,
	PhaseWaiting,
	PhasePostAccelerator,
}

// An Interval is the time an actor spent in one phase.
type Interval struct {
	Lane  int     `json:"lane"`
	Phase Phase   `json:"phase"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	// Actor is the worker id of worker intervals and -1 for the accelerator.
	Actor int `json:"actor"`
}

// Duration returns the length of the interval.
func (i Interval) Duration() float64 {
	return i.End - i.Start
}

// BuildIntervals derives the intervals of a normalized trace. Accelerator
// intervals come first, in record order, followed by the worker intervals in
// record order. An interval that ends before it starts is reported as
// tracing.ErrInvalidInterval, one with a bound that is not finite as
// tracing.ErrMalformedValue.
func BuildIntervals(
	accel []tracing.AcceleratorTask,
	workers []tracing.WorkerTask,
	lanes *LaneTable,
) ([]Interval, error) {
	b := builder{
		lanes:     lanes,
		intervals: make([]Interval, 0, 3*len(accel)+3*len(workers)),
	}

	for row, task := range accel {
		err := b.addAcceleratorTask(row, task)
		if err != nil {
			return nil, err
		}
	}

	for row, task := range workers {
		err := b.addWorkerTask(row, task)
		if err != nil {
			return nil, err
		}
	}

	return b.intervals, nil
}

// AcceleratorBoundaries returns the start and end of every compute interval,
// in the order the intervals appear.
func AcceleratorBoundaries(intervals []Interval) []float64 {
	var boundaries []float64

	for _, i := range intervals {
		if i.Phase == PhaseCompute {
			boundaries = append(boundaries, i.Start, i.End)
		}
	}

	return boundaries
}

type builder struct {
	lanes     *LaneTable
	intervals []Interval
}

func (b *builder) addAcceleratorTask(row int, task tracing.AcceleratorTask) error {
	err := b.add(tracing.AcceleratorLog, row, Interval{
		Lane:  AcceleratorLane,
		Phase: PhaseCompute,
		Start: task.StartTime,
		End:   task.EndTime,
		Actor: -1,
	})
	if err != nil {
		return err
	}

	if !task.HasTransfer || !b.lanes.Extended() {
		return nil
	}

	err = b.add(tracing.AcceleratorLog, row, Interval{
		Lane:  TransferLane,
		Phase: PhasePush,
		Start: task.PushStart,
		End:   task.PushEnd,
		Actor: -1,
	})
	if err != nil {
		return err
	}

	return b.add(tracing.AcceleratorLog, row, Interval{
		Lane:  TransferLane,
		Phase: PhasePull,
		Start: task.PullStart,
		End:   task.PullEnd,
		Actor: -1,
	})
}

func (b *builder) addWorkerTask(row int, task tracing.WorkerTask) error {
	lane, err := b.lanes.WorkerLane(task.WorkerID)
	if err != nil {
		var dataErr *tracing.DataError
		if errors.As(err, &dataErr) {
			dataErr.Row = row
		}

		return err
	}

	phases := []struct {
		phase      Phase
		start, end float64
	}{
		{PhasePreAccelerator, task.StartTime, task.RequestTime},
		{PhaseWaiting, task.RequestTime, task.ReceiveTime},
		{PhasePostAccelerator, task.ReceiveTime, task.EndTime},
	}

	for _, p := range phases {
		err := b.add(tracing.WorkerLog, row, Interval{
			Lane:  lane,
			Phase: p.phase,
			Start: p.start,
			End:   p.end,
			Actor: task.WorkerID,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (b *builder) add(log string, row int, i Interval) error {
	if !finite(i.Start) || !finite(i.End) {
		return &tracing.DataError{
			Kind: tracing.ErrMalformedValue,
			Log:  log,
			Row:  row,
			Detail: fmt.Sprintf("%s spans %g to %g", i.Phase, i.Start, i.End),
		}
	}

	if i.End < i.Start {
		return &tracing.DataError{
			Kind: tracing.ErrInvalidInterval,
			Log:  log,
			Row:  row,
			Detail: fmt.Sprintf("%s ends at %g before it starts at %g",
				i.Phase, i.End, i.Start),
		}
	}

	b.intervals = append(b.intervals, i)

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
