package tracing

import "fmt"

// Normalized is a trace whose timestamps are relative to the start of the
// first retained worker task.
type Normalized struct {
	Accelerator []AcceleratorTask
	Workers     []WorkerTask

	// Origin is the absolute time that became time 0.
	Origin float64

	// Span is the end of the last retained worker task, in relative time.
	Span float64
}

// Normalize trims cut records from both ends of each log and rebases all
// timestamps onto the start of the first retained worker task.
//
// The two logs are trimmed independently by row position. Records are
// shifted in place; the returned slices share their backing arrays with the
// inputs.
func Normalize(
	accel []AcceleratorTask,
	workers []WorkerTask,
	cut int,
) (*Normalized, error) {
	if cut < 0 {
		return nil, fmt.Errorf("trim count must not be negative, got %d", cut)
	}

	accel, err := trim(accel, cut, AcceleratorLog)
	if err != nil {
		return nil, err
	}

	workers, err = trim(workers, cut, WorkerLog)
	if err != nil {
		return nil, err
	}

	err = checkAcceleratorOrder(accel, cut)
	if err != nil {
		return nil, err
	}

	origin := workers[0].StartTime
	span := workers[len(workers)-1].EndTime - origin

	Shift(accel, workers, origin)

	return &Normalized{
		Accelerator: accel,
		Workers:     workers,
		Origin:      origin,
		Span:        span,
	}, nil
}

func trim[T any](records []T, cut int, log string) ([]T, error) {
	if len(records) < 2*cut+1 {
		return nil, NewDataError(ErrEmptyAfterTrim, log, -1,
			fmt.Sprintf("%d records cannot be trimmed by %d on each side",
				len(records), cut))
	}

	return records[cut : len(records)-cut], nil
}

// checkAcceleratorOrder requires accelerator tasks to be ordered by their
// start time. first is the row of accel[0] in the log as it was read.
func checkAcceleratorOrder(accel []AcceleratorTask, first int) error {
	for i := 1; i < len(accel); i++ {
		if accel[i].StartTime < accel[i-1].StartTime {
			return &DataError{
				Kind:   ErrNonMonotonicTimestamp,
				Log:    AcceleratorLog,
				Row:    first + i,
				Column: colAccelStart.canonical(),
				Detail: fmt.Sprintf("%g starts before the previous task at %g",
					accel[i].StartTime, accel[i-1].StartTime),
			}
		}
	}

	return nil
}

// Shift subtracts origin from every timestamp of every record, in place.
func Shift(accel []AcceleratorTask, workers []WorkerTask, origin float64) {
	for i := range accel {
		accel[i].shift(origin)
	}

	for i := range workers {
		workers[i].shift(origin)
	}
}
