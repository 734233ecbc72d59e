// Package timeline turns a normalized trace into lanes and intervals that can
// be laid out on a 2-D timeline.
package timeline

import (
	"fmt"

	"github.com/sarchlab/threadviz/tracing"
)

// Fixed lanes of the accelerator.
const (
	AcceleratorLane = 0
	TransferLane    = 1
)

// A LaneTable maps actor identities to vertical lanes. The accelerator always
// owns lane 0. In extended mode the accelerator's push/pull transfers own lane
// 1. Workers follow in ascending identity order.
//
// The mapping depends only on the identity and the table's construction
// parameters, never on timestamps.
type LaneTable struct {
	workerCount   int
	firstWorkerID int
	extended      bool

	acceleratorLabel string
	transferLabel    string
}

// NewLaneTable creates a lane table sized for workerCount workers whose
// identities start at firstWorkerID.
func NewLaneTable(workerCount, firstWorkerID int, extended bool) *LaneTable {
	if workerCount <= 0 {
		panic("lane table must have at least one worker lane")
	}

	return &LaneTable{
		workerCount:      workerCount,
		firstWorkerID:    firstWorkerID,
		extended:         extended,
		acceleratorLabel: "GPU",
		transferLabel:    "Worker 0",
	}
}

// WithLabels sets the axis labels of the accelerator lanes.
func (t *LaneTable) WithLabels(accelerator, transfer string) *LaneTable {
	t.acceleratorLabel = accelerator
	t.transferLabel = transfer

	return t
}

// Extended tells if the table has a transfer lane.
func (t *LaneTable) Extended() bool {
	return t.extended
}

// AcceleratorLanes returns the number of lanes owned by the accelerator.
func (t *LaneTable) AcceleratorLanes() int {
	if t.extended {
		return 2
	}

	return 1
}

// NumLanes returns the number of lanes in the table.
func (t *LaneTable) NumLanes() int {
	return t.AcceleratorLanes() + t.workerCount
}

// WorkerLane returns the lane of a worker. Workers beyond the table's size
// get lanes past NumLanes; they are laid out but fall outside the axis.
func (t *LaneTable) WorkerLane(workerID int) (int, error) {
	if workerID < t.firstWorkerID {
		return 0, &tracing.DataError{
			Kind: tracing.ErrUnknownWorker,
			Log:  tracing.WorkerLog,
			Row:  -1,
			Detail: fmt.Sprintf("worker %d is below the first worker id %d",
				workerID, t.firstWorkerID),
		}
	}

	return t.AcceleratorLanes() + workerID - t.firstWorkerID, nil
}

// InRange tells if a lane is one of the table's lanes.
func (t *LaneTable) InRange(lane int) bool {
	return lane >= 0 && lane < t.NumLanes()
}

// Labels returns the lane labels from top to bottom.
func (t *LaneTable) Labels() []string {
	labels := make([]string, 0, t.NumLanes())

	labels = append(labels, t.acceleratorLabel)
	if t.extended {
		labels = append(labels, t.transferLabel)
	}

	for i := 0; i < t.workerCount; i++ {
		labels = append(labels, fmt.Sprintf("Worker %d", t.firstWorkerID+i))
	}

	return labels
}
