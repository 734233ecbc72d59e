package tracing

// An AcceleratorTask is one unit of work executed on the dedicated
// accelerator thread. All times are in milliseconds.
type AcceleratorTask struct {
	RequestTime float64 `json:"request_time"`
	StartTime   float64 `json:"accel_start_time"`
	EndTime     float64 `json:"accel_end_time"`

	// The transfer fields are only loaded from extended traces, where a
	// dedicated worker pushes the input to and pulls the output from the
	// accelerator around the compute phase.
	HasTransfer bool    `json:"-"`
	PushStart   float64 `json:"transfer_in_start"`
	PushEnd     float64 `json:"transfer_in_end"`
	PullStart   float64 `json:"transfer_out_start"`
	PullEnd     float64 `json:"transfer_out_end"`
}

// A WorkerTask is one unit of work processed by a worker thread. A worker
// does some local work, asks the accelerator for service, waits for the
// result and then finishes locally.
type WorkerTask struct {
	WorkerID    int     `json:"worker_id"`
	StartTime   float64 `json:"worker_start_time"`
	RequestTime float64 `json:"worker_request_time"`
	ReceiveTime float64 `json:"worker_receive_time"`
	EndTime     float64 `json:"worker_end_time"`
}

// shift subtracts origin from every timestamp of the task.
func (t *AcceleratorTask) shift(origin float64) {
	t.RequestTime -= origin
	t.StartTime -= origin
	t.EndTime -= origin

	if t.HasTransfer {
		t.PushStart -= origin
		t.PushEnd -= origin
		t.PullStart -= origin
		t.PullEnd -= origin
	}
}

func (t *WorkerTask) shift(origin float64) {
	t.StartTime -= origin
	t.RequestTime -= origin
	t.ReceiveTime -= origin
	t.EndTime -= origin
}
