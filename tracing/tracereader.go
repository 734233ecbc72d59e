package tracing

// TraceReader loads the two logs of a producer/consumer trace.
type TraceReader interface {
	// ReadAcceleratorTasks returns the accelerator log in the order it was
	// recorded.
	ReadAcceleratorTasks() ([]AcceleratorTask, error)

	// ReadWorkerTasks returns the worker log in the order it was recorded.
	ReadWorkerTasks() ([]WorkerTask, error)
}
