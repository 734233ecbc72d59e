package tracing

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// CSVTraceWriter stores a trace as the pair of CSV logs that CSVTraceReader
// reads. The headers use the thread_id and gpu_* column names.
type CSVTraceWriter struct {
	prefix   string
	extended bool

	accelFile  *os.File
	workerFile *os.File

	accelTasks  []AcceleratorTask
	workerTasks []WorkerTask
	bufferSize  int
	taskCount   int
}

// NewCSVTraceWriter creates a new CSVTraceWriter. The logs are written to
// <prefix>_gpu_task_log.csv and <prefix>_worker_task_log.csv.
func NewCSVTraceWriter(prefix string) *CSVTraceWriter {
	return &CSVTraceWriter{
		prefix:     prefix,
		bufferSize: 1000,
	}
}

// WithExtendedMode makes the writer emit the push/pull transfer columns.
func (t *CSVTraceWriter) WithExtendedMode(extended bool) *CSVTraceWriter {
	t.extended = extended
	return t
}

// AcceleratorPath returns the path of the accelerator log.
func (t *CSVTraceWriter) AcceleratorPath() string {
	return t.prefix + "_gpu_task_log.csv"
}

// WorkerPath returns the path of the worker log.
func (t *CSVTraceWriter) WorkerPath() string {
	return t.prefix + "_worker_task_log.csv"
}

// Init creates the two CSV files. Existing files are not overwritten.
func (t *CSVTraceWriter) Init() error {
	if t.prefix == "" {
		t.prefix = "threadviz_trace_" + xid.New().String()
	}

	var err error

	t.accelFile, err = createNew(t.AcceleratorPath())
	if err != nil {
		return err
	}

	t.workerFile, err = createNew(t.WorkerPath())
	if err != nil {
		t.accelFile.Close()
		return err
	}

	header := "thread_id,request_time,gpu_start_time,gpu_end_time"
	if t.extended {
		header += ",push_start_time,push_end_time,pull_start_time,pull_end_time"
	}
	fmt.Fprintln(t.accelFile, header)

	fmt.Fprintln(t.workerFile,
		"thread_id,worker_start_time,worker_request_time,"+
			"worker_receive_time,worker_end_time")

	atexit.Register(func() { t.Close() })

	return nil
}

func createNew(filename string) (*os.File, error) {
	_, err := os.Stat(filename)
	if err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	return os.Create(filename)
}

// WriteAcceleratorTask buffers an accelerator record.
func (t *CSVTraceWriter) WriteAcceleratorTask(task AcceleratorTask) {
	t.accelTasks = append(t.accelTasks, task)
	if len(t.accelTasks) >= t.bufferSize {
		t.Flush()
	}
}

// WriteWorkerTask buffers a worker record.
func (t *CSVTraceWriter) WriteWorkerTask(task WorkerTask) {
	t.workerTasks = append(t.workerTasks, task)
	if len(t.workerTasks) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered records to the files.
func (t *CSVTraceWriter) Flush() {
	if t.accelFile == nil {
		return
	}

	for _, task := range t.accelTasks {
		fmt.Fprintf(t.accelFile, "%d,%.2f,%.2f,%.2f",
			t.taskCount, task.RequestTime, task.StartTime, task.EndTime)
		t.taskCount++

		if t.extended {
			fmt.Fprintf(t.accelFile, ",%.2f,%.2f,%.2f,%.2f",
				task.PushStart, task.PushEnd, task.PullStart, task.PullEnd)
		}

		fmt.Fprintln(t.accelFile)
	}

	for _, task := range t.workerTasks {
		fmt.Fprintf(t.workerFile, "%d,%.2f,%.2f,%.2f,%.2f\n",
			task.WorkerID,
			task.StartTime,
			task.RequestTime,
			task.ReceiveTime,
			task.EndTime,
		)
	}

	t.accelTasks = nil
	t.workerTasks = nil
}

// Close flushes the buffers and closes the files. Calling Close more than once
// is allowed.
func (t *CSVTraceWriter) Close() error {
	if t.accelFile == nil {
		return nil
	}

	t.Flush()

	err1 := t.accelFile.Close()
	err2 := t.workerFile.Close()
	t.accelFile, t.workerFile = nil, nil

	if err1 != nil {
		return err1
	}

	return err2
}
