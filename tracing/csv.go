package tracing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// CSVTraceReader reads the accelerator and the worker log from two CSV files
// with a header row.
type CSVTraceReader struct {
	acceleratorPath string
	workerPath      string
	extended        bool
}

// NewCSVTraceReader creates a new CSVTraceReader.
func NewCSVTraceReader(acceleratorPath, workerPath string) *CSVTraceReader {
	return &CSVTraceReader{
		acceleratorPath: acceleratorPath,
		workerPath:      workerPath,
	}
}

// WithExtendedMode makes the reader require the push/pull transfer columns in
// the accelerator log.
func (r *CSVTraceReader) WithExtendedMode(extended bool) *CSVTraceReader {
	r.extended = extended
	return r
}

// ReadAcceleratorTasks reads the accelerator log file.
func (r *CSVTraceReader) ReadAcceleratorTasks() ([]AcceleratorTask, error) {
	f, err := os.Open(r.acceleratorPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseAcceleratorCSV(f, r.extended)
}

// ReadWorkerTasks reads the worker log file.
func (r *CSVTraceReader) ReadWorkerTasks() ([]WorkerTask, error) {
	f, err := os.Open(r.workerPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseWorkerCSV(f)
}

// ParseAcceleratorCSV parses an accelerator log.
func ParseAcceleratorCSV(in io.Reader, extended bool) ([]AcceleratorTask, error) {
	t, err := readCSVTable(in, AcceleratorLog)
	if err != nil {
		return nil, err
	}

	return t.acceleratorTasks(extended)
}

// ParseWorkerCSV parses a worker log.
func ParseWorkerCSV(in io.Reader) ([]WorkerTask, error) {
	t, err := readCSVTable(in, WorkerLog)
	if err != nil {
		return nil, err
	}

	return t.workerTasks()
}

func readCSVTable(in io.Reader, log string) (*table, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s log: %w", log, err)
	}

	if len(records) == 0 {
		return nil, &DataError{
			Kind:   ErrMissingColumn,
			Log:    log,
			Row:    -1,
			Detail: "no header row",
		}
	}

	return &table{
		log:    log,
		header: records[0],
		rows:   records[1:],
	}, nil
}
