package tracing

import (
	"math"
	"strconv"
	"strings"
)

// A column is a field of a log together with the header names that are
// accepted for it. The first name is the canonical one.
type column struct {
	names []string
}

func (c column) canonical() string {
	return c.names[0]
}

// Columns of the accelerator log.
var (
	colRequestTime = column{[]string{"request_time"}}
	colAccelStart  = column{[]string{"accel_start_time", "gpu_start_time"}}
	colAccelEnd    = column{[]string{"accel_end_time", "gpu_end_time"}}
	colPushStart   = column{[]string{"transfer_in_start", "push_start_time"}}
	colPushEnd     = column{[]string{"transfer_in_end", "push_end_time"}}
	colPullStart   = column{[]string{"transfer_out_start", "pull_start_time"}}
	colPullEnd     = column{[]string{"transfer_out_end", "pull_end_time"}}
)

// Columns of the worker log.
var (
	colWorkerID      = column{[]string{"worker_id", "thread_id"}}
	colWorkerStart   = column{[]string{"worker_start_time"}}
	colWorkerRequest = column{[]string{"worker_request_time"}}
	colWorkerReceive = column{[]string{"worker_receive_time"}}
	colWorkerEnd     = column{[]string{"worker_end_time"}}
)

func acceleratorColumns(extended bool) []column {
	cols := []column{colRequestTime, colAccelStart, colAccelEnd}
	if extended {
		cols = append(cols, colPushStart, colPushEnd, colPullStart, colPullEnd)
	}

	return cols
}

func workerColumns() []column {
	return []column{
		colWorkerID,
		colWorkerStart,
		colWorkerRequest,
		colWorkerReceive,
		colWorkerEnd,
	}
}

// A table is a log loaded into memory, before its cells are interpreted.
type table struct {
	log    string
	header []string
	rows   [][]string
}

// resolve finds the position of each column in the header. It fails with
// ErrMissingColumn on the first column that has none of its names present.
func (t *table) resolve(cols []column) ([]int, error) {
	index := make(map[string]int, len(t.header))
	for i, h := range t.header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	positions := make([]int, len(cols))
	for i, c := range cols {
		pos, found := -1, false
		for _, name := range c.names {
			if pos, found = index[name]; found {
				break
			}
		}

		if !found {
			return nil, &DataError{
				Kind:   ErrMissingColumn,
				Log:    t.log,
				Row:    -1,
				Column: c.canonical(),
			}
		}

		positions[i] = pos
	}

	return positions, nil
}

// number parses a timestamp cell.
func (t *table) number(row int, pos int, c column) (float64, error) {
	cells := t.rows[row]
	if pos >= len(cells) {
		return 0, t.malformed(row, c, "row is too short")
	}

	text := strings.TrimSpace(cells[pos])
	if text == "" {
		return 0, t.malformed(row, c, "empty value")
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, t.malformed(row, c, strconv.Quote(text)+" is not a number")
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, t.malformed(row, c, strconv.Quote(text)+" is not finite")
	}

	return v, nil
}

// integer parses an identity cell. Values written as floats with a zero
// fraction, such as "3.0", are accepted.
func (t *table) integer(row int, pos int, c column) (int, error) {
	v, err := t.number(row, pos, c)
	if err != nil {
		return 0, err
	}

	if v != float64(int(v)) {
		return 0, t.malformed(row, c, "not an integer")
	}

	return int(v), nil
}

func (t *table) malformed(row int, c column, detail string) error {
	return &DataError{
		Kind:   ErrMalformedValue,
		Log:    t.log,
		Row:    row,
		Column: c.canonical(),
		Detail: detail,
	}
}

// acceleratorTasks interprets the table as an accelerator log.
func (t *table) acceleratorTasks(extended bool) ([]AcceleratorTask, error) {
	cols := acceleratorColumns(extended)

	pos, err := t.resolve(cols)
	if err != nil {
		return nil, err
	}

	tasks := make([]AcceleratorTask, 0, len(t.rows))
	for r := range t.rows {
		var v [7]float64
		for i, c := range cols {
			if v[i], err = t.number(r, pos[i], c); err != nil {
				return nil, err
			}
		}

		task := AcceleratorTask{
			RequestTime: v[0],
			StartTime:   v[1],
			EndTime:     v[2],
		}

		if extended {
			task.HasTransfer = true
			task.PushStart, task.PushEnd = v[3], v[4]
			task.PullStart, task.PullEnd = v[5], v[6]
		}

		tasks = append(tasks, task)
	}

	return tasks, nil
}

// workerTasks interprets the table as a worker log.
func (t *table) workerTasks() ([]WorkerTask, error) {
	cols := workerColumns()

	pos, err := t.resolve(cols)
	if err != nil {
		return nil, err
	}

	tasks := make([]WorkerTask, 0, len(t.rows))
	for r := range t.rows {
		id, err := t.integer(r, pos[0], cols[0])
		if err != nil {
			return nil, err
		}

		var v [4]float64
		for i, c := range cols[1:] {
			if v[i], err = t.number(r, pos[i+1], c); err != nil {
				return nil, err
			}
		}

		tasks = append(tasks, WorkerTask{
			WorkerID:    id,
			StartTime:   v[0],
			RequestTime: v[1],
			ReceiveTime: v[2],
			EndTime:     v[3],
		})
	}

	return tasks, nil
}
