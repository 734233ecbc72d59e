package tracing

import (
	"errors"
	"fmt"
)

// Kinds of data errors. A *DataError matches its kind with errors.Is.
var (
	ErrMissingColumn         = errors.New("missing column")
	ErrMalformedValue        = errors.New("malformed value")
	ErrEmptyAfterTrim        = errors.New("empty after trim")
	ErrInvalidInterval       = errors.New("invalid interval")
	ErrNonMonotonicTimestamp = errors.New("non-monotonic timestamp")
	ErrUnknownWorker         = errors.New("unknown worker")
)

// Names of the two logs, used when reporting errors.
const (
	AcceleratorLog = "accelerator"
	WorkerLog      = "worker"
)

// DataError describes a problem found in the input logs. Row is the 0-based
// data row in the log as it was read, or -1 if the error is not tied to a row.
type DataError struct {
	Kind   error
	Log    string
	Row    int
	Column string
	Detail string
}

func (e *DataError) Error() string {
	msg := e.Kind.Error()

	if e.Log != "" {
		msg += ": " + e.Log + " log"
	}

	if e.Row >= 0 {
		msg += fmt.Sprintf(", row %d", e.Row)
	}

	if e.Column != "" {
		msg += fmt.Sprintf(", column %q", e.Column)
	}

	if e.Detail != "" {
		msg += ": " + e.Detail
	}

	return msg
}

// Unwrap returns the kind of the error.
func (e *DataError) Unwrap() error {
	return e.Kind
}

// NewDataError creates a DataError that is not tied to a column.
func NewDataError(kind error, log string, row int, detail string) *DataError {
	return &DataError{
		Kind:   kind,
		Log:    log,
		Row:    row,
		Detail: detail,
	}
}
