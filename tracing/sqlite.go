package tracing

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

// Tables that hold the two logs in a SQLite trace database.
const (
	AcceleratorTable = "accelerator_task"
	WorkerTable      = "worker_task"
)

// SQLiteTraceReader reads the accelerator and the worker log from the tables
// of a SQLite database. The tables follow the same column naming as the CSV
// logs.
type SQLiteTraceReader struct {
	*sql.DB

	filename string
	extended bool
}

// NewSQLiteTraceReader creates a new SQLiteTraceReader. Init must be called
// before reading.
func NewSQLiteTraceReader(filename string) *SQLiteTraceReader {
	r := &SQLiteTraceReader{
		filename: filename,
	}

	return r
}

// NewSQLiteTraceReaderWithDB creates a SQLiteTraceReader on an open database.
func NewSQLiteTraceReaderWithDB(db *sql.DB) *SQLiteTraceReader {
	return &SQLiteTraceReader{DB: db}
}

// WithExtendedMode makes the reader require the push/pull transfer columns in
// the accelerator table.
func (r *SQLiteTraceReader) WithExtendedMode(extended bool) *SQLiteTraceReader {
	r.extended = extended
	return r
}

// Init establishes a connection to the database. The file must exist.
func (r *SQLiteTraceReader) Init() error {
	_, err := os.Stat(r.filename)
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite3", r.filename)
	if err != nil {
		return err
	}

	r.DB = db

	return nil
}

// ReadAcceleratorTasks reads the accelerator table.
func (r *SQLiteTraceReader) ReadAcceleratorTasks() ([]AcceleratorTask, error) {
	t, err := r.readTable(AcceleratorTable, AcceleratorLog)
	if err != nil {
		return nil, err
	}

	return t.acceleratorTasks(r.extended)
}

// ReadWorkerTasks reads the worker table.
func (r *SQLiteTraceReader) ReadWorkerTasks() ([]WorkerTask, error) {
	t, err := r.readTable(WorkerTable, WorkerLog)
	if err != nil {
		return nil, err
	}

	return t.workerTasks()
}

func (r *SQLiteTraceReader) readTable(name, log string) (*table, error) {
	rows, err := r.Query("SELECT * FROM " + name + " ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("reading %s log: %w", log, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	t := &table{
		log:    log,
		header: header,
	}

	values := make([]any, len(header))
	dest := make([]any, len(header))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		err := rows.Scan(dest...)
		if err != nil {
			return nil, err
		}

		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = cellText(v)
		}

		t.rows = append(t.rows, cells)
	}

	return t, rows.Err()
}

// cellText turns a value returned by the SQLite driver into the text form the
// table parser understands. NULL becomes an empty cell.
func cellText(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []byte:
		return string(v)
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
