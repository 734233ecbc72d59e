// Package datarecording stores flat Go structs into SQLite tables.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns follow the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of all tables created so far.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush() error

	// Filename returns the database file, or "" for a borrowed database.
	Filename() string

	// Close flushes and closes the database.
	Close() error
}

// New creates a new DataRecorder that writes to path + ".sqlite3". An empty
// path picks a unique name. The recorder is flushed when the program exits
// through atexit.
func New(path string) (DataRecorder, error) {
	w := newWriter()
	w.dbName = path

	err := w.Init()
	if err != nil {
		return nil, err
	}

	atexit.Register(func() { _ = w.Flush() })

	return w, nil
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := newWriter()
	w.DB = db

	atexit.Register(func() { _ = w.Flush() })

	return w
}

func newWriter() *sqliteWriter {
	return &sqliteWriter{
		batchSize: 100000,
		tables:    make(map[string]*table),
	}
}

type table struct {
	structType reflect.Type
	columns    []string
	entries    []any
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	*sql.DB

	dbName     string
	tables     map[string]*table
	tableOrder []string
	batchSize  int
	entryCount int
	closed     bool
}

// Init establishes a connection to the database.
func (t *sqliteWriter) Init() error {
	if t.dbName == "" {
		t.dbName = "threadviz_record_" + xid.New().String()
	}

	filename := t.dbName
	if !strings.HasSuffix(filename, ".sqlite3") {
		filename += ".sqlite3"
	}

	_, err := os.Stat(filename)
	if err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return err
	}

	t.DB = db
	t.dbName = filename

	return nil
}

// Filename returns the database file the recorder writes to.
func (t *sqliteWriter) Filename() string {
	return t.dbName
}

func isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// columnsOf lists the column names of a flat struct. A `db` tag renames a
// field; `db:"-"` skips it.
func columnsOf(structType reflect.Type) ([]string, error) {
	if structType.Kind() != reflect.Struct {
		return nil, errors.New("entry is not a struct")
	}

	var columns []string

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			return nil, fmt.Errorf("field %s is not exported", field.Name)
		}

		name := field.Name
		if tag, ok := field.Tag.Lookup("db"); ok {
			if tag == "-" {
				continue
			}

			name = tag
		}

		if !isAllowedType(field.Type.Kind()) {
			return nil, fmt.Errorf("field %s has unsupported type %s",
				field.Name, field.Type)
		}

		columns = append(columns, name)
	}

	if len(columns) == 0 {
		return nil, errors.New("entry has no columns")
	}

	return columns, nil
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	if _, exists := t.tables[tableName]; exists {
		return fmt.Errorf("table %s already exists", tableName)
	}

	structType := reflect.TypeOf(sampleEntry)
	if structType == nil {
		return errors.New("entry is invalid")
	}

	columns, err := columnsOf(structType)
	if err != nil {
		return fmt.Errorf("table %s: %w", tableName, err)
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(c)
	}

	createTableSQL := `CREATE TABLE ` + quote(tableName) +
		` (` + "\n\t" + strings.Join(quoted, ", \n\t") + "\n" + `);`

	_, err = t.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("creating table %s: %w", tableName, err)
	}

	t.tables[tableName] = &table{
		structType: structType,
		columns:    columns,
	}
	t.tableOrder = append(t.tableOrder, tableName)

	return nil
}

func (t *sqliteWriter) InsertData(tableName string, entry any) error {
	table, exists := t.tables[tableName]
	if !exists {
		return fmt.Errorf("table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != table.structType {
		return fmt.Errorf("table %s expects %s, got %T",
			tableName, table.structType, entry)
	}

	table.entries = append(table.entries, entry)

	t.entryCount++
	if t.entryCount >= t.batchSize {
		return t.Flush()
	}

	return nil
}

func (t *sqliteWriter) ListTables() []string {
	tables := make([]string, len(t.tableOrder))
	copy(tables, t.tableOrder)

	return tables
}

func (t *sqliteWriter) Flush() error {
	if t.entryCount == 0 || t.closed {
		return nil
	}

	tx, err := t.Begin()
	if err != nil {
		return err
	}

	for _, tableName := range t.tableOrder {
		err = t.flushTable(tx, tableName, t.tables[tableName])
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	t.entryCount = 0

	return nil
}

func (t *sqliteWriter) flushTable(tx *sql.Tx, name string, table *table) error {
	if len(table.entries) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(
		strings.Repeat("?, ", len(table.columns)), ", ")
	stmt, err := tx.Prepare(
		"INSERT INTO " + quote(name) + " VALUES (" + placeholders + ")")
	if err != nil {
		return fmt.Errorf("preparing insert into %s: %w", name, err)
	}
	defer stmt.Close()

	for _, entry := range table.entries {
		_, err = stmt.Exec(fieldValues(entry)...)
		if err != nil {
			return fmt.Errorf("inserting into %s: %w", name, err)
		}
	}

	table.entries = nil

	return nil
}

func fieldValues(entry any) []any {
	value := reflect.ValueOf(entry)
	structType := value.Type()

	v := make([]any, 0, value.NumField())
	for i := 0; i < value.NumField(); i++ {
		if structType.Field(i).Tag.Get("db") == "-" {
			continue
		}

		v = append(v, value.Field(i).Interface())
	}

	return v
}

func (t *sqliteWriter) Close() error {
	if t.closed {
		return nil
	}

	err := t.Flush()
	if err != nil {
		return err
	}

	t.closed = true

	return t.DB.Close()
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
