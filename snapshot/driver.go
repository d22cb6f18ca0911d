package snapshot

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DriverCursor adapts a live driver.Rows to the Reader contract. It is the
// cursor Capture drains on a cache miss.
type DriverCursor struct {
	rowAccess
	rows driver.Rows
	dest []driver.Value

	// one row of lookahead, filled by HasRows
	peeked  bool
	pending []Value
	peekErr error
	done    bool
	seen    bool
}

var _ Reader = (*DriverCursor)(nil)

// NewDriverCursor wraps rows. Column metadata is read immediately.
func NewDriverCursor(rows driver.Rows) *DriverCursor {
	c := &DriverCursor{rows: rows}
	c.loadColumns()
	return c
}

func (c *DriverCursor) loadColumns() {
	names := c.rows.Columns()
	c.columns = make([]Column, len(names))
	for i, name := range names {
		c.columns[i] = Column{
			Name:         name,
			DeclaredType: databaseTypeName(c.rows, i),
			Ordinal:      i,
			Kind:         scanKind(c.rows, i),
		}
	}
	c.index = newIndex(c.columns)
	c.dest = make([]driver.Value, len(names))
}

func databaseTypeName(rows driver.Rows, i int) string {
	if r, ok := rows.(driver.RowsColumnTypeDatabaseTypeName); ok {
		return r.ColumnTypeDatabaseTypeName(i)
	}
	return ""
}

var (
	timeType        = reflect.TypeOf(time.Time{})
	bytesType       = reflect.TypeOf([]byte(nil))
	decimalType     = reflect.TypeOf(decimal.Decimal{})
	nullDecimalType = reflect.TypeOf(decimal.NullDecimal{})
	uuidType        = reflect.TypeOf(uuid.UUID{})
	nullUUIDType    = reflect.TypeOf(uuid.NullUUID{})
	nullTypes       = map[reflect.Type]Kind{
		reflect.TypeOf(sql.NullBool{}):    KindBool,
		reflect.TypeOf(sql.NullInt16{}):   KindInt,
		reflect.TypeOf(sql.NullInt32{}):   KindInt,
		reflect.TypeOf(sql.NullInt64{}):   KindInt,
		reflect.TypeOf(sql.NullByte{}):    KindInt,
		reflect.TypeOf(sql.NullFloat64{}): KindFloat,
		reflect.TypeOf(sql.NullString{}):  KindText,
		reflect.TypeOf(sql.NullTime{}):    KindTime,
	}
)

func scanKind(rows driver.Rows, i int) Kind {
	r, ok := rows.(driver.RowsColumnTypeScanType)
	if !ok {
		return KindOther
	}
	t := r.ColumnTypeScanType(i)
	if t == nil {
		return KindOther
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return KindTime
	case bytesType:
		return KindBinary
	case decimalType, nullDecimalType:
		return KindDecimal
	case uuidType, nullUUIDType:
		return KindUUID
	}
	if k, ok := nullTypes[t]; ok {
		return k
	}
	switch t.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindText
	}
	return KindOther
}

func (c *DriverCursor) read() ([]Value, error) {
	if err := c.rows.Next(c.dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	values := make([]Value, len(c.dest))
	for i, v := range c.dest {
		values[i] = FromDriver(v)
	}
	return values, nil
}

// Next reads the next row from the driver.
func (c *DriverCursor) Next() (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	if c.done {
		return false, nil
	}

	var (
		values []Value
		err    error
	)
	if c.peeked {
		values, err = c.pending, c.peekErr
		c.peeked, c.pending, c.peekErr = false, nil, nil
	} else {
		values, err = c.read()
	}
	if err != nil || values == nil {
		c.done = true
		c.current = nil
		return false, err
	}

	c.current = values
	c.seen = true
	return true, nil
}

// HasRows reports whether the result set has at least one row. Before the
// first Next this reads one row ahead.
func (c *DriverCursor) HasRows() bool {
	if c.seen {
		return true
	}
	if c.peeked {
		return c.pending != nil
	}
	if c.closed || c.done {
		return false
	}
	c.pending, c.peekErr = c.read()
	c.peeked = true
	return c.pending != nil
}

// Close closes the underlying driver rows once.
func (c *DriverCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.current = nil
	return c.rows.Close()
}

// NextResultSet advances to the next result set when the driver supports
// multiple result sets.
func (c *DriverCursor) NextResultSet() (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	r, ok := c.rows.(driver.RowsNextResultSet)
	if !ok {
		return false, fmt.Errorf("next result set: %w", ErrNotSupported)
	}
	if !r.HasNextResultSet() {
		return false, nil
	}
	if err := r.NextResultSet(); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	c.loadColumns()
	c.current = nil
	c.done, c.seen = false, false
	c.peeked, c.pending, c.peekErr = false, nil, nil
	return true, nil
}
