package snapshot

import (
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reader is the forward-only result cursor contract shared by live driver
// results (DriverCursor) and replayed snapshots (Cursor). Ordinals are zero
// based. A Reader is owned by a single goroutine.
type Reader interface {
	// Next advances to the next row and reports whether one is available.
	// Once Next returns false it keeps returning false.
	Next() (bool, error)
	// Close releases the reader. It is idempotent.
	Close() error
	// HasRows reports whether the result set holds at least one row,
	// independent of the current position.
	HasRows() bool
	// Depth is the nesting depth of the current row, 0 when there is none.
	Depth() int

	FieldCount() int
	Name(i int) (string, error)
	Ordinal(name string) (int, error)
	FieldType(i int) (Kind, error)
	DataTypeName(i int) (string, error)

	Value(i int) (Value, error)
	IsNull(i int) (bool, error)
	Bool(i int) (bool, error)
	Int64(i int) (int64, error)
	Float64(i int) (float64, error)
	Text(i int) (string, error)
	Bytes(i int) ([]byte, error)
	Time(i int) (time.Time, error)
	Decimal(i int) (decimal.Decimal, error)
	UUID(i int) (uuid.UUID, error)
	// Values copies the current row into dst and returns FieldCount.
	Values(dst []Value) (int, error)

	SchemaTable() (*Snapshot, error)
	NextResultSet() (bool, error)
	Iterator() (iter.Seq[[]Value], error)
	BytesAt(i int, offset int64, buf []byte) (int, error)
	CharsAt(i int, offset int64, buf []rune) (int, error)
}
