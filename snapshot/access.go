package snapshot

import (
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// rowAccess implements the schema and typed column accessors of Reader on
// top of column metadata and the current row.
type rowAccess struct {
	columns []Column
	index   map[string]int
	current []Value // nil when not positioned on a row
	depth   int
	closed  bool
}

func newIndex(columns []Column) map[string]int {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c.Name]; !dup {
			index[c.Name] = i
		}
	}
	return index
}

func (a *rowAccess) FieldCount() int { return len(a.columns) }

func (a *rowAccess) Depth() int {
	if a.current == nil {
		return 0
	}
	return a.depth
}

func (a *rowAccess) column(i int) (Column, error) {
	if a.closed {
		return Column{}, ErrClosed
	}
	if i < 0 || i >= len(a.columns) {
		return Column{}, fmt.Errorf("ordinal %d of %d fields: %w", i, len(a.columns), ErrOrdinalOutOfRange)
	}
	return a.columns[i], nil
}

func (a *rowAccess) Name(i int) (string, error) {
	c, err := a.column(i)
	return c.Name, err
}

// Ordinal looks name up case-sensitively.
func (a *rowAccess) Ordinal(name string) (int, error) {
	if a.closed {
		return 0, ErrClosed
	}
	i, ok := a.index[name]
	if !ok {
		return 0, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
	}
	return i, nil
}

func (a *rowAccess) FieldType(i int) (Kind, error) {
	c, err := a.column(i)
	return c.Kind, err
}

func (a *rowAccess) DataTypeName(i int) (string, error) {
	c, err := a.column(i)
	return c.DeclaredType, err
}

func (a *rowAccess) Value(i int) (Value, error) {
	if _, err := a.column(i); err != nil {
		return Value{}, err
	}
	if a.current == nil {
		return Value{}, ErrNoCurrentRow
	}
	return a.current[i].clone(), nil
}

func (a *rowAccess) typed(i int, want Kind) (Value, error) {
	v, err := a.Value(i)
	if err != nil {
		return Value{}, err
	}
	if v.kind != want {
		return Value{}, fmt.Errorf("column %q holds %s, read as %s: %w",
			a.columns[i].Name, v.kind, want, ErrTypeMismatch)
	}
	return v, nil
}

func (a *rowAccess) IsNull(i int) (bool, error) {
	v, err := a.Value(i)
	return v.IsNull(), err
}

func (a *rowAccess) Bool(i int) (bool, error) {
	v, err := a.typed(i, KindBool)
	return v.b, err
}

func (a *rowAccess) Int64(i int) (int64, error) {
	v, err := a.typed(i, KindInt)
	return v.i, err
}

func (a *rowAccess) Float64(i int) (float64, error) {
	v, err := a.typed(i, KindFloat)
	return v.f, err
}

func (a *rowAccess) Text(i int) (string, error) {
	v, err := a.typed(i, KindText)
	return v.s, err
}

func (a *rowAccess) Bytes(i int) ([]byte, error) {
	v, err := a.typed(i, KindBinary)
	return v.raw, err
}

func (a *rowAccess) Time(i int) (time.Time, error) {
	v, err := a.typed(i, KindTime)
	return v.t, err
}

func (a *rowAccess) Decimal(i int) (decimal.Decimal, error) {
	v, err := a.typed(i, KindDecimal)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return v.decimal(), nil
}

func (a *rowAccess) UUID(i int) (uuid.UUID, error) {
	v, err := a.typed(i, KindUUID)
	if err != nil {
		return uuid.UUID{}, err
	}
	return v.uuid(), nil
}

func (a *rowAccess) Values(dst []Value) (int, error) {
	if a.closed {
		return 0, ErrClosed
	}
	if a.current == nil {
		return 0, ErrNoCurrentRow
	}
	if len(dst) < len(a.columns) {
		return 0, fmt.Errorf("buffer holds %d values, row has %d: %w", len(dst), len(a.columns), ErrBufferTooSmall)
	}
	for i, v := range a.current {
		dst[i] = v.clone()
	}
	return len(a.current), nil
}

func (a *rowAccess) SchemaTable() (*Snapshot, error) {
	return nil, fmt.Errorf("schema table: %w", ErrNotSupported)
}

func (a *rowAccess) Iterator() (iter.Seq[[]Value], error) {
	return nil, fmt.Errorf("iterator: %w", ErrNotSupported)
}

func (a *rowAccess) BytesAt(int, int64, []byte) (int, error) {
	return 0, fmt.Errorf("ranged byte read: %w", ErrNotSupported)
}

func (a *rowAccess) CharsAt(int, int64, []rune) (int, error) {
	return 0, fmt.Errorf("ranged char read: %w", ErrNotSupported)
}
