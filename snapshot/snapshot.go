// Package snapshot captures SQL result sets into immutable snapshots and
// replays them through the same forward-only cursor contract a live driver
// result satisfies.
package snapshot

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v4"
)

// Column describes one field of a captured result set.
type Column struct {
	Name         string
	DeclaredType string
	Ordinal      int
	Kind         Kind
}

type row struct {
	values []Value
	depth  int
}

// Snapshot is an immutable, fully materialized copy of one result set. A
// Snapshot may be shared by any number of concurrent Cursors.
type Snapshot struct {
	tableID string
	columns []Column
	index   map[string]int
	rows    []row
}

// New builds a Snapshot from column metadata and positional rows. Column
// ordinals are assigned by position, names must be unique and every row
// must have exactly one value per column. A nil row is an empty row. Row
// slices are owned by the returned Snapshot and must not be modified
// afterwards.
func New(tableID string, columns []Column, rows [][]Value) (*Snapshot, error) {
	s := &Snapshot{
		tableID: tableID,
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
		rows:    make([]row, len(rows)),
	}

	for i, c := range columns {
		if _, dup := s.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q: %w", c.Name, ErrInvalidSnapshot)
		}
		c.Ordinal = i
		s.columns[i] = c
		s.index[c.Name] = i
	}

	for i, values := range rows {
		if len(values) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d: %w",
				i, len(values), len(columns), ErrInvalidSnapshot)
		}
		if values == nil {
			values = []Value{}
		}
		s.rows[i] = row{values: values}
	}

	return s, nil
}

// TableID returns the opaque identifier correlating s to the query that
// produced it.
func (s *Snapshot) TableID() string { return s.tableID }

// Columns returns a copy of the column metadata.
func (s *Snapshot) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

// RowCount returns the number of captured rows.
func (s *Snapshot) RowCount() int { return len(s.rows) }

// Row returns a copy of the values of row i.
func (s *Snapshot) Row(i int) ([]Value, error) {
	if i < 0 || i >= len(s.rows) {
		return nil, fmt.Errorf("row %d of %d: %w", i, len(s.rows), ErrOrdinalOutOfRange)
	}
	out := make([]Value, len(s.rows[i].values))
	for j, v := range s.rows[i].values {
		out[j] = v.clone()
	}
	return out, nil
}

type wireColumn struct {
	Name         string `msgpack:"n"`
	DeclaredType string `msgpack:"t"`
	Kind         Kind   `msgpack:"k"`
}

type wireRow struct {
	Values []Value `msgpack:"v"`
	Depth  int     `msgpack:"d,omitempty"`
}

type wireSnapshot struct {
	TableID string       `msgpack:"id"`
	Columns []wireColumn `msgpack:"c"`
	Rows    []wireRow    `msgpack:"r"`
}

var (
	_ msgpack.CustomEncoder = (*Snapshot)(nil)
	_ msgpack.CustomDecoder = (*Snapshot)(nil)
)

// EncodeMsgpack implements msgpack.CustomEncoder.
func (s *Snapshot) EncodeMsgpack(enc *msgpack.Encoder) error {
	w := wireSnapshot{
		TableID: s.tableID,
		Columns: make([]wireColumn, len(s.columns)),
		Rows:    make([]wireRow, len(s.rows)),
	}
	for i, c := range s.columns {
		w.Columns[i] = wireColumn{Name: c.Name, DeclaredType: c.DeclaredType, Kind: c.Kind}
	}
	for i, r := range s.rows {
		w.Rows[i] = wireRow{Values: r.values, Depth: r.depth}
	}
	return enc.Encode(&w)
}

// DecodeMsgpack implements msgpack.CustomDecoder. The decoded snapshot is
// validated the same way New validates its input.
func (s *Snapshot) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w wireSnapshot
	if err := dec.Decode(&w); err != nil {
		return err
	}

	columns := make([]Column, len(w.Columns))
	for i, c := range w.Columns {
		columns[i] = Column{Name: c.Name, DeclaredType: c.DeclaredType, Ordinal: i, Kind: c.Kind}
	}
	rows := make([][]Value, len(w.Rows))
	for i, r := range w.Rows {
		rows[i] = r.Values
	}

	decoded, err := New(w.TableID, columns, rows)
	if err != nil {
		return err
	}
	for i, r := range w.Rows {
		decoded.rows[i].depth = r.Depth
	}
	*s = *decoded
	return nil
}
