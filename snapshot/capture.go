package snapshot

import (
	"errors"
	"fmt"
)

// Capture drains r once, in order, into a new Snapshot identified by
// tableID. r is closed on every return path; a close failure fails the
// capture. Errors from r are returned wrapped but otherwise uninterpreted.
func Capture(r Reader, tableID string) (snap *Snapshot, err error) {
	defer func() {
		if cerr := r.Close(); cerr != nil {
			snap = nil
			err = errors.Join(err, fmt.Errorf("close reader: %w", cerr))
		}
	}()

	n := r.FieldCount()
	columns := make([]Column, n)
	for i := range columns {
		name, err := r.Name(i)
		if err != nil {
			return nil, fmt.Errorf("column %d name: %w", i, err)
		}
		declared, err := r.DataTypeName(i)
		if err != nil {
			return nil, fmt.Errorf("column %d type name: %w", i, err)
		}
		kind, err := r.FieldType(i)
		if err != nil {
			return nil, fmt.Errorf("column %d type: %w", i, err)
		}
		columns[i] = Column{Name: name, DeclaredType: declared, Ordinal: i, Kind: kind}
	}

	var (
		rows   [][]Value
		depths []int
	)
	for {
		ok, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows), err)
		}
		if !ok {
			break
		}

		values := make([]Value, n)
		if _, err := r.Values(values); err != nil {
			return nil, fmt.Errorf("copy row %d: %w", len(rows), err)
		}
		for i, v := range values {
			if columns[i].Kind == KindOther && !v.IsNull() {
				columns[i].Kind = v.kind
			}
		}
		rows = append(rows, values)
		depths = append(depths, r.Depth())
	}

	snap, err = New(tableID, columns, rows)
	if err != nil {
		return nil, err
	}
	for i, d := range depths {
		snap.rows[i].depth = d
	}
	return snap, nil
}
