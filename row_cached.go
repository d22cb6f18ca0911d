package sqlsnap

import (
	"database/sql/driver"
	"io"
	"reflect"
	"time"

	"github.com/prashanthpai/sqlsnap/snapshot"
)

// rowsCached implements driver.Rows over a snapshot replay cursor.
type rowsCached struct {
	cur  *snapshot.Cursor
	cols []snapshot.Column
	buf  []snapshot.Value
}

var (
	_ driver.Rows                           = (*rowsCached)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*rowsCached)(nil)
	_ driver.RowsColumnTypeScanType         = (*rowsCached)(nil)
)

func newRowsCached(snap *snapshot.Snapshot) *rowsCached {
	cols := snap.Columns()
	return &rowsCached{
		cur:  snapshot.NewCursor(snap),
		cols: cols,
		buf:  make([]snapshot.Value, len(cols)),
	}
}

func (r *rowsCached) Columns() []string {
	names := make([]string, len(r.cols))
	for i, c := range r.cols {
		names[i] = c.Name
	}
	return names
}

func (r *rowsCached) Next(dest []driver.Value) error {
	ok, err := r.cur.Next()
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}

	if _, err := r.cur.Values(r.buf); err != nil {
		return err
	}
	for i := range dest {
		if i < len(r.buf) {
			dest[i] = r.buf[i].Driver()
		}
	}

	return nil
}

func (r *rowsCached) Close() error {
	return r.cur.Close()
}

func (r *rowsCached) ColumnTypeDatabaseTypeName(i int) string {
	return r.cols[i].DeclaredType
}

var scanTypes = map[snapshot.Kind]reflect.Type{
	snapshot.KindBool:    reflect.TypeOf(false),
	snapshot.KindInt:     reflect.TypeOf(int64(0)),
	snapshot.KindFloat:   reflect.TypeOf(float64(0)),
	snapshot.KindDecimal: reflect.TypeOf(""),
	snapshot.KindText:    reflect.TypeOf(""),
	snapshot.KindBinary:  reflect.TypeOf([]byte(nil)),
	snapshot.KindTime:    reflect.TypeOf(time.Time{}),
	snapshot.KindUUID:    reflect.TypeOf(""),
	snapshot.KindOther:   reflect.TypeOf(""),
}

// ColumnTypeScanType reports the Go type Next stores for column i.
func (r *rowsCached) ColumnTypeScanType(i int) reflect.Type {
	if t, ok := scanTypes[r.cols[i].Kind]; ok {
		return t
	}
	return reflect.TypeOf(new(any)).Elem()
}
