package snapshot

import (
	"database/sql/driver"
	"errors"
	"io"
	"reflect"
)

type fakeRows struct {
	cols     []string
	dbTypes  []string
	scan     []reflect.Type
	data     [][]driver.Value
	pos      int
	closed   int
	nextErr  error // returned instead of the row at errAt
	errAt    int
	closeErr error
}

func (r *fakeRows) Columns() []string { return r.cols }

func (r *fakeRows) Close() error {
	r.closed++
	return r.closeErr
}

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.nextErr != nil && r.pos == r.errAt {
		return r.nextErr
	}
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}

func (r *fakeRows) ColumnTypeDatabaseTypeName(i int) string {
	if r.dbTypes == nil {
		return ""
	}
	return r.dbTypes[i]
}

func (r *fakeRows) ColumnTypeScanType(i int) reflect.Type {
	if r.scan == nil {
		return nil
	}
	return r.scan[i]
}

var errBoom = errors.New("boom")

func idNameRows() *fakeRows {
	return &fakeRows{
		cols:    []string{"id", "name"},
		dbTypes: []string{"INTEGER", "TEXT"},
		scan:    []reflect.Type{reflect.TypeOf(int64(0)), reflect.TypeOf("")},
		data: [][]driver.Value{
			{int64(1), "a"},
			{int64(2), nil},
		},
	}
}
