package cachekey

import (
	"database/sql"
	"database/sql/driver"
	"reflect"
	"strconv"

	"github.com/prashanthpai/sqlsnap/snapshot"
)

// Direction is the binding direction of a parameter.
type Direction uint8

const (
	Input Direction = iota
	Output
	InputOutput
	ReturnValue
)

// String returns the direction name used in key material.
func (d Direction) String() string {
	switch d {
	case Input:
		return "Input"
	case Output:
		return "Output"
	case InputOutput:
		return "InputOutput"
	case ReturnValue:
		return "ReturnValue"
	default:
		return "Direction(" + strconv.Itoa(int(d)) + ")"
	}
}

// Param is one bound query parameter as it contributes to key material.
type Param struct {
	Name      string
	Value     snapshot.Value
	Size      int
	Precision uint8
	Scale     uint8
	Direction Direction
}

// ParamsFromNamed converts driver arguments, in binding order. Unnamed
// arguments are named after their ordinal ("$1"). sql.Out arguments use the
// current value behind their destination pointer.
func ParamsFromNamed(args []driver.NamedValue) []Param {
	params := make([]Param, len(args))
	for i, arg := range args {
		name := arg.Name
		if name == "" {
			name = "$" + strconv.Itoa(arg.Ordinal)
		}

		dir := Input
		v := arg.Value
		if out, ok := v.(sql.Out); ok {
			dir = Output
			if out.In {
				dir = InputOutput
			}
			v = deref(out.Dest)
		}

		value := snapshot.FromDriver(v)
		precision, scale := value.DecimalParts()
		params[i] = Param{
			Name:      name,
			Value:     value,
			Size:      value.Len(),
			Precision: clampUint8(precision),
			Scale:     clampUint8(scale),
			Direction: dir,
		}
	}
	return params
}

func deref(dest any) any {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return dest
	}
	return rv.Elem().Interface()
}

func clampUint8(n int) uint8 {
	if n > 255 {
		return 255
	}
	return uint8(n)
}
