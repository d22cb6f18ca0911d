package snapshot

import (
	"bytes"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v4"
)

// Kind is the closed set of value variants a snapshot can hold.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindText
	KindBinary
	KindTime
	KindUUID
	KindOther
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBool:    "bool",
	KindInt:     "int",
	KindFloat:   "float",
	KindDecimal: "decimal",
	KindText:    "text",
	KindBinary:  "binary",
	KindTime:    "time",
	KindUUID:    "uuid",
	KindOther:   "other",
}

// String returns the lower case name of k.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a single typed cell. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string // text, decimal and other
	raw  []byte // binary and uuid
	t    time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Time returns a time value. The location of t is kept.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Decimal returns an exact decimal value held by its canonical text.
func Decimal(d decimal.Decimal) Value {
	return Value{kind: KindDecimal, s: d.String()}
}

// Binary returns a binary value holding a copy of b.
func Binary(b []byte) Value {
	return Value{kind: KindBinary, raw: append([]byte{}, b...)}
}

// UUID returns a uuid value.
func UUID(u uuid.UUID) Value {
	return Value{kind: KindUUID, raw: append([]byte{}, u[:]...)}
}

// Other holds a value of a type outside the closed set by its canonical text.
func Other(s string) Value { return Value{kind: KindOther, s: s} }

// FromDriver converts a driver or Go value into a Value. Byte slices are
// copied since driver buffers may be reused after the next row is read.
func FromDriver(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x.clone()
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return fromUint(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return Text(x)
	case []byte:
		if x == nil {
			return Null()
		}
		return Binary(x)
	case time.Time:
		return Time(x)
	case decimal.Decimal:
		return Decimal(x)
	case *decimal.Decimal:
		if x == nil {
			return Null()
		}
		return Decimal(*x)
	case decimal.NullDecimal:
		if !x.Valid {
			return Null()
		}
		return Decimal(x.Decimal)
	case uuid.UUID:
		return UUID(x)
	case uuid.NullUUID:
		if !x.Valid {
			return Null()
		}
		return UUID(x.UUID)
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return Other(fmt.Sprint(x))
		}
		return FromDriver(dv)
	case fmt.Stringer:
		return Other(x.String())
	default:
		return Other(fmt.Sprint(x))
	}
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Value{kind: KindDecimal, s: strconv.FormatUint(u, 10)}
	}
	return Int(int64(u))
}

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Interface returns the native Go representation of v.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal:
		return v.decimal()
	case KindText, KindOther:
		return v.s
	case KindBinary:
		return append([]byte{}, v.raw...)
	case KindTime:
		return v.t
	case KindUUID:
		return v.uuid()
	default:
		return nil
	}
}

// Driver returns v as one of the types database/sql accepts from a driver.
// Decimal, uuid and other values travel as text and are parsed by the
// destination's Scanner.
func (v Value) Driver() driver.Value {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal, KindText, KindOther:
		return v.s
	case KindBinary:
		return append([]byte{}, v.raw...)
	case KindTime:
		return v.t
	case KindUUID:
		return v.uuid().String()
	default:
		return nil
	}
}

// String renders v the way cache key material expects: null as "null",
// binary as uppercase hex, everything else in its canonical text form.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDecimal, KindText, KindOther:
		return v.s
	case KindBinary:
		return strings.ToUpper(hex.EncodeToString(v.raw))
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	case KindUUID:
		return v.uuid().String()
	default:
		return v.kind.String()
	}
}

// Equal reports whether v and o hold the same kind and value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindDecimal:
		return v.decimal().Equal(o.decimal())
	case KindText, KindOther:
		return v.s == o.s
	case KindBinary, KindUUID:
		return bytes.Equal(v.raw, o.raw)
	case KindTime:
		return v.t.Equal(o.t)
	}
	return false
}

// Len is the byte length of text and binary values and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindText:
		return len(v.s)
	case KindBinary:
		return len(v.raw)
	}
	return 0
}

// DecimalParts returns the number of significant digits and the digits
// after the decimal point of a decimal value.
func (v Value) DecimalParts() (precision, scale int) {
	if v.kind != KindDecimal {
		return 0, 0
	}
	d := v.decimal()
	if exp := d.Exponent(); exp < 0 {
		scale = int(-exp)
	}
	precision = len(d.Coefficient().Text(10))
	if d.Coefficient().Sign() < 0 {
		precision--
	}
	if precision < scale {
		precision = scale
	}
	return precision, scale
}

func (v Value) decimal() decimal.Decimal {
	d, err := decimal.NewFromString(v.s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (v Value) uuid() uuid.UUID {
	var u uuid.UUID
	copy(u[:], v.raw)
	return u
}

func (v Value) clone() Value {
	if v.raw != nil {
		v.raw = append([]byte{}, v.raw...)
	}
	return v
}

var (
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
)

// EncodeMsgpack writes v as a two element array of kind and payload.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(v.kind)); err != nil {
		return err
	}
	switch v.kind {
	case KindNull:
		return enc.EncodeNil()
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindInt:
		return enc.EncodeInt(v.i)
	case KindFloat:
		return enc.EncodeFloat64(v.f)
	case KindDecimal, KindText, KindOther:
		return enc.EncodeString(v.s)
	case KindBinary, KindUUID:
		return enc.EncodeBytes(v.raw)
	case KindTime:
		// MarshalBinary keeps the zone offset, msgpack's time extension does not.
		b, err := v.t.MarshalBinary()
		if err != nil {
			return err
		}
		return enc.EncodeBytes(b)
	default:
		return fmt.Errorf("snapshot: cannot encode value of %s", v.kind)
	}
}

// DecodeMsgpack reads a value written by EncodeMsgpack.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("snapshot: value array has %d elements: %w", n, ErrInvalidSnapshot)
	}
	k, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	out := Value{kind: Kind(k)}
	switch out.kind {
	case KindNull:
		err = dec.DecodeNil()
	case KindBool:
		out.b, err = dec.DecodeBool()
	case KindInt:
		out.i, err = dec.DecodeInt64()
	case KindFloat:
		out.f, err = dec.DecodeFloat64()
	case KindDecimal, KindText, KindOther:
		out.s, err = dec.DecodeString()
	case KindBinary, KindUUID:
		out.raw, err = dec.DecodeBytes()
		if out.raw == nil {
			out.raw = []byte{}
		}
	case KindTime:
		var b []byte
		if b, err = dec.DecodeBytes(); err == nil {
			err = out.t.UnmarshalBinary(b)
		}
	default:
		return fmt.Errorf("snapshot: unknown value kind %d: %w", k, ErrInvalidSnapshot)
	}
	if err != nil {
		return err
	}
	*v = out
	return nil
}
