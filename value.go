package mysql

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ValueKind tags the variant carried by a Value, per spec section 3:
// null | int(i64) | uint(u64) | float(f64) | string(text) |
// bytes(binary) | temporal(date/time/datetime). decimal is an
// additive variant (see SPEC_FULL.md) for DECIMAL/NEWDECIMAL columns.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindTemporal
	KindDecimal
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindTemporal:
		return "temporal"
	case KindDecimal:
		return "decimal"
	default:
		return "unknown"
	}
}

// Value is one cell of a Row: a tagged variant carrying exactly one
// of its fields, selected by Kind.
type Value struct {
	Kind     ValueKind
	intVal   int64
	uintVal  uint64
	floatVal float64
	strVal   string
	bytesVal []byte
	timeVal  Temporal
	decVal   decimal.Decimal
}

func NullValue() Value                { return Value{Kind: KindNull} }
func IntValue(v int64) Value          { return Value{Kind: KindInt, intVal: v} }
func UintValue(v uint64) Value        { return Value{Kind: KindUint, uintVal: v} }
func FloatValue(v float64) Value      { return Value{Kind: KindFloat, floatVal: v} }
func StringValue(v string) Value      { return Value{Kind: KindString, strVal: v} }
func BytesValue(v []byte) Value       { return Value{Kind: KindBytes, bytesVal: v} }
func TemporalValue(v Temporal) Value  { return Value{Kind: KindTemporal, timeVal: v} }
func DecimalValue(v decimal.Decimal) Value { return Value{Kind: KindDecimal, decVal: v} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders any variant as text, the way the text protocol would
// have sent it, used both by Scan targets and by debugging/logging.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindInt:
		return strconv.FormatInt(v.intVal, 10)
	case KindUint:
		return strconv.FormatUint(v.uintVal, 10)
	case KindFloat:
		return strconv.FormatFloat(v.floatVal, 'g', -1, 64)
	case KindString:
		return v.strVal
	case KindBytes:
		return string(v.bytesVal)
	case KindTemporal:
		return v.timeVal.String()
	case KindDecimal:
		return v.decVal.String()
	default:
		return ""
	}
}

func (v Value) Bytes() []byte {
	if v.Kind == KindBytes {
		return v.bytesVal
	}
	return []byte(v.String())
}

func (v Value) Decimal() (decimal.Decimal, bool) {
	if v.Kind == KindDecimal {
		return v.decVal, true
	}
	return decimal.Decimal{}, false
}

func (v Value) Temporal() (Temporal, bool) {
	if v.Kind == KindTemporal {
		return v.timeVal, true
	}
	return Temporal{}, false
}

func (v Value) Time() time.Time {
	if v.Kind == KindTemporal {
		return v.timeVal.Time
	}
	return time.Time{}
}

// Int64 widens/narrows v to an int64 per spec section 6: "integer ->
// integer if representable, else InvalidTypeBound"; "string ->
// integer by strict parse"; NULL is handled by the caller (a nullable
// target accepts it, a non-nullable one should reject it before
// calling Int64).
func (v Value) Int64() (int64, error) {
	switch v.Kind {
	case KindInt:
		return v.intVal, nil
	case KindUint:
		if v.uintVal > 1<<63-1 {
			return 0, invalidTypeBoundErr("uint", "int")
		}
		return int64(v.uintVal), nil
	case KindString:
		n, err := strconv.ParseInt(v.strVal, 10, 64)
		if err != nil {
			return 0, invalidTypeBoundErr("string", "int")
		}
		return n, nil
	case KindBytes:
		n, err := strconv.ParseInt(string(v.bytesVal), 10, 64)
		if err != nil {
			return 0, invalidTypeBoundErr("bytes", "int")
		}
		return n, nil
	default:
		return 0, invalidTypeBoundErr(v.Kind.String(), "int")
	}
}

// Uint64 is Int64's unsigned counterpart.
func (v Value) Uint64() (uint64, error) {
	switch v.Kind {
	case KindUint:
		return v.uintVal, nil
	case KindInt:
		if v.intVal < 0 {
			return 0, invalidTypeBoundErr("int", "uint")
		}
		return uint64(v.intVal), nil
	case KindString:
		n, err := strconv.ParseUint(v.strVal, 10, 64)
		if err != nil {
			return 0, invalidTypeBoundErr("string", "uint")
		}
		return n, nil
	case KindBytes:
		n, err := strconv.ParseUint(string(v.bytesVal), 10, 64)
		if err != nil {
			return 0, invalidTypeBoundErr("bytes", "uint")
		}
		return n, nil
	default:
		return 0, invalidTypeBoundErr(v.Kind.String(), "uint")
	}
}

func (v Value) Float64() (float64, error) {
	switch v.Kind {
	case KindFloat:
		return v.floatVal, nil
	case KindInt:
		return float64(v.intVal), nil
	case KindUint:
		return float64(v.uintVal), nil
	case KindString:
		f, err := strconv.ParseFloat(v.strVal, 64)
		if err != nil {
			return 0, invalidTypeBoundErr("string", "float")
		}
		return f, nil
	default:
		return 0, invalidTypeBoundErr(v.Kind.String(), "float")
	}
}

// Row is an ordered sequence of column values (spec section 3) with a
// name-indexed view for the caller-visible representation from spec
// section 6 ("a mapping from column name to tagged value; duplicate
// column names resolve to the first").
type Row struct {
	columns []Column
	values  []Value
	index   map[string]int
}

func newRow(columns []Column, values []Value) Row {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, exists := idx[c.Name]; !exists {
			idx[c.Name] = i
		}
	}
	return Row{columns: columns, values: values, index: idx}
}

// Get returns the value of the named column and whether it exists.
func (r Row) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return Value{}, false
	}
	return r.values[i], true
}

// At returns the value at ordinal position i.
func (r Row) At(i int) Value { return r.values[i] }

func (r Row) Len() int { return len(r.values) }

// Columns returns the ordered column metadata for this row's result
// set.
func (r Row) Columns() []Column { return r.columns }

// Map materializes the full name->value mapping described in spec
// section 6.
func (r Row) Map() map[string]Value {
	m := make(map[string]Value, len(r.index))
	for name, i := range r.index {
		m[name] = r.values[i]
	}
	return m
}
