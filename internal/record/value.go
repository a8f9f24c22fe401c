package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DataType is the declared type of a column.
type DataType uint8

const (
	TypeBoolean DataType = iota + 1
	TypeInteger
	TypeFloat
	TypeString
)

func (t DataType) String() string {
	switch t {
	case TypeBoolean:
		return "BOOLEAN"
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeString:
		return "STRING"
	default:
		return fmt.Sprintf("DataType(%d)", uint8(t))
	}
}

func (t DataType) MarshalText() ([]byte, error) {
	switch t {
	case TypeBoolean, TypeInteger, TypeFloat, TypeString:
		return []byte(t.String()), nil
	}
	return nil, errors.Errorf("record: unknown data type %d", uint8(t))
}

func (t *DataType) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "BOOLEAN":
		*t = TypeBoolean
	case "INTEGER":
		*t = TypeInteger
	case "FLOAT":
		*t = TypeFloat
	case "STRING":
		*t = TypeString
	default:
		return errors.Errorf("record: unknown data type %q", b)
	}
	return nil
}

// Value is a single SQL value. Null is a value of no type; every other value
// carries its type in Type and its payload in the matching field.
type Value struct {
	Null bool
	Type DataType
	B    bool
	I    int64
	F    float64
	S    string
}

func Null() Value { return Value{Null: true} }
func Bool(b bool) Value { return Value{Type: TypeBoolean, B: b} }
func Int(i int64) Value { return Value{Type: TypeInteger, I: i} }
func Float(f float64) Value { return Value{Type: TypeFloat, F: f} }
func String(s string) Value { return Value{Type: TypeString, S: s} }

// Row is an ordered sequence of values aligned with a table's columns.
type Row []Value

// Equal is structural equality. NaN equals NaN so that rows round-trip.
func (v Value) Equal(o Value) bool {
	if v.Null || o.Null {
		return v.Null == o.Null
	}
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeBoolean:
		return v.B == o.B
	case TypeInteger:
		return v.I == o.I
	case TypeFloat:
		return v.F == o.F || (math.IsNaN(v.F) && math.IsNaN(o.F))
	case TypeString:
		return v.S == o.S
	}
	return false
}

// Compare orders values: NULL first, then by type, then by payload.
func (v Value) Compare(o Value) int {
	switch {
	case v.Null && o.Null:
		return 0
	case v.Null:
		return -1
	case o.Null:
		return 1
	case v.Type != o.Type:
		return cmpOrdered(v.Type, o.Type)
	}
	switch v.Type {
	case TypeBoolean:
		switch {
		case v.B == o.B:
			return 0
		case !v.B:
			return -1
		default:
			return 1
		}
	case TypeInteger:
		return cmpOrdered(v.I, o.I)
	case TypeFloat:
		return cmpOrdered(v.F, o.F)
	case TypeString:
		return strings.Compare(v.S, o.S)
	}
	return 0
}

func cmpOrdered[T ~uint8 | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// String renders the value the way a SQL client would print it.
func (v Value) String() string {
	if v.Null {
		return "NULL"
	}
	switch v.Type {
	case TypeBoolean:
		if v.B {
			return "TRUE"
		}
		return "FALSE"
	case TypeInteger:
		return strconv.FormatInt(v.I, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case TypeString:
		return v.S
	}
	return "?"
}

// Raw returns the Go value held: nil, bool, int64, float64 or string.
func (v Value) Raw() any {
	if v.Null {
		return nil
	}
	switch v.Type {
	case TypeBoolean:
		return v.B
	case TypeInteger:
		return v.I
	case TypeFloat:
		return v.F
	case TypeString:
		return v.S
	}
	return nil
}

type jsonValue struct {
	Null  bool            `json:"null,omitempty"`
	Type  DataType        `json:"type,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON encodes a value as {"type": ..., "value": ...}, and NULL as
// {"null": true} so that a pointer to NULL survives a round trip.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Null {
		return []byte(`{"null":true}`), nil
	}
	if v.Type == TypeFloat && (math.IsNaN(v.F) || math.IsInf(v.F, 0)) {
		raw, _ := json.Marshal(strconv.FormatFloat(v.F, 'g', -1, 64))
		return json.Marshal(jsonValue{Type: v.Type, Value: raw})
	}
	raw, err := json.Marshal(v.Raw())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return json.Marshal(jsonValue{Type: v.Type, Value: raw})
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Null()
		return nil
	}
	var jv jsonValue
	if err := json.Unmarshal(b, &jv); err != nil {
		return errors.WithStack(err)
	}
	if jv.Null {
		*v = Null()
		return nil
	}

	var err error
	switch jv.Type {
	case TypeBoolean:
		var x bool
		err = json.Unmarshal(jv.Value, &x)
		*v = Bool(x)
	case TypeInteger:
		var x int64
		err = json.Unmarshal(jv.Value, &x)
		*v = Int(x)
	case TypeFloat:
		var x float64
		if err = json.Unmarshal(jv.Value, &x); err != nil {
			var s string
			if json.Unmarshal(jv.Value, &s) == nil {
				x, err = strconv.ParseFloat(s, 64)
			}
		}
		*v = Float(x)
	case TypeString:
		var x string
		err = json.Unmarshal(jv.Value, &x)
		*v = String(x)
	default:
		return errors.Errorf("record: value has unknown type %d", jv.Type)
	}
	return errors.WithStack(err)
}
