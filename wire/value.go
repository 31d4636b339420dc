package wire

import (
	"fmt"
	"math"
)

// Map is a string-keyed mapping of dynamically-typed values. It is the shape
// of envelopes, sub-fields, call inputs and call results.
type Map = map[string]any

// Kind identifies which variant of the value tree a Go value represents.
type Kind int

const (
	// KindInvalid is reported for Go values that cannot appear in a payload.
	KindInvalid Kind = iota
	// KindNull is nil.
	KindNull
	// KindBool is a boolean.
	KindBool
	// KindNumber is any integer or floating point number.
	KindNumber
	// KindString is a UTF-8 string.
	KindString
	// KindSequence is an ordered list of values.
	KindSequence
	// KindMapping is a string-keyed mapping of values.
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "invalid"
	}
}

// KindOf classifies v.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindSequence
	case map[string]any:
		return KindMapping
	default:
		return KindInvalid
	}
}

// ConversionError reports that a value did not have the kind a caller needed.
type ConversionError struct {
	Want Kind
	Got  Kind
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s to %s", e.Got, e.Want)
}

// AsMap returns v as a Map.
func AsMap(v any) (Map, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ConversionError{Want: KindMapping, Got: KindOf(v)}
	}
	return m, nil
}

// AsSlice returns v as a sequence.
func AsSlice(v any) ([]any, error) {
	s, ok := v.([]any)
	if !ok {
		return nil, &ConversionError{Want: KindSequence, Got: KindOf(v)}
	}
	return s, nil
}

// AsString returns v as a string.
func AsString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &ConversionError{Want: KindString, Got: KindOf(v)}
	}
	return s, nil
}

// AsBool returns v as a bool.
func AsBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, &ConversionError{Want: KindBool, Got: KindOf(v)}
	}
	return b, nil
}

// AsFloat64 returns any numeric v as a float64.
func AsFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, &ConversionError{Want: KindNumber, Got: KindOf(v)}
}

// AsInt64 returns v as an int64. Floats are accepted only when they hold an
// integral value, and unsigned values only when they fit.
func AsInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), nil
		}
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), nil
		}
	case float32:
		return integralFloat(float64(n))
	case float64:
		return integralFloat(n)
	}
	return 0, &ConversionError{Want: KindNumber, Got: KindOf(v)}
}

func integralFloat(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("number %v is not a representable integer", f)
	}
	return int64(f), nil
}

// MapOrEmpty returns v as a Map, or a new empty Map when v is absent or of
// any other kind.
func MapOrEmpty(v any) Map {
	m, err := AsMap(v)
	if err != nil || m == nil {
		return Map{}
	}
	return m
}

// Clone deep-copies mappings and sequences inside v. Scalars are returned
// as-is.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// CloneMap deep-copies m. A nil map clones to an empty, non-nil Map.
func CloneMap(m Map) Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}
