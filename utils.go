package hexite

import (
	"encoding/json"
	"reflect"
)

func to_int64(x interface{}) (int64, bool) {
	switch t := x.(type) {
	case bool:
		if t {
			return 1, true
		} else {
			return 0, true
		}
	case int:
		return int64(t), true
	case uint8:
		return int64(t), true
	case int8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case int16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case int32:
		return int64(t), true
	case uint64:
		return int64(t), true
	case int64:
		return t, true
	case float32:
		return int64(t), true
	case float64:
		return int64(t), true
	case json.Number:
		result, err := t.Int64()
		if err != nil {
			f, err := t.Float64()
			return int64(f), err == nil
		}
		return result, true

	default:
		return 0, false
	}
}

func to_float64(x interface{}) (float64, bool) {
	switch t := x.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case bool:
		// govaluate compares booleans natively.
		return 0, false
	}

	i, ok := to_int64(x)
	if ok {
		return float64(i), true
	}
	return 0, false
}

// Round size up to the next multiple of align.
func alignUp(size, align int64) int64 {
	if align <= 1 {
		return size
	}
	return (size + align - 1) / align * align
}

// We need to do this stupid check because Go does not allow
// comparison to nil with interfaces.
func IsNil(v interface{}) bool {
	return v == nil || (reflect.ValueOf(v).Kind() == reflect.Ptr &&
		reflect.ValueOf(v).IsNil())
}
