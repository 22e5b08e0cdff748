package textutil

import (
	"encoding/json"
	"math"
	"strconv"
)

// Stringify converts a decoded JSON value to the text a browser would show
// for it, and reports whether the value is truthy. Falsy values (nil, false,
// 0, NaN and "") yield an empty string.
func Stringify(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case bool:
		if !val {
			return "", false
		}
		return "true", true
	case float64:
		if val == 0 || math.IsNaN(val) {
			return "", false
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		if val == 0 {
			return "", false
		}
		return strconv.Itoa(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil && f == 0 {
			return "", false
		}
		return val.String(), true
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(data), true
	}
}
