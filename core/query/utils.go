// Package query provides a set of utility functions to support the filter
// builder and the statement compiler. These helpers handle common tasks such as
// numeric coercion of loosely typed qualifier values and pointer creation.
package query

import (
	"encoding/json"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// IntPtr is a helper function that returns a pointer to an int.
func IntPtr(i int) *int {
	return &i
}

// ToFloat64 is a utility function that converts a value of various numeric types
// to a float64. It returns the converted float64 and a boolean indicating whether
// the conversion was successful. Numeric strings are accepted.
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	// Named numeric types such as SortDirection.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// ToInt converts v to an int when it holds a whole number, as produced by JSON
// decoding (float64), YAML decoding (int) or a command line flag (string).
func ToInt(v any) (int, bool) {
	f, ok := ToFloat64(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f >= math.MaxInt || f < math.MinInt {
		return 0, false
	}
	return int(f), true
}

// truthy interprets qualifier flags such as count$ and all$.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		return err == nil && b
	}
	if f, ok := ToFloat64(v); ok {
		return f != 0
	}
	return true
}

var plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdentifier returns name as is when it is a plain identifier and wrapped
// in backticks otherwise, so labels, types and property names can never break
// out of their position in the statement text.
func quoteIdentifier(name string) string {
	if plainIdentifier.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

var unsafePlaceholderChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

func sanitizePlaceholder(field string) string {
	return unsafePlaceholderChars.ReplaceAllString(field, "_")
}
