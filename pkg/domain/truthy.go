package domain

import "strings"

// Truthy coerces a value to a boolean.
// Booleans pass through, strings are true only when they equal "true" ignoring case
// (surrounding whitespace makes them false), and every other value (including nil) is false.
func Truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true")
	default:
		return false
	}
}
