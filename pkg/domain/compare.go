package domain

import (
	"reflect"
	"strings"
)

// MatchesFilter reports whether every filter entry equals the object's property.
// A nil filter matches everything.
func MatchesFilter(object, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := object[k]
		if !ok || !LooselyEqual(got, want) {
			return false
		}
	}
	return true
}

// LooselyEqual compares two values, treating numbers of any Go type by value.
func LooselyEqual(a, b any) bool {
	if fa, ok := Number(a); ok {
		if fb, ok := Number(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

// Number converts any integer or float value to float64.
func Number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// Compare orders a against b. Numbers compare by value and strings lexically.
// The boolean is false when the operands have no common ordering.
func Compare(a, b any) (int, bool) {
	if fa, ok := Number(a); ok {
		if fb, ok := Number(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}
