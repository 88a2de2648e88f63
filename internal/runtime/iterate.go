package runtime

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/aretw0/tendril/pkg/domain"
)

// elements flattens a collection into its elements in iteration order.
// Slices and arrays keep their order; maps are visited by sorted key.
// An absent collection has no elements.
func elements(coll any) ([]any, error) {
	if coll == nil {
		return nil, nil
	}
	if items, ok := coll.([]any); ok {
		return items, nil
	}

	rv := reflect.ValueOf(coll)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = rv.MapIndex(k).Interface()
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T", domain.ErrNotIterable, coll)
}
