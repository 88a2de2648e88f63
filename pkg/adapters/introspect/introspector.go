// Package introspect resolves object properties for get_property nodes.
package introspect

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Introspector implements ports.Introspector over maps and structs.
// Struct properties are addressed by their mapstructure name; a property name
// matches that name, the json tag or the Go field name, ignoring case.
type Introspector struct {
	fields sync.Map // reflect.Type -> map[string]string (lowercase alias -> mapstructure key)
}

// New creates an Introspector.
func New() *Introspector {
	return &Introspector{}
}

// ResolvePropertyKey maps name to the key ReadProperty understands for obj.
func (in *Introspector) ResolvePropertyKey(obj any, name string) (string, bool) {
	rv := indirect(reflect.ValueOf(obj))
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return "", false
		}
		if rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())).IsValid() {
			return name, true
		}
		iter := rv.MapRange()
		for iter.Next() {
			if k := iter.Key().String(); strings.EqualFold(k, name) {
				return k, true
			}
		}
	case reflect.Struct:
		key, ok := in.aliases(rv.Type())[strings.ToLower(name)]
		return key, ok
	}
	return "", false
}

// ReadProperty reads a resolved key. Structs are decoded to a map first.
func (in *Introspector) ReadProperty(obj any, key string) (any, error) {
	rv := indirect(reflect.ValueOf(obj))
	switch rv.Kind() {
	case reflect.Map:
		v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		var m map[string]any
		if err := mapstructure.Decode(rv.Interface(), &m); err != nil {
			return nil, fmt.Errorf("reading %s of %s: %w", key, rv.Type(), err)
		}
		return m[key], nil
	}
	return nil, fmt.Errorf("cannot read property %s of %T", key, obj)
}

func (in *Introspector) aliases(t reflect.Type) map[string]string {
	if cached, ok := in.fields.Load(t); ok {
		return cached.(map[string]string)
	}

	out := make(map[string]string)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		key := f.Name
		if tag := tagName(f.Tag.Get("mapstructure")); tag != "" {
			if tag == "-" {
				continue
			}
			key = tag
		}
		out[strings.ToLower(f.Name)] = key
		out[strings.ToLower(key)] = key
		if tag := tagName(f.Tag.Get("json")); tag != "" && tag != "-" {
			out[strings.ToLower(tag)] = key
		}
	}
	in.fields.Store(t, out)
	return out
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}
