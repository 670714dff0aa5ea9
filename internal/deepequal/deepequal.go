// Package deepequal implements structural equality over nested plain-data
// values. It is used to suppress redundant playlist publishes and view
// updates. Playlist data is tree shaped by construction, so there is no
// cycle detection.
package deepequal

import (
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// Equal reports structural equality of a and b. Containers must agree on
// array-ness: a map never equals a slice, even when both are empty.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return equalValue(reflect.ValueOf(a), reflect.ValueOf(b))
}

func equalValue(a, b reflect.Value) bool {
	a, aok := indirect(a)
	b, bok := indirect(b)
	if !aok || !bok {
		return aok == bok
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch a.Kind() {
	case reflect.Slice, reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !equalValue(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true

	case reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		for _, key := range a.MapKeys() {
			bv := b.MapIndex(key)
			if !bv.IsValid() {
				return false
			}
			if !equalValue(a.MapIndex(key), bv) {
				return false
			}
		}
		return true

	case reflect.Struct:
		if a.Type() != b.Type() {
			return false
		}
		// time.Time carries only unexported fields; compare by instant
		if a.Type() == timeType {
			return a.Interface().(time.Time).Equal(b.Interface().(time.Time))
		}
		for i := 0; i < a.NumField(); i++ {
			if a.Type().Field(i).PkgPath != "" {
				continue // unexported
			}
			if !equalValue(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true

	case reflect.String:
		return a.String() == b.String()
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() == b.Float()
	default:
		return a.Type() == b.Type() && a.Type().Comparable() &&
			a.Interface() == b.Interface()
	}
}

// indirect unwraps interfaces and pointers. The second result is false when
// the chain ends in nil.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return v, false
	}
	return v, true
}
