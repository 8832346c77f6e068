// Package ident compares values by identity rather than by content.
package ident

import "reflect"

// Identical reports whether a and b are the same value. Maps, pointers,
// functions and channels compare by address, slices by address and length.
// Structs, arrays and interfaces compare element by element under the same
// rules, scalars by value. Values of different dynamic types are never
// identical.
func Identical(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return identical(reflect.ValueOf(a), reflect.ValueOf(b))
}

func identical(va, vb reflect.Value) bool {
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Ptr, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Interface:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		return identical(va.Elem(), vb.Elem())
	case reflect.Struct:
		for i, n := 0, va.NumField(); i < n; i++ {
			if !identical(va.Field(i), vb.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i, n := 0, va.Len(); i < n; i++ {
			if !identical(va.Index(i), vb.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Bool:
		return va.Bool() == vb.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return va.Int() == vb.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return va.Uint() == vb.Uint()
	case reflect.Float32, reflect.Float64:
		return va.Float() == vb.Float()
	case reflect.Complex64, reflect.Complex128:
		return va.Complex() == vb.Complex()
	case reflect.String:
		return va.String() == vb.String()
	}
	return false
}

// All reports whether a and b have pairwise identical elements.
func All(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Identical(a[i], b[i]) {
			return false
		}
	}
	return true
}
