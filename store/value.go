package store

import (
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/kezhuw/treestate/table"
	"golang.org/x/xerrors"
)

// Normalize converts a JSON-like Go value into the canonical form the store
// works on: nil, bool, int64, uint64, float64, string, []interface{} and
// map[string]interface{}. Unsigned integers that fit into int64 become int64.
func Normalize(value interface{}) (interface{}, error) {
	return normalize(reflect.ValueOf(value))
}

func normalize(rv reflect.Value) (interface{}, error) {
	switch rv.Kind() {
	case reflect.Invalid:
		return nil, nil
	case reflect.Interface, reflect.Ptr:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem())
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u > math.MaxInt64 {
			return u, nil
		}
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return string(b), nil
		}
		elems := make([]interface{}, rv.Len())
		for i := range elems {
			elem, err := normalize(rv.Index(i))
			if err != nil {
				return nil, err
			}
			elems[i] = elem
		}
		return elems, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		fields := make(map[string]interface{}, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			field, err := normalize(it.Value())
			if err != nil {
				return nil, err
			}
			fields[it.Key().String()] = field
		}
		return fields, nil
	}
	return nil, xerrors.Errorf("%w: unsupported type %s", ErrInvalidValue, rv.Type())
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case nil, bool, int64, uint64, float64, string:
		return true
	}
	return false
}

// classify decides how a normalized value is stored. Non-empty arrays of
// scalars stay inline in one leaf; other arrays and all objects become
// containers.
func classify(v interface{}) (table.Kind, interface{}) {
	switch v := v.(type) {
	case map[string]interface{}:
		return table.KindObject, nil
	case []interface{}:
		if len(v) == 0 {
			return table.KindArray, nil
		}
		for _, elem := range v {
			if !isScalar(elem) {
				return table.KindArray, nil
			}
		}
		return table.KindValue, append([]interface{}(nil), v...)
	default:
		return table.KindValue, v
	}
}

type entry struct {
	key   string
	value interface{}
}

// entries lists children of a container value in insertion order: sorted
// keys for objects, index order for arrays.
func entries(v interface{}) []entry {
	switch v := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		list := make([]entry, len(keys))
		for i, k := range keys {
			list[i] = entry{k, v[k]}
		}
		return list
	case []interface{}:
		list := make([]entry, len(v))
		for i, elem := range v {
			list[i] = entry{strconv.Itoa(i), elem}
		}
		return list
	}
	return nil
}

func copyData(v interface{}) interface{} {
	if elems, ok := v.([]interface{}); ok {
		return append([]interface{}(nil), elems...)
	}
	return v
}
