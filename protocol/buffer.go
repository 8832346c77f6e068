package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"sort"
)

var (
	ErrInvalidType = errors.New("treestate/protocol: invalid value/field type")
)

type Buffer struct {
	bytes.Buffer
	buf [binary.MaxVarintLen64]byte
}

func (w *Buffer) WriteUvarint(x uint64) error {
	n := binary.PutUvarint(w.buf[:], x)
	w.Write(w.buf[:n])
	return nil
}

func (w *Buffer) WriteVarint(x int64) error {
	n := binary.PutVarint(w.buf[:], x)
	w.Write(w.buf[:n])
	return nil
}

func (w *Buffer) WriteFloat(f float64) error {
	binary.LittleEndian.PutUint64(w.buf[:8], math.Float64bits(f))
	w.Write(w.buf[:8])
	return nil
}

func (w *Buffer) WriteString(s string) error {
	w.WriteUvarint(uint64(len(s)))
	w.Buffer.WriteString(s)
	return nil
}

func (w *Buffer) WriteBytes(b []byte) (int, error) {
	w.WriteUvarint(uint64(len(b)))
	w.Write(b)
	return len(b), nil
}

func (w *Buffer) WriteValue(value interface{}) error {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Invalid:
		w.WriteByte(FieldNull)
		return nil
	case reflect.Interface, reflect.Ptr:
		if rv.IsNil() {
			w.WriteByte(FieldNull)
			return nil
		}
		return w.WriteValue(rv.Elem().Interface())
	case reflect.Bool:
		w.WriteByte(FieldBool)
		switch rv.Bool() {
		case true:
			w.WriteByte(1)
		default:
			w.WriteByte(0)
		}
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		w.WriteByte(FieldInt)
		w.WriteVarint(rv.Int())
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		w.WriteByte(FieldUint)
		w.WriteUvarint(rv.Uint())
		return nil
	case reflect.Float32, reflect.Float64:
		w.WriteByte(FieldFloat)
		w.WriteFloat(rv.Float())
		return nil
	case reflect.String:
		w.WriteByte(FieldString)
		w.WriteString(rv.String())
		return nil
	case reflect.Array, reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			w.WriteByte(FieldBinary)
			if rv.Kind() == reflect.Array {
				b := make([]byte, rv.Len())
				reflect.Copy(reflect.ValueOf(b), rv)
				w.WriteBytes(b)
				return nil
			}
			w.WriteBytes(rv.Bytes())
			return nil
		}
		n := rv.Len()
		w.WriteByte(FieldArray)
		w.WriteUvarint(uint64(n))
		for i := 0; i < n; i++ {
			err := w.WriteValue(rv.Index(i).Interface())
			if err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		w.WriteByte(FieldTree)
		w.WriteUvarint(uint64(len(keys)))
		for _, key := range keys {
			w.WriteString(key.String())
			err := w.WriteValue(rv.MapIndex(key).Interface())
			if err != nil {
				return err
			}
		}
		return nil
	}
	return ErrInvalidType
}

func Marshal(value interface{}) ([]byte, error) {
	var buf Buffer
	err := buf.WriteValue(value)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
