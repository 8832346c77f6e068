package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	ErrExtraBytes = errors.New("treestate/protocol: extra bytes remains")
)

type Reader struct {
	off int
	buf []byte
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Bytes() []byte {
	return r.buf[r.off:]
}

func (r *Reader) ReadByte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	c := r.buf[r.off]
	r.off++
	return c, nil
}

func (r *Reader) ReadVarint() (int64, error) {
	return binary.ReadVarint(r)
}

func (r *Reader) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(r)
}

func (r *Reader) ReadFloat() (float64, error) {
	if r.off+8 > len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	bits := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return math.Float64frombits(bits), nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	pos := r.off
	if n > uint64(len(r.buf)-pos) {
		return r.buf[pos:], io.ErrUnexpectedEOF
	}
	r.off += int(n)
	return r.buf[pos:r.off], nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadValue decodes one value written by Buffer.WriteValue. Binary values
// are copied out of the underlying buffer.
func (r *Reader) ReadValue() (interface{}, error) {
	typ, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch typ {
	case FieldNull:
		return nil, nil
	case FieldBool:
		c, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return c != 0, nil
	case FieldInt:
		return r.ReadVarint()
	case FieldUint:
		return r.ReadUvarint()
	case FieldFloat:
		return r.ReadFloat()
	case FieldString:
		return r.ReadString()
	case FieldBinary:
		b, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), b...), nil
	case FieldArray:
		return r.readArray()
	case FieldTree:
		return r.readTree()
	default:
		return nil, fmt.Errorf("treestate/protocol: invalid value type: %d", typ)
	}
}

func (r *Reader) readArray() ([]interface{}, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.buf)-r.off) {
		return nil, io.ErrUnexpectedEOF
	}
	elems := make([]interface{}, n)
	for i := range elems {
		elems[i], err = r.ReadValue()
		if err != nil {
			return nil, err
		}
	}
	return elems, nil
}

func (r *Reader) readTree() (map[string]interface{}, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.buf)-r.off) {
		return nil, io.ErrUnexpectedEOF
	}
	fields := make(map[string]interface{}, n)
	for i := uint64(0); i < n; i++ {
		key, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		val, err := r.ReadValue()
		if err != nil {
			return nil, err
		}
		fields[key] = val
	}
	return fields, nil
}

func Unmarshal(buf []byte) (interface{}, error) {
	r := Reader{buf: buf}
	val, err := r.ReadValue()
	if err != nil {
		return nil, err
	}
	switch len(r.Bytes()) {
	case 0:
		return val, nil
	default:
		return val, ErrExtraBytes
	}
}
