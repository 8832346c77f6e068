// Package table defines the record table that backs a tree store, together
// with a volatile in-memory implementation. Durable implementations live in
// subpackages.
package table

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("treestate/table: record not found")
	ErrExists   = errors.New("treestate/table: record exists")
	ErrReadonly = errors.New("treestate/table: readonly")
	ErrClosed   = errors.New("treestate/table: closed")
)

type ID uint64

// None is the absent id. Assigned ids start from 1.
const None ID = 0

type Kind uint8

const (
	KindValue Kind = iota
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Node is one record of a left-child/right-sibling tree. Data is only
// meaningful for KindValue nodes.
type Node struct {
	ID     ID
	Key    string
	Parent ID
	Left   ID
	Right  ID
	Kind   Kind
	Data   interface{}
	Marker uint64
}

func (n *Node) IsContainer() bool {
	return n.Kind != KindValue
}

// Clone returns a copy of n. Scalar array data is copied too.
func (n *Node) Clone() *Node {
	c := *n
	if elems, ok := n.Data.([]interface{}); ok {
		c.Data = append([]interface{}(nil), elems...)
	}
	return &c
}

type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// Tx is the view of a table inside a transaction scope.
type Tx interface {
	Get(id ID) (*Node, error)
	// Put inserts a new record, failing with ErrExists if id is taken.
	Put(n *Node) error
	// Update replaces an existing record, failing with ErrNotFound otherwise.
	Update(n *Node) error
	Remove(id ID) error
	// List returns all records ordered by id.
	List() ([]*Node, error)
	// Children returns ids of records whose parent is parent, ordered by id.
	Children(parent ID) ([]ID, error)
	// Clear removes every record. The sequence is left alone.
	Clear() error
	Sequence() (uint64, error)
	SetSequence(seq uint64) error
}

// Table runs body inside a transaction scope. A ReadWrite scope is exclusive
// and is committed only if body returns nil. A ReadOnly scope sees a
// consistent view and fails writes with ErrReadonly.
type Table interface {
	Transaction(mode Mode, body func(tx Tx) error) error
	Close() error
}
