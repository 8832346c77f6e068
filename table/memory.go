package table

import (
	"sort"
	"sync"
)

type undo struct {
	id   ID
	prev *Node
}

// Memory is a volatile table. Records are cloned on the way in and out so
// callers never share state with the table.
type Memory struct {
	mu       sync.RWMutex
	closed   bool
	nodes    map[ID]*Node
	children map[ID]map[ID]struct{}
	sequence uint64
}

func NewMemory() *Memory {
	return &Memory{
		nodes:    make(map[ID]*Node),
		children: make(map[ID]map[ID]struct{}),
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.nodes = nil
	m.children = nil
	m.mu.Unlock()
	return nil
}

func (m *Memory) Transaction(mode Mode, body func(tx Tx) error) error {
	switch mode {
	case ReadWrite:
		m.mu.Lock()
		defer m.mu.Unlock()
	default:
		m.mu.RLock()
		defer m.mu.RUnlock()
	}
	if m.closed {
		return ErrClosed
	}
	tx := &memoryTx{m: m, writable: mode == ReadWrite, sequence: m.sequence}
	if err := runTx(tx, body); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func runTx(tx *memoryTx, body func(tx Tx) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
	}()
	return body(tx)
}

type memoryTx struct {
	m        *Memory
	writable bool
	journal  []undo
	sequence uint64
}

func (tx *memoryTx) rollback() {
	for i := len(tx.journal) - 1; i >= 0; i-- {
		u := tx.journal[i]
		tx.unlink(u.id)
		if u.prev != nil {
			tx.link(u.prev)
		}
	}
	tx.journal = nil
	tx.m.sequence = tx.sequence
}

func (tx *memoryTx) record(id ID) {
	tx.journal = append(tx.journal, undo{id: id, prev: tx.m.nodes[id]})
}

func (tx *memoryTx) link(n *Node) {
	tx.m.nodes[n.ID] = n
	siblings := tx.m.children[n.Parent]
	if siblings == nil {
		siblings = make(map[ID]struct{})
		tx.m.children[n.Parent] = siblings
	}
	siblings[n.ID] = struct{}{}
}

func (tx *memoryTx) unlink(id ID) {
	n, ok := tx.m.nodes[id]
	if !ok {
		return
	}
	delete(tx.m.nodes, id)
	if siblings := tx.m.children[n.Parent]; siblings != nil {
		delete(siblings, id)
		if len(siblings) == 0 {
			delete(tx.m.children, n.Parent)
		}
	}
}

func (tx *memoryTx) Get(id ID) (*Node, error) {
	n, ok := tx.m.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Clone(), nil
}

func (tx *memoryTx) Put(n *Node) error {
	if !tx.writable {
		return ErrReadonly
	}
	if _, ok := tx.m.nodes[n.ID]; ok {
		return ErrExists
	}
	tx.record(n.ID)
	tx.link(n.Clone())
	return nil
}

func (tx *memoryTx) Update(n *Node) error {
	if !tx.writable {
		return ErrReadonly
	}
	if _, ok := tx.m.nodes[n.ID]; !ok {
		return ErrNotFound
	}
	tx.record(n.ID)
	tx.unlink(n.ID)
	tx.link(n.Clone())
	return nil
}

func (tx *memoryTx) Remove(id ID) error {
	if !tx.writable {
		return ErrReadonly
	}
	if _, ok := tx.m.nodes[id]; !ok {
		return ErrNotFound
	}
	tx.record(id)
	tx.unlink(id)
	return nil
}

func (tx *memoryTx) List() ([]*Node, error) {
	nodes := make([]*Node, 0, len(tx.m.nodes))
	for _, n := range tx.m.nodes {
		nodes = append(nodes, n.Clone())
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes, nil
}

func (tx *memoryTx) Children(parent ID) ([]ID, error) {
	siblings := tx.m.children[parent]
	ids := make([]ID, 0, len(siblings))
	for id := range siblings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (tx *memoryTx) Clear() error {
	if !tx.writable {
		return ErrReadonly
	}
	for id := range tx.m.nodes {
		tx.record(id)
	}
	tx.m.nodes = make(map[ID]*Node)
	tx.m.children = make(map[ID]map[ID]struct{})
	return nil
}

func (tx *memoryTx) Sequence() (uint64, error) {
	return tx.m.sequence, nil
}

func (tx *memoryTx) SetSequence(seq uint64) error {
	if !tx.writable {
		return ErrReadonly
	}
	tx.m.sequence = seq
	return nil
}
