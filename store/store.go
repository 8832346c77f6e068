// Package store implements a path addressable tree on top of a record table.
//
// Nodes form a left-child/right-sibling tree. Every mutation stamps the nodes
// it changes and all of their ancestors with a fresh marker drawn from the
// store counter, so a node whose marker is unchanged has an unchanged
// subtree.
package store

import (
	"sync"
	"time"

	"github.com/kezhuw/treestate/store/path"
	"github.com/kezhuw/treestate/table"
	"golang.org/x/xerrors"
)

// RootKey is the key of the root node.
const RootKey = "$root"

type Reader interface {
	Get(path string) (interface{}, error)
	Find(path string) (*table.Node, error)
	Children(path string) ([]*table.Node, error)
}

type Writer interface {
	Initialize(value interface{}) error
	Create(path string, value interface{}) error
	Update(path string, value interface{}) error
	Delete(path string) error
}

// Descriptor describes a store at one commit. Epoch advances whenever the
// table is cleared, so (Epoch, id, marker) never repeats for different
// content.
type Descriptor struct {
	Autoincrement uint64
	Root          table.ID
	Epoch         uint64
	Timestamp     time.Time
	Reader        Reader
	Writer        Writer
}

type Options struct {
	Clock func() time.Time
}

type Store struct {
	mu      sync.RWMutex
	closed  bool
	table   table.Table
	clock   func() time.Time
	root    table.ID
	counter uint64
	epoch   uint64
	stamp   time.Time
}

func Open(t table.Table, opts *Options) (*Store, error) {
	s := &Store{table: t, clock: time.Now, epoch: 1}
	if opts != nil && opts.Clock != nil {
		s.clock = opts.Clock
	}
	err := t.Transaction(table.ReadOnly, func(tx table.Tx) error {
		roots, err := tx.Children(table.None)
		if err != nil {
			return err
		}
		switch len(roots) {
		case 0:
		case 1:
			s.root = roots[0]
		default:
			return xerrors.Errorf("%w: %d roots", ErrCorruptedData, len(roots))
		}
		seq, err := tx.Sequence()
		if err != nil {
			return err
		}
		if seq == 0 && s.root != table.None {
			seq, err = readMaxCounter(tx)
			if err != nil {
				return err
			}
		}
		s.counter = seq
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.stamp = s.clock()
	return s, nil
}

func readMaxCounter(tx table.Tx) (uint64, error) {
	nodes, err := tx.List()
	if err != nil {
		return 0, err
	}
	var max uint64
	for _, n := range nodes {
		if uint64(n.ID) > max {
			max = uint64(n.ID)
		}
		if n.Marker > max {
			max = n.Marker
		}
	}
	return max, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.table.Close()
}

func (s *Store) Descriptor() Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Descriptor{
		Autoincrement: s.counter,
		Root:          s.root,
		Epoch:         s.epoch,
		Timestamp:     s.stamp,
		Reader:        s,
		Writer:        s,
	}
}

func parsePath(s string) (*path.Path, error) {
	p := path.New(s)
	if p == nil {
		return nil, &InvalidPathError{s}
	}
	return p, nil
}

func (s *Store) view(body func(tx table.Tx, root table.ID) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.table.Transaction(table.ReadOnly, func(tx table.Tx) error {
		return body(tx, s.root)
	})
}

func (s *Store) update(body func(w *writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	w := &writer{root: s.root, counter: s.counter}
	err := s.table.Transaction(table.ReadWrite, func(tx table.Tx) error {
		w.tx = tx
		if err := body(w); err != nil {
			return err
		}
		if w.stamp == 0 && !w.cleared {
			return nil
		}
		return tx.SetSequence(w.counter)
	})
	if err != nil {
		return err
	}
	if w.stamp == 0 && !w.cleared {
		return nil
	}
	s.root, s.counter = w.root, w.counter
	if w.cleared {
		s.epoch++
	}
	s.stamp = s.clock()
	return nil
}

func (s *Store) Find(p string) (n *table.Node, err error) {
	path, err := parsePath(p)
	if err != nil {
		return nil, err
	}
	err = s.view(func(tx table.Tx, root table.ID) error {
		n, err = find(tx, root, path)
		return err
	})
	return n, err
}

func (s *Store) Get(p string) (value interface{}, err error) {
	path, err := parsePath(p)
	if err != nil {
		return nil, err
	}
	err = s.view(func(tx table.Tx, root table.ID) error {
		n, err := find(tx, root, path)
		if err != nil {
			return err
		}
		value, err = materialize(tx, n)
		return err
	})
	return value, err
}

// Children returns the child nodes of the container at p in sibling order.
func (s *Store) Children(p string) (nodes []*table.Node, err error) {
	path, err := parsePath(p)
	if err != nil {
		return nil, err
	}
	err = s.view(func(tx table.Tx, root table.ID) error {
		n, err := find(tx, root, path)
		if err != nil {
			return err
		}
		if !n.IsContainer() {
			return &NotTreeError{p}
		}
		nodes, err = children(tx, n)
		return err
	})
	return nodes, err
}

func (s *Store) Initialize(value interface{}) error {
	value, err := Normalize(value)
	if err != nil {
		return err
	}
	return s.update(func(w *writer) error {
		return w.initialize(value)
	})
}

func (s *Store) Create(p string, value interface{}) error {
	path, err := parsePath(p)
	if err != nil {
		return err
	}
	value, err = Normalize(value)
	if err != nil {
		return err
	}
	return s.update(func(w *writer) error {
		return w.create(path, value)
	})
}

func (s *Store) Update(p string, value interface{}) error {
	path, err := parsePath(p)
	if err != nil {
		return err
	}
	value, err = Normalize(value)
	if err != nil {
		return err
	}
	return s.update(func(w *writer) error {
		if err := w.delete(path); err != nil {
			return err
		}
		return w.create(path, value)
	})
}

// Delete removes the subtree at p. Deleting an unresolvable path is a no-op.
// Deleting the root clears the store and resets its counter.
func (s *Store) Delete(p string) error {
	path, err := parsePath(p)
	if err != nil {
		return err
	}
	return s.update(func(w *writer) error {
		return w.delete(path)
	})
}

// Touch moves node id to a fresh id, rewiring its referrer and children.
func (s *Store) Touch(id table.ID) (touched table.ID, err error) {
	err = s.update(func(w *writer) error {
		n, err := w.touch(id)
		if err != nil {
			return err
		}
		touched = n.ID
		return w.propagate(n.ID)
	})
	return touched, err
}
