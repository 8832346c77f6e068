package store

import (
	"github.com/kezhuw/treestate/store/path"
	"github.com/kezhuw/treestate/table"
)

// writer carries the uncommitted state of one read-write transaction. The
// store adopts root and counter only after the table commits.
type writer struct {
	tx      table.Tx
	root    table.ID
	counter uint64
	stamp   uint64
	cleared bool
}

func (w *writer) tick() uint64 {
	w.counter++
	return w.counter
}

// mark returns the marker of this transaction, drawing it on first use.
func (w *writer) mark() uint64 {
	if w.stamp == 0 {
		w.stamp = w.tick()
	}
	return w.stamp
}

func (w *writer) get(id table.ID) (*table.Node, error) {
	return getNode(w.tx, id)
}

func (w *writer) newNode(key string, parent table.ID, value interface{}) *table.Node {
	marker := w.mark()
	kind, data := classify(value)
	return &table.Node{
		ID:     table.ID(w.tick()),
		Key:    key,
		Parent: parent,
		Kind:   kind,
		Data:   data,
		Marker: marker,
	}
}

func (w *writer) clear(reset bool) error {
	if err := w.tx.Clear(); err != nil {
		return err
	}
	w.root = table.None
	w.cleared = true
	if reset {
		w.counter = 0
		w.stamp = 0
	}
	return nil
}

type pending struct {
	node  *table.Node
	value interface{}
}

// fill creates the descendants of n, which is already stored, breadth first.
// Siblings get consecutive ids so every node is written with its final
// right link.
func (w *writer) fill(n *table.Node, value interface{}) error {
	queue := []pending{{n, value}}
	for len(queue) != 0 {
		p := queue[0]
		queue = queue[1:]
		if !p.node.IsContainer() {
			continue
		}
		list := entries(p.value)
		if len(list) == 0 {
			continue
		}
		marker := w.mark()
		ids := make([]table.ID, len(list))
		for i := range ids {
			ids[i] = table.ID(w.tick())
		}
		for i, e := range list {
			kind, data := classify(e.value)
			child := &table.Node{
				ID:     ids[i],
				Key:    e.key,
				Parent: p.node.ID,
				Kind:   kind,
				Data:   data,
				Marker: marker,
			}
			if i+1 < len(ids) {
				child.Right = ids[i+1]
			}
			if err := w.tx.Put(child); err != nil {
				return err
			}
			if child.IsContainer() {
				queue = append(queue, pending{child, e.value})
			}
		}
		p.node.Left = ids[0]
		if err := w.tx.Update(p.node); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) initialize(value interface{}) error {
	if err := w.clear(false); err != nil {
		return err
	}
	root := w.newNode(RootKey, table.None, value)
	if err := w.tx.Put(root); err != nil {
		return err
	}
	w.root = root.ID
	return w.fill(root, value)
}

// previous returns the sibling whose right link is id.
func (w *writer) previous(parent *table.Node, id table.ID) (*table.Node, error) {
	for cur := parent.Left; cur != table.None; {
		n, err := w.get(cur)
		if err != nil {
			return nil, err
		}
		if n.Right == id {
			return n, nil
		}
		cur = n.Right
	}
	return nil, &NodeNotFoundError{id}
}

// relink points the referrer of old, the parent or the previous sibling, at
// id.
func (w *writer) relink(old *table.Node, id table.ID) error {
	if old.Parent == table.None {
		w.root = id
		return nil
	}
	parent, err := w.get(old.Parent)
	if err != nil {
		return err
	}
	if parent.Left == old.ID {
		parent.Left = id
		return w.tx.Update(parent)
	}
	prev, err := w.previous(parent, old.ID)
	if err != nil {
		return err
	}
	prev.Right = id
	return w.tx.Update(prev)
}

func (w *writer) appendChild(parent, child *table.Node) error {
	child.Right = table.None
	if err := w.tx.Put(child); err != nil {
		return err
	}
	if parent.Left == table.None {
		parent.Left = child.ID
		return w.tx.Update(parent)
	}
	last, err := w.get(parent.Left)
	if err != nil {
		return err
	}
	for last.Right != table.None {
		if last, err = w.get(last.Right); err != nil {
			return err
		}
	}
	last.Right = child.ID
	return w.tx.Update(last)
}

// touch clones node id under a fresh id, rewrites its referrer, reparents
// its children and removes the old record.
func (w *writer) touch(id table.ID) (*table.Node, error) {
	old, err := w.get(id)
	if err != nil {
		return nil, err
	}
	w.mark()
	n := old.Clone()
	n.ID = table.ID(w.tick())
	if err := w.relink(old, n.ID); err != nil {
		return nil, err
	}
	for cur := old.Left; cur != table.None; {
		child, err := w.get(cur)
		if err != nil {
			return nil, err
		}
		child.Parent = n.ID
		if err := w.tx.Update(child); err != nil {
			return nil, err
		}
		cur = child.Right
	}
	if err := w.tx.Remove(old.ID); err != nil {
		return nil, err
	}
	if err := w.tx.Put(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (w *writer) propagate(id table.ID) error {
	marker := w.mark()
	for id != table.None {
		n, err := w.get(id)
		if err != nil {
			return err
		}
		n.Marker = marker
		if err := w.tx.Update(n); err != nil {
			return err
		}
		id = n.Parent
	}
	return nil
}

func notTreePath(p *path.Path, i int) string {
	if i == 0 {
		return ""
	}
	return p.Sub(i - 1)
}

func (w *writer) create(p *path.Path, value interface{}) error {
	if p.IsRoot() {
		if w.root != table.None {
			return &ExistsError{p.Full}
		}
		return w.initialize(value)
	}
	if w.root == table.None {
		root := w.newNode(RootKey, table.None, map[string]interface{}{})
		if err := w.tx.Put(root); err != nil {
			return err
		}
		w.root = root.ID
	}
	cur, err := w.touch(w.root)
	if err != nil {
		return err
	}
	last := len(p.Segs) - 1
	for i, seg := range p.Segs {
		if !cur.IsContainer() {
			return &NotTreeError{notTreePath(p, i)}
		}
		child, err := lookup(w.tx, cur, seg)
		if err != nil {
			return err
		}
		switch {
		case child != nil && i == last:
			return &ExistsError{p.Full}
		case child != nil:
			if cur, err = w.touch(child.ID); err != nil {
				return err
			}
		case i == last:
			n := w.newNode(seg, cur.ID, value)
			if err := w.appendChild(cur, n); err != nil {
				return err
			}
			if err := w.fill(n, value); err != nil {
				return err
			}
			return w.propagate(cur.ID)
		default:
			n := w.newNode(seg, cur.ID, map[string]interface{}{})
			if err := w.appendChild(cur, n); err != nil {
				return err
			}
			cur = n
		}
	}
	return nil
}

func (w *writer) removeSubtree(n *table.Node) error {
	stack := []table.ID{n.ID}
	for len(stack) != 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node, err := w.get(id)
		if err != nil {
			return err
		}
		for cur := node.Left; cur != table.None; {
			child, err := w.get(cur)
			if err != nil {
				return err
			}
			stack = append(stack, child.ID)
			cur = child.Right
		}
		if err := w.tx.Remove(id); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) delete(p *path.Path) error {
	n, err := find(w.tx, w.root, p)
	switch {
	case IsNotFound(err):
		return nil
	case err != nil:
		return err
	case n.Parent == table.None:
		return w.clear(true)
	}
	if err := w.relink(n, n.Right); err != nil {
		return err
	}
	if err := w.removeSubtree(n); err != nil {
		return err
	}
	return w.propagate(n.Parent)
}
