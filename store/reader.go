package store

import (
	"github.com/kezhuw/treestate/store/path"
	"github.com/kezhuw/treestate/table"
)

func getNode(tx table.Tx, id table.ID) (*table.Node, error) {
	n, err := tx.Get(id)
	if err == table.ErrNotFound {
		return nil, &NodeNotFoundError{id}
	}
	return n, err
}

// lookup scans the sibling list of parent for key. A nil node without error
// means no such child.
func lookup(tx table.Tx, parent *table.Node, key string) (*table.Node, error) {
	for id := parent.Left; id != table.None; {
		n, err := getNode(tx, id)
		if err != nil {
			return nil, err
		}
		if n.Key == key {
			return n, nil
		}
		id = n.Right
	}
	return nil, nil
}

func find(tx table.Tx, root table.ID, p *path.Path) (*table.Node, error) {
	if root == table.None {
		return nil, &NotFoundError{p.Full}
	}
	n, err := getNode(tx, root)
	if err != nil {
		return nil, err
	}
	for i, seg := range p.Segs {
		if !n.IsContainer() {
			return nil, &NotFoundError{p.Sub(i)}
		}
		child, err := lookup(tx, n, seg)
		switch {
		case err != nil:
			return nil, err
		case child == nil:
			return nil, &NotFoundError{p.Sub(i)}
		}
		n = child
	}
	return n, nil
}

func children(tx table.Tx, parent *table.Node) ([]*table.Node, error) {
	var nodes []*table.Node
	for id := parent.Left; id != table.None; {
		n, err := getNode(tx, id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
		id = n.Right
	}
	return nodes, nil
}

// materialize rebuilds the value stored under n. Array elements are
// collected in sibling order.
func materialize(tx table.Tx, n *table.Node) (interface{}, error) {
	switch n.Kind {
	case table.KindValue:
		return copyData(n.Data), nil
	case table.KindArray:
		elems := []interface{}{}
		for id := n.Left; id != table.None; {
			child, err := getNode(tx, id)
			if err != nil {
				return nil, err
			}
			value, err := materialize(tx, child)
			if err != nil {
				return nil, err
			}
			elems = append(elems, value)
			id = child.Right
		}
		return elems, nil
	default:
		fields := make(map[string]interface{})
		for id := n.Left; id != table.None; {
			child, err := getNode(tx, id)
			if err != nil {
				return nil, err
			}
			value, err := materialize(tx, child)
			if err != nil {
				return nil, err
			}
			fields[child.Key] = value
			id = child.Right
		}
		return fields, nil
	}
}
