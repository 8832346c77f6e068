package store

import (
	"sort"

	"github.com/kezhuw/treestate/table"
	"golang.org/x/xerrors"
)

// Verify walks the whole tree and checks its structural invariants: sibling
// lists agree with the parent index of the table, leaves have no children,
// containers carry no data, no marker exceeds its parent's and no record is
// unreachable.
func (s *Store) Verify() error {
	return s.view(func(tx table.Tx, root table.ID) error {
		nodes, err := tx.List()
		if err != nil {
			return err
		}
		if root == table.None {
			if len(nodes) != 0 {
				return xerrors.Errorf("%w: %d records without root", ErrCorruptedData, len(nodes))
			}
			return nil
		}
		byID := make(map[table.ID]*table.Node, len(nodes))
		for _, n := range nodes {
			byID[n.ID] = n
		}
		r, ok := byID[root]
		switch {
		case !ok:
			return &NodeNotFoundError{root}
		case r.Parent != table.None || r.Key != RootKey:
			return xerrors.Errorf("%w: root %d has parent %d key %q", ErrCorruptedData, r.ID, r.Parent, r.Key)
		}
		seen := make(map[table.ID]bool, len(nodes))
		seen[root] = true
		stack := []*table.Node{r}
		for len(stack) != 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch {
			case !n.IsContainer() && n.Left != table.None:
				return xerrors.Errorf("%w: leaf %d has children", ErrCorruptedData, n.ID)
			case n.IsContainer() && n.Data != nil:
				return xerrors.Errorf("%w: container %d has data", ErrCorruptedData, n.ID)
			}
			var walked []table.ID
			for id := n.Left; id != table.None; {
				c, ok := byID[id]
				switch {
				case !ok:
					return &NodeNotFoundError{id}
				case seen[id]:
					return xerrors.Errorf("%w: node %d linked twice", ErrCorruptedData, id)
				case c.Parent != n.ID:
					return xerrors.Errorf("%w: node %d linked under %d but has parent %d", ErrCorruptedData, id, n.ID, c.Parent)
				case c.Marker > n.Marker:
					return xerrors.Errorf("%w: node %d marker %d exceeds parent marker %d", ErrCorruptedData, id, c.Marker, n.Marker)
				}
				seen[id] = true
				walked = append(walked, id)
				stack = append(stack, c)
				id = c.Right
			}
			indexed, err := tx.Children(n.ID)
			if err != nil {
				return err
			}
			sort.Slice(walked, func(i, j int) bool { return walked[i] < walked[j] })
			if !sameIDs(walked, indexed) {
				return xerrors.Errorf("%w: children of %d disagree with parent index", ErrCorruptedData, n.ID)
			}
		}
		if len(seen) != len(nodes) {
			return xerrors.Errorf("%w: %d unreachable records", ErrCorruptedData, len(nodes)-len(seen))
		}
		return nil
	})
}

func sameIDs(a, b []table.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
