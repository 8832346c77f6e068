package dispatch

import (
	"github.com/kezhuw/treestate/store"
)

// Tree mutation actions handled by TreeReducer.
const (
	ActionTreeInit   = "@@tree/INIT"
	ActionTreeUpdate = "@@tree/UPDATE"
	ActionTreeDelete = "@@tree/DELETE"
)

// TreePatch is the payload of ActionTreeUpdate and, without Value, of
// ActionTreeDelete.
type TreePatch struct {
	Path  string
	Value interface{}
}

// TreeState is the root state produced by TreeReducer.
type TreeState struct {
	Tree   store.Descriptor
	Slices interface{}
}

func (s TreeState) Descriptor() store.Descriptor {
	return s.Tree
}

// Slice returns the state of a loaded module, or nil.
func (s TreeState) Slice(name string) interface{} {
	if m, ok := s.Slices.(map[string]interface{}); ok {
		return m[name]
	}
	return nil
}

// TreeReducer routes tree mutation actions to s after reducing them with the
// wrapped reducer. Every action yields a TreeState carrying the descriptor of
// s at that point.
func TreeReducer(s *store.Store) MetaReducer {
	return func(inner Reducer) Reducer {
		return func(state interface{}, a Action) (interface{}, error) {
			var slices interface{}
			switch st := state.(type) {
			case TreeState:
				slices = st.Slices
			case *TreeState:
				if st != nil {
					slices = st.Slices
				}
			default:
				slices = state
			}
			slices, err := inner(slices, a)
			if err != nil {
				return nil, err
			}
			if err := applyTree(s, a); err != nil {
				return nil, err
			}
			return TreeState{Tree: s.Descriptor(), Slices: slices}, nil
		}
	}
}

func applyTree(s *store.Store, a Action) error {
	switch a.Type {
	case ActionTreeInit:
		return s.Initialize(a.Payload)
	case ActionTreeUpdate:
		patch, ok := treePatch(a.Payload)
		if !ok {
			return &MalformedActionError{Type: a.Type, Reason: "payload is not a tree patch"}
		}
		return s.Update(patch.Path, patch.Value)
	case ActionTreeDelete:
		if path, ok := a.Payload.(string); ok {
			return s.Delete(path)
		}
		patch, ok := treePatch(a.Payload)
		if !ok {
			return &MalformedActionError{Type: a.Type, Reason: "payload is not a path"}
		}
		return s.Delete(patch.Path)
	}
	return nil
}

func treePatch(payload interface{}) (TreePatch, bool) {
	switch p := payload.(type) {
	case TreePatch:
		return p, true
	case *TreePatch:
		if p != nil {
			return *p, true
		}
	case map[string]interface{}:
		path, ok := p["path"].(string)
		if ok {
			return TreePatch{Path: path, Value: p["value"]}, true
		}
	}
	return TreePatch{}, false
}
