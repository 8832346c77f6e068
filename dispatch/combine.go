package dispatch

import (
	"sort"

	"github.com/google/uuid"
	"github.com/kezhuw/treestate/internal/ident"
	"golang.org/x/xerrors"
)

// Combine builds a reducer over a map state whose keys are the slice names.
// Every slice reducer is called with nil state for ActionInit and for an
// unknown action; a nil result fails with *ReducerShapeError. The combined
// reducer returns its input map when no slice changed. Without slices it
// passes non-map states through.
func Combine(reducers map[string]Reducer) (Reducer, error) {
	if len(reducers) == 0 {
		return func(state interface{}, a Action) (interface{}, error) {
			if m, ok := state.(map[string]interface{}); ok && len(m) != 0 {
				return map[string]interface{}{}, nil
			}
			return state, nil
		}, nil
	}
	names := make([]string, 0, len(reducers))
	for name := range reducers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := checkShape(name, reducers[name]); err != nil {
			return nil, err
		}
	}
	slices := make([]Reducer, len(names))
	for i, name := range names {
		slices[i] = reducers[name]
	}
	return func(state interface{}, a Action) (interface{}, error) {
		var prev map[string]interface{}
		switch s := state.(type) {
		case nil:
		case map[string]interface{}:
			prev = s
		default:
			return nil, xerrors.Errorf("treestate: combined reducer got state of type %T", state)
		}
		next := make(map[string]interface{}, len(names))
		changed := len(prev) != len(names)
		for i, name := range names {
			old := prev[name]
			s, err := slices[i](old, a)
			if err != nil {
				return nil, xerrors.Errorf("slice %s: %w", name, err)
			}
			if s == nil {
				return nil, &ReducerShapeError{Slice: name, Action: a.Type}
			}
			next[name] = s
			changed = changed || !ident.Identical(old, s)
		}
		if !changed {
			return prev, nil
		}
		return next, nil
	}, nil
}

func checkShape(name string, reducer Reducer) error {
	if reducer == nil {
		return &ReducerShapeError{Slice: name, Action: ActionInit}
	}
	for _, typ := range []string{ActionInit, ActionUnknown + "_" + uuid.New().String()} {
		state, err := reducer(nil, Action{Type: typ})
		if err != nil {
			return xerrors.Errorf("slice %s: %w", name, err)
		}
		if state == nil {
			return &ReducerShapeError{Slice: name, Action: typ}
		}
	}
	return nil
}
