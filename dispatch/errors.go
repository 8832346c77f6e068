package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrRuntimeClosed = errors.New("treestate: runtime closed")
	ErrSliceLoaded   = errors.New("treestate: slice already loaded")
	ErrSliceMissing  = errors.New("treestate: slice not loaded")
	ErrInvalidModule = errors.New("treestate: invalid module")
	ErrUnresolved    = errors.New("treestate: no transformer resolved dispatched value")
)

// MalformedActionError is returned synchronously for values that can not
// enter the pipeline.
type MalformedActionError struct {
	Type   string
	Reason string
}

func (e *MalformedActionError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("treestate: malformed action: %s", e.Reason)
	}
	return fmt.Sprintf("treestate: malformed action %q: %s", e.Type, e.Reason)
}

// ReducerShapeError reports a slice reducer that returned nil state.
type ReducerShapeError struct {
	Slice  string
	Action string
}

func (e *ReducerShapeError) Error() string {
	return fmt.Sprintf("treestate: slice reducer %q returned nil state for action %q", e.Slice, e.Action)
}

// ReducerPanicError carries a panic recovered while processing a dispatched
// value.
type ReducerPanicError struct {
	Value interface{}
	Stack []byte
}

func (e *ReducerPanicError) Error() string {
	return fmt.Sprintf("treestate: panic in dispatch: %v", e.Value)
}

// SequencePanicError carries a panic recovered from a sequence body.
type SequencePanicError struct {
	Name  string
	Value interface{}
	Stack []byte
}

func (e *SequencePanicError) Error() string {
	return fmt.Sprintf("treestate: panic in sequence %q: %v", e.Name, e.Value)
}
