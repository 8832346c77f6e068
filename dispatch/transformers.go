package dispatch

import (
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// Thunks runs thunks with the runtime API. An Action returned by a thunk is
// reduced inline; any other result becomes the value of the dispatch.
func Thunks(api API) func(TransformHandler) TransformHandler {
	return func(next TransformHandler) TransformHandler {
		return func(v Dispatchable) (interface{}, error) {
			thunk, ok := v.(Thunk)
			if !ok {
				return next(v)
			}
			value, err := thunk(api)
			if err != nil {
				return nil, err
			}
			if a, ok := value.(Action); ok {
				if _, err := validate(a); err != nil {
					return nil, err
				}
				return next(a)
			}
			return value, nil
		}
	}
}

// Step is the handle a running sequence drives the runtime with.
type Step struct {
	api  API
	name string
	id   string
}

func (s *Step) Name() string {
	return s.name
}

// ID identifies this run of the sequence.
func (s *Step) ID() string {
	return s.id
}

func (s *Step) State() interface{} {
	return s.api.State()
}

// Yield resumes after v settles. Dispatchable values are dispatched and
// waited for, tickets are waited for, functions are called; other values are
// returned as they are.
func (s *Step) Yield(v interface{}) (interface{}, error) {
	switch v := v.(type) {
	case Dispatchable:
		t, err := s.api.Dispatch(v)
		if err != nil {
			return nil, err
		}
		<-t.done
		return t.value, t.err
	case *Ticket:
		<-v.done
		return v.value, v.err
	case func() (interface{}, error):
		return v()
	}
	return v, nil
}

func (s *Step) execute(body func(*Step) (interface{}, error)) (value interface{}, err error) {
	defer func() {
		if x := recover(); x != nil {
			value, err = nil, &SequencePanicError{Name: s.name, Value: x, Stack: debug.Stack()}
		}
	}()
	return body(s)
}

// SequenceMeta is the Meta of sequence lifecycle actions.
type SequenceMeta struct {
	Name string
	ID   string
}

// Sequences starts sequences. ActionSequenceStart is reduced inline, the body
// runs on its own goroutine and ActionSequenceFinish is dispatched when it
// returns, carrying the result or the error as payload. Dispatching a
// sequence whose name is already running joins that run.
func Sequences(api API) func(TransformHandler) TransformHandler {
	var mu sync.Mutex
	running := make(map[string]*Ticket)
	return func(next TransformHandler) TransformHandler {
		return func(v Dispatchable) (interface{}, error) {
			seq, ok := v.(*Sequence)
			if !ok {
				return next(v)
			}
			mu.Lock()
			if t, ok := running[seq.Name]; ok {
				mu.Unlock()
				return t, nil
			}
			t := newTicket()
			running[seq.Name] = t
			mu.Unlock()

			step := &Step{api: api, name: seq.Name, id: uuid.New().String()}
			meta := SequenceMeta{Name: step.name, ID: step.id}
			if _, err := next(Action{Type: ActionSequenceStart, Meta: meta}); err != nil {
				mu.Lock()
				delete(running, seq.Name)
				mu.Unlock()
				t.complete(nil, err)
				return nil, err
			}
			go func() {
				value, err := step.execute(seq.Body)
				finish := Action{Type: ActionSequenceFinish, Payload: value, Meta: meta}
				if err != nil {
					finish.Payload, finish.Error = err, true
				}
				if ft, err := api.Dispatch(finish); err == nil {
					<-ft.done
				}
				mu.Lock()
				delete(running, seq.Name)
				mu.Unlock()
				t.complete(value, err)
			}()
			return t, nil
		}
	}
}
