package dispatch

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThunks(t *testing.T) {
	r := newRuntime(t, map[string]Reducer{"n": counter, "log": recorder}, nil)

	state := mustDispatch(t, r, Thunk(func(api API) (interface{}, error) {
		return Action{Type: "INC"}, nil
	}))
	require.Equal(t, int64(1), state.(map[string]interface{})["n"])

	value := mustDispatch(t, r, Thunk(func(api API) (interface{}, error) {
		return api.State().(map[string]interface{})["n"].(int64) * 42, nil
	}))
	require.Equal(t, int64(42), value)

	ticket, err := r.Dispatch(Thunk(func(api API) (interface{}, error) {
		return nil, errors.New("thunk failed")
	}))
	require.NoError(t, err)
	_, err = wait(t, ticket)
	require.EqualError(t, err, "thunk failed")

	ticket, err = r.Dispatch(Thunk(func(api API) (interface{}, error) {
		return Action{}, nil
	}))
	require.NoError(t, err)
	_, err = wait(t, ticket)
	require.IsType(t, &MalformedActionError{}, err)

	var nested *Ticket
	mustDispatch(t, r, Thunk(func(api API) (interface{}, error) {
		var err error
		nested, err = api.Dispatch(Action{Type: "NESTED"})
		return Action{Type: "INLINE"}, err
	}))
	_, err = wait(t, nested)
	require.NoError(t, err)
	require.Equal(t, []string{"INC", "INLINE", "NESTED"}, slice(r, "log"))
}

func TestThunkWithoutTransformer(t *testing.T) {
	r := newRuntime(t, nil, &Options{Transformers: []Transformer{}})
	ticket, err := r.Dispatch(Thunk(func(api API) (interface{}, error) { return nil, nil }))
	require.NoError(t, err)
	_, err = wait(t, ticket)
	require.Equal(t, ErrUnresolved, err)
}

func TestSequence(t *testing.T) {
	r := newRuntime(t, map[string]Reducer{"n": counter}, nil)
	var name, id string
	value := mustDispatch(t, r, &Sequence{
		Name: "twice",
		Body: func(step *Step) (interface{}, error) {
			name, id = step.Name(), step.ID()
			for i := 0; i < 2; i++ {
				if _, err := step.Yield(Action{Type: "INC"}); err != nil {
					return nil, err
				}
			}
			n, err := step.Yield(func() (interface{}, error) {
				return step.State().(map[string]interface{})["n"], nil
			})
			if err != nil {
				return nil, err
			}
			plain, _ := step.Yield("plain")
			return []interface{}{n, plain}, nil
		},
	})
	require.Equal(t, []interface{}{int64(2), "plain"}, value)
	require.Equal(t, "twice", name)
	require.NotEmpty(t, id)
}

func TestSequenceJoinsRunning(t *testing.T) {
	journal := NewJournal(32)
	r := newRuntime(t, map[string]Reducer{"n": counter}, &Options{Processors: []Processor{journal.Processor}})
	var runs int32
	release := make(chan struct{})
	seq := &Sequence{
		Name: "once",
		Body: func(step *Step) (interface{}, error) {
			atomic.AddInt32(&runs, 1)
			<-release
			return step.Yield(Action{Type: "INC"})
		},
	}
	first, err := r.Dispatch(seq)
	require.NoError(t, err)
	second, err := r.Dispatch(&Sequence{Name: "once", Body: seq.Body})
	require.NoError(t, err)
	// The second dispatch is processed after the first one registered its run.
	mustDispatch(t, r, Action{Type: "NOOP"})
	close(release)

	v1, err := wait(t, first)
	require.NoError(t, err)
	v2, err := wait(t, second)
	require.NoError(t, err)
	require.Equal(t, v1, v2)
	require.Equal(t, int32(1), atomic.LoadInt32(&runs))
	require.Equal(t, int64(1), slice(r, "n"))

	var starts, finishes int
	for _, e := range journal.Entries() {
		switch e.Type {
		case ActionSequenceStart:
			starts++
		case ActionSequenceFinish:
			finishes++
		}
	}
	require.Equal(t, 1, starts)
	require.Equal(t, 1, finishes)

	third, err := r.Dispatch(seq)
	require.NoError(t, err)
	_, err = wait(t, third)
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&runs))
}

func TestSequencePanic(t *testing.T) {
	var finish Action
	r := newRuntime(t, map[string]Reducer{
		"finish": func(state interface{}, a Action) (interface{}, error) {
			if a.Type == ActionSequenceFinish {
				finish = a
			}
			return true, nil
		},
	}, nil)
	ticket, err := r.Dispatch(&Sequence{
		Name: "broken",
		Body: func(step *Step) (interface{}, error) {
			panic("sequence")
		},
	})
	require.NoError(t, err)
	_, err = wait(t, ticket)
	var panicked *SequencePanicError
	require.True(t, errors.As(err, &panicked))
	require.Equal(t, "broken", panicked.Name)
	require.True(t, finish.Error)
	require.Equal(t, "broken", finish.Meta.(SequenceMeta).Name)
}

func TestCreateAction(t *testing.T) {
	r := newRuntime(t, map[string]Reducer{"log": recorder}, nil)
	double := CreateAction("DOUBLE", func(payload interface{}) (interface{}, error) {
		return payload.(int) * 2, nil
	})
	fail := CreateAction("BROKEN", func(payload interface{}) (interface{}, error) {
		return nil, errors.New("broken")
	})

	state := mustDispatch(t, r, double(21))
	require.Equal(t, []string{"DOUBLE", "DOUBLE_SUCCESS"}, state.(map[string]interface{})["log"])

	bound := BindActionCreators(r, map[string]ActionCreator{"fail": fail})
	ticket, err := bound["fail"](nil)
	require.NoError(t, err)
	_, err = wait(t, ticket)
	require.EqualError(t, err, "broken")
	require.Equal(t, []string{"DOUBLE", "DOUBLE_SUCCESS", "BROKEN", "BROKEN_FAILURE"}, slice(r, "log"))
}
