package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wait(t *testing.T, ticket *Ticket) (interface{}, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	value, err := ticket.Wait(ctx)
	require.NotEqual(t, context.DeadlineExceeded, err, "dispatch did not complete")
	return value, err
}

func mustDispatch(t *testing.T, r *Runtime, v Dispatchable) interface{} {
	t.Helper()
	ticket, err := r.Dispatch(v)
	require.NoError(t, err)
	value, err := wait(t, ticket)
	require.NoError(t, err)
	return value
}

// recorder appends the type of every non-reserved action.
func recorder(state interface{}, a Action) (interface{}, error) {
	list, _ := state.([]string)
	if list == nil {
		list = []string{}
	}
	if strings.HasPrefix(a.Type, "@@") {
		return list, nil
	}
	return append(append([]string(nil), list...), a.Type), nil
}

func counter(state interface{}, a Action) (interface{}, error) {
	n, _ := state.(int64)
	switch a.Type {
	case "INC":
		return n + 1, nil
	case "FAIL":
		return nil, errors.New("failing on purpose")
	case "PANIC":
		panic("panicking on purpose")
	}
	return n, nil
}

func slice(r *Runtime, name string) interface{} {
	switch s := r.State().(type) {
	case map[string]interface{}:
		return s[name]
	case TreeState:
		return s.Slice(name)
	}
	return nil
}

func newRuntime(t *testing.T, reducers map[string]Reducer, opts *Options) *Runtime {
	r, err := New(reducers, opts)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestDispatchOrder(t *testing.T) {
	r := newRuntime(t, map[string]Reducer{"log": recorder}, nil)
	var (
		tickets []*Ticket
		want    []string
	)
	for i := 0; i < 50; i++ {
		typ := fmt.Sprintf("A%d", i)
		ticket, err := r.Dispatch(Action{Type: typ})
		require.NoError(t, err)
		tickets = append(tickets, ticket)
		want = append(want, typ)
	}
	_, err := wait(t, tickets[len(tickets)-1])
	require.NoError(t, err)
	for _, ticket := range tickets {
		select {
		case <-ticket.Done():
		default:
			t.Fatal("earlier dispatch still pending after a later one completed")
		}
	}
	require.Equal(t, want, slice(r, "log"))
}

func TestDispatchOrderPerCaller(t *testing.T) {
	r := newRuntime(t, map[string]Reducer{"log": recorder}, nil)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			var last *Ticket
			for i := 0; i < 25; i++ {
				ticket, err := r.Dispatch(Action{Type: fmt.Sprintf("%d-%02d", g, i)})
				if !assert.NoError(t, err) {
					return
				}
				last = ticket
			}
			<-last.Done()
		}(g)
	}
	wg.Wait()
	log := slice(r, "log").([]string)
	require.Len(t, log, 100)
	seen := make(map[string]string)
	for _, typ := range log {
		g := typ[:1]
		require.Less(t, seen[g], typ)
		seen[g] = typ
	}
}

func TestMalformedAction(t *testing.T) {
	r := newRuntime(t, nil, nil)
	for _, v := range []Dispatchable{
		nil,
		Action{},
		(*Action)(nil),
		&Action{Payload: 1},
		Thunk(nil),
		(*Sequence)(nil),
		&Sequence{Body: func(*Step) (interface{}, error) { return nil, nil }},
		&Sequence{Name: "no body"},
	} {
		ticket, err := r.Dispatch(v)
		require.Nil(t, ticket)
		var malformed *MalformedActionError
		require.True(t, errors.As(err, &malformed), "%#v", v)
	}
	_, err := r.ReplaceReducer(nil)
	require.IsType(t, &MalformedActionError{}, err)
}

func TestReducerFailureReleasesGate(t *testing.T) {
	r := newRuntime(t, map[string]Reducer{"n": counter}, nil)
	mustDispatch(t, r, Action{Type: "INC"})
	before := r.State()

	ticket, err := r.Dispatch(Action{Type: "PANIC"})
	require.NoError(t, err)
	_, err = wait(t, ticket)
	var panicked *ReducerPanicError
	require.True(t, errors.As(err, &panicked))
	require.Equal(t, "panicking on purpose", panicked.Value)
	require.Equal(t, before, r.State())

	ticket, err = r.Dispatch(Action{Type: "FAIL"})
	require.NoError(t, err)
	_, err = wait(t, ticket)
	require.EqualError(t, err, "slice n: failing on purpose")
	require.Equal(t, before, r.State())

	mustDispatch(t, r, Action{Type: "INC"})
	require.Equal(t, int64(2), slice(r, "n"))
}

func TestSubscribe(t *testing.T) {
	r := newRuntime(t, map[string]Reducer{"n": counter}, nil)
	var (
		mu     sync.Mutex
		states []interface{}
	)
	unsubscribe := r.Subscribe(func(state interface{}) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state.(map[string]interface{})["n"])
	})
	mustDispatch(t, r, Action{Type: "INC"})
	mustDispatch(t, r, Action{Type: "INC"})
	unsubscribe()
	mustDispatch(t, r, Action{Type: "INC"})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []interface{}{int64(0), int64(1), int64(2)}, states)
}

func TestSubscribeDuringDispatch(t *testing.T) {
	r := newRuntime(t, map[string]Reducer{"n": counter}, nil)

	const dispatches, subscribers = 200, 8
	var (
		mu      sync.Mutex
		last    = make([]interface{}, subscribers)
		tickets = make(chan *Ticket, dispatches)
		wg      sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < dispatches; i++ {
			ticket, err := r.Dispatch(Action{Type: "INC"})
			if err == nil {
				tickets <- ticket
			}
		}
		close(tickets)
	}()
	for i := 0; i < subscribers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Subscribe(func(state interface{}) {
				mu.Lock()
				defer mu.Unlock()
				last[i] = state.(map[string]interface{})["n"]
			})
		}()
	}
	wg.Wait()
	for ticket := range tickets {
		_, err := wait(t, ticket)
		require.NoError(t, err)
	}

	require.Equal(t, int64(dispatches), slice(r, "n"))
	mu.Lock()
	defer mu.Unlock()
	for i, n := range last {
		require.Equal(t, int64(dispatches), n, "subscriber %d", i)
	}
}

func TestObserverPanicIsContained(t *testing.T) {
	r := newRuntime(t, map[string]Reducer{"n": counter}, nil)
	calls := 0
	r.Subscribe(func(interface{}) {
		calls++
		if calls > 1 {
			panic("observer")
		}
	})
	mustDispatch(t, r, Action{Type: "INC"})
	require.Equal(t, int64(1), slice(r, "n"))
}

func TestReplaceReducer(t *testing.T) {
	r := newRuntime(t, map[string]Reducer{"n": counter}, nil)
	var seen []string
	ticket, err := r.ReplaceReducer(func(state interface{}, a Action) (interface{}, error) {
		seen = append(seen, a.Type)
		return "replaced", nil
	})
	require.NoError(t, err)
	value, err := wait(t, ticket)
	require.NoError(t, err)
	require.Equal(t, "replaced", value)
	require.Equal(t, "replaced", r.State())
	require.Equal(t, []string{ActionReplace}, seen)
}

func TestCombine(t *testing.T) {
	_, err := Combine(map[string]Reducer{
		"ok": counter,
		"bad": func(state interface{}, a Action) (interface{}, error) {
			if strings.HasPrefix(a.Type, ActionUnknown) {
				return nil, nil
			}
			return 0, nil
		},
	})
	var shape *ReducerShapeError
	require.True(t, errors.As(err, &shape))
	require.Equal(t, "bad", shape.Slice)

	combined, err := Combine(map[string]Reducer{"n": counter, "log": recorder})
	require.NoError(t, err)
	state, err := combined(nil, Action{Type: "NOOP"})
	require.NoError(t, err)
	m := state.(map[string]interface{})
	require.Equal(t, map[string]interface{}{"n": int64(0), "log": []string{"NOOP"}}, m)

	same, err := combined(map[string]interface{}{"n": int64(0)}, Action{Type: "@@NOOP"})
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"n": int64(0), "log": []string{}}, same)

	counting, err := Combine(map[string]Reducer{"n": counter})
	require.NoError(t, err)
	dropped, err := counting(m, Action{Type: "NOOP"})
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"n": int64(0)}, dropped)
	prev := map[string]interface{}{"n": int64(3)}
	unchanged, err := counting(prev, Action{Type: "NOOP"})
	require.NoError(t, err)
	unchanged.(map[string]interface{})["marker"] = true
	require.Equal(t, true, prev["marker"])

	_, err = Combine(map[string]Reducer{"nil": nil})
	require.True(t, errors.As(err, &shape))
}

func TestModules(t *testing.T) {
	journal := NewJournal(64)
	r := newRuntime(t, nil, &Options{Processors: []Processor{journal.Processor}})
	done := make(chan struct{})
	ticket, err := r.LoadModule(Module{
		Slice:   "counter",
		Initial: int64(10),
		Reducer: counter,
		Effects: []*Sequence{{
			Name: "bump",
			Body: func(step *Step) (interface{}, error) {
				defer close(done)
				return step.Yield(Action{Type: "INC"})
			},
		}},
	})
	require.NoError(t, err)
	_, err = wait(t, ticket)
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("effect did not run")
	}
	require.Equal(t, int64(11), slice(r, "counter"))
	require.Equal(t, []string{"counter"}, r.Slices())

	_, err = r.LoadModule(Module{Slice: "counter", Reducer: counter})
	require.True(t, errors.Is(err, ErrSliceLoaded))
	_, err = r.LoadModule(Module{Slice: "bad", Reducer: func(interface{}, Action) (interface{}, error) { return nil, nil }})
	require.IsType(t, &ReducerShapeError{}, err)
	_, err = r.LoadModule(Module{})
	require.True(t, errors.Is(err, ErrInvalidModule))

	ticket, err = r.UnloadModule("counter")
	require.NoError(t, err)
	_, err = wait(t, ticket)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{}, r.State())
	require.Empty(t, r.Slices())

	_, err = r.UnloadModule("counter")
	require.True(t, errors.Is(err, ErrSliceMissing))

	var types []string
	for _, e := range journal.Entries() {
		types = append(types, e.Type)
	}
	require.Subset(t, types, []string{
		ActionReplace, ActionLoadModule, ActionRegisterEffects,
		ActionUnregisterEffects, ActionUnloadModule,
		ActionSequenceStart,
	})
}

func TestLifecycleActions(t *testing.T) {
	journal := NewJournal(8)
	newRuntime(t, nil, &Options{Processors: []Processor{journal.Processor}})
	var types []string
	for _, e := range journal.Entries() {
		types = append(types, e.Type)
	}
	require.Equal(t, []string{ActionInitStore, ActionEnableTransformers, ActionSetupProcessors, ActionInit}, types)
}

func TestClose(t *testing.T) {
	r, err := New(nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	_, err = r.Dispatch(Action{Type: "X"})
	require.Equal(t, ErrRuntimeClosed, err)
	require.Equal(t, ErrRuntimeClosed, r.Close())
}

func TestInitialState(t *testing.T) {
	r := newRuntime(t, map[string]Reducer{"n": counter}, &Options{
		Initial: map[string]interface{}{"n": int64(41)},
	})
	mustDispatch(t, r, Action{Type: "INC"})
	require.Equal(t, int64(42), slice(r, "n"))
}
