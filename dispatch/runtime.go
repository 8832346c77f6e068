// Package dispatch implements a serialized action dispatch runtime.
//
// Every dispatched value passes a FIFO gate, so values are processed one at a
// time in call order. Transformers resolve thunks and sequences into concrete
// actions; processors observe concrete actions before they are reduced.
package dispatch

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kezhuw/guard"
	"github.com/sirupsen/logrus"
)

type Reducer func(state interface{}, a Action) (interface{}, error)

// MetaReducer wraps the combined reducer.
type MetaReducer func(Reducer) Reducer

type TransformHandler func(v Dispatchable) (interface{}, error)

type Transformer func(api API) func(next TransformHandler) TransformHandler

type ActionHandler func(a Action) (interface{}, error)

type Processor func(api API) func(next ActionHandler) ActionHandler

type Options struct {
	Logger  *logrus.Logger
	Initial interface{}

	// Transformers defaults to Thunks and Sequences. The first one sees
	// dispatched values first.
	Transformers []Transformer
	Processors   []Processor
	MetaReducers []MetaReducer
}

type snapshot struct {
	state interface{}
}

type Runtime struct {
	id     string
	logger *logrus.Logger

	mu      sync.Mutex
	closed  bool
	gate    guard.Guard
	pending sync.WaitGroup

	// commit orders state stores and their notifications against
	// subscriptions.
	commit    sync.Mutex
	state     atomic.Value
	observers observers

	modules sync.Mutex
	slices  map[string]Reducer
	effects map[string][]*Sequence
	metas   []MetaReducer

	// Accessed only while holding the gate.
	reducer   Reducer
	transform TransformHandler
}

func New(reducers map[string]Reducer, opts *Options) (*Runtime, error) {
	if opts == nil {
		opts = &Options{}
	}
	r := &Runtime{
		id:      uuid.New().String(),
		logger:  opts.Logger,
		slices:  make(map[string]Reducer, len(reducers)),
		effects: make(map[string][]*Sequence),
		metas:   opts.MetaReducers,
	}
	if r.logger == nil {
		r.logger = logrus.New()
	}
	for name, reducer := range reducers {
		r.slices[name] = reducer
	}
	root, err := r.build(r.slices)
	if err != nil {
		return nil, err
	}
	r.reducer = root
	r.state.Store(snapshot{opts.Initial})

	transformers := opts.Transformers
	if transformers == nil {
		transformers = []Transformer{Thunks, Sequences}
	}
	actions := ActionHandler(r.reduce)
	for i := len(opts.Processors) - 1; i >= 0; i-- {
		actions = opts.Processors[i](r)(actions)
	}
	handler := TransformHandler(func(v Dispatchable) (interface{}, error) {
		switch v := v.(type) {
		case Action:
			return actions(v)
		case replaceOp:
			r.reducer = v.reducer
			return actions(Action{Type: ActionReplace})
		}
		return nil, ErrUnresolved
	})
	for i := len(transformers) - 1; i >= 0; i-- {
		handler = transformers[i](r)(handler)
	}
	r.transform = handler

	var tickets []*Ticket
	for _, typ := range []string{ActionInitStore, ActionEnableTransformers, ActionSetupProcessors, ActionInit} {
		t, err := r.Dispatch(Action{Type: typ})
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if t := join(tickets...); waitTicket(t) != nil {
		r.Close()
		return nil, t.err
	}
	r.logger.Debugf("runtime[%s] started", r.id)
	return r, nil
}

func waitTicket(t *Ticket) error {
	<-t.done
	return t.err
}

func (r *Runtime) build(slices map[string]Reducer) (Reducer, error) {
	root, err := Combine(slices)
	if err != nil {
		return nil, err
	}
	for i := len(r.metas) - 1; i >= 0; i-- {
		root = r.metas[i](root)
	}
	return root, nil
}

func (r *Runtime) ID() string {
	return r.id
}

// State returns the last committed state.
func (r *Runtime) State() interface{} {
	return r.state.Load().(snapshot).state
}

// Dispatch queues v behind every earlier dispatch. Malformed values fail
// before entering the queue.
func (r *Runtime) Dispatch(v Dispatchable) (*Ticket, error) {
	v, err := validate(v)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRuntimeClosed
	}
	t := newTicket()
	l := r.gate.NewLocker()
	r.pending.Add(1)
	go r.run(l, v, t)
	return t, nil
}

func (r *Runtime) run(l guard.Locker, v Dispatchable, t *Ticket) {
	value, err := r.process(l, v)
	r.pending.Done()
	if inner, ok := value.(*Ticket); ok && err == nil {
		<-inner.done
		value, err = inner.value, inner.err
	}
	t.complete(value, err)
}

func (r *Runtime) process(l guard.Locker, v Dispatchable) (value interface{}, err error) {
	l.Lock()
	defer l.Unlock()
	defer func() {
		if x := recover(); x != nil {
			r.logger.Errorf("runtime[%s] panic while dispatching: %v", r.id, x)
			value, err = nil, &ReducerPanicError{Value: x, Stack: debug.Stack()}
		}
	}()
	return r.transform(v)
}

func (r *Runtime) reduce(a Action) (interface{}, error) {
	state, err := r.reducer(r.State(), a)
	if err != nil {
		return nil, err
	}
	r.commit.Lock()
	defer r.commit.Unlock()
	r.state.Store(snapshot{state})
	r.observers.notify(r, state)
	return state, nil
}

// ReplaceReducer swaps the root reducer in dispatch order and reduces
// ActionReplace with it. Loading or unloading a module rebuilds the root
// reducer from the loaded slices, discarding a reducer set here.
func (r *Runtime) ReplaceReducer(reducer Reducer) (*Ticket, error) {
	return r.Dispatch(replaceOp{reducer})
}

// Subscribe calls observer with the current state and then after every
// committed transition until the returned function is called. Every
// transition committed after the initial call reaches observer, in commit
// order. Observers must not call Subscribe themselves.
func (r *Runtime) Subscribe(observer func(state interface{})) func() {
	r.commit.Lock()
	o := r.observers.add(observer)
	r.observers.call(r, o, r.State())
	r.commit.Unlock()
	return func() {
		r.observers.remove(o)
	}
}

// Close rejects further dispatches and waits for queued ones. Running
// sequences are not interrupted; their later dispatches fail.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRuntimeClosed
	}
	r.closed = true
	r.mu.Unlock()
	r.pending.Wait()
	r.logger.Debugf("runtime[%s] closed", r.id)
	return nil
}

type observer struct {
	fn func(state interface{})
}

// observers is copied on update so notify never holds the lock while calling
// out.
type observers struct {
	mu   sync.Mutex
	list []*observer
}

func (os *observers) add(fn func(interface{})) *observer {
	o := &observer{fn}
	os.mu.Lock()
	defer os.mu.Unlock()
	list := make([]*observer, len(os.list), len(os.list)+1)
	copy(list, os.list)
	os.list = append(list, o)
	return o
}

func (os *observers) remove(o *observer) {
	os.mu.Lock()
	defer os.mu.Unlock()
	for i, x := range os.list {
		if x == o {
			list := make([]*observer, 0, len(os.list)-1)
			list = append(list, os.list[:i]...)
			os.list = append(list, os.list[i+1:]...)
			return
		}
	}
}

func (os *observers) get() []*observer {
	os.mu.Lock()
	defer os.mu.Unlock()
	return os.list
}

func (os *observers) notify(r *Runtime, state interface{}) {
	for _, o := range os.get() {
		os.call(r, o, state)
	}
}

func (os *observers) call(r *Runtime, o *observer, state interface{}) {
	defer func() {
		if x := recover(); x != nil {
			r.logger.Errorf("runtime[%s] observer panic: %v", r.id, x)
		}
	}()
	o.fn(state)
}
