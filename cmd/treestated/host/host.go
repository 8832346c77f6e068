// Package host owns the tree store and dispatch runtime served by treestated.
//
// Requests are handled in arrival order. Reads go to the store directly;
// mutations are dispatched as tree actions so processors observe them.
package host

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/kezhuw/guard"
	"github.com/kezhuw/treestate/dispatch"
	"github.com/kezhuw/treestate/store"
	"github.com/kezhuw/treestate/table"
	"github.com/kezhuw/treestate/table/leveldb"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

var (
	ErrClosed         = errors.New("treestated: host closed")
	ErrReadonly       = errors.New("treestated: host is readonly")
	ErrUnknownCommand = errors.New("treestated: unknown command")
)

type Options struct {
	// DataDir selects a leveldb table. An empty DataDir keeps the tree in
	// memory.
	DataDir      string
	Readonly     bool
	Verify       bool
	Filter       string
	JournalSize  int
	SlowDispatch time.Duration
	Logger       *logrus.Logger
	Reducers     map[string]dispatch.Reducer
}

// Description is the store descriptor as reported to clients.
type Description struct {
	store.Descriptor
	Readonly bool
}

type request struct {
	Cmd   Command
	Reply chan interface{}
}

type Host struct {
	logger   *logrus.Logger
	readonly bool

	mu      sync.RWMutex
	closing bool
	served  chan struct{}

	store   *store.Store
	runtime *dispatch.Runtime
	journal *dispatch.Journal

	gate     guard.Guard
	pending  sync.WaitGroup
	requests chan request
}

func openTable(opts *Options) (table.Table, error) {
	if opts.DataDir == "" {
		return table.NewMemory(), nil
	}
	db, err := leveldb.Open(opts.DataDir, &leveldb.Options{ReadOnly: opts.Readonly})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func Open(opts *Options) (h *Host, err error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Readonly && opts.DataDir == "" {
		return nil, xerrors.New("treestated: readonly host requires a data directory")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	t, err := openTable(opts)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(t, nil)
	if err != nil {
		t.Close()
		return nil, err
	}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()
	if opts.Verify {
		if err := s.Verify(); err != nil {
			return nil, xerrors.Errorf("treestated: verify %s: %w", opts.DataDir, err)
		}
		logger.Infof("host[%s] verified", opts.DataDir)
	}

	journal := dispatch.NewJournal(opts.JournalSize)
	processors := []dispatch.Processor{dispatch.Logger(logger)}
	if opts.SlowDispatch > 0 {
		processors = append(processors, dispatch.Perfmon(logger, opts.SlowDispatch))
	}
	if opts.Filter != "" {
		filter, err := dispatch.Filter(opts.Filter)
		if err != nil {
			return nil, xerrors.Errorf("treestated: dispatch filter: %w", err)
		}
		processors = append(processors, filter)
	}
	processors = append(processors, journal.Processor)

	r, err := dispatch.New(opts.Reducers, &dispatch.Options{
		Logger:       logger,
		Initial:      dispatch.TreeState{Tree: s.Descriptor()},
		Processors:   processors,
		MetaReducers: []dispatch.MetaReducer{dispatch.TreeReducer(s)},
	})
	if err != nil {
		return nil, err
	}
	h = &Host{
		logger:   logger,
		readonly: opts.Readonly,
		store:    s,
		runtime:  r,
		journal:  journal,
		requests: make(chan request, 512),
		served:   make(chan struct{}),
	}
	logger.Infof("host[%s] runtime %s serving, readonly=%t", opts.DataDir, r.ID(), opts.Readonly)
	go h.serve()
	return h, nil
}

func (h *Host) Runtime() *dispatch.Runtime {
	return h.runtime
}

// Journal returns the most recently dispatched actions, oldest first.
func (h *Host) Journal() []dispatch.Entry {
	return h.journal.Entries()
}

func (h *Host) Readonly() bool {
	return h.readonly
}

// Request queues cmd. Its result, or ErrClosed once Close has begun, is
// sent to reply.
func (h *Host) Request(reply chan interface{}, cmd Command) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closing {
		reply <- ErrClosed
		return
	}
	h.requests <- request{Cmd: cmd, Reply: reply}
}

// Do issues cmd and waits for its result.
func (h *Host) Do(cmd Command) interface{} {
	reply := make(chan interface{}, 1)
	h.Request(reply, cmd)
	return <-reply
}

// Close answers queued requests, waits for running ones and closes the
// runtime and store.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		return nil
	}
	h.closing = true
	close(h.requests)
	h.mu.Unlock()
	<-h.served
	h.runtime.Close()
	return h.store.Close()
}

type handlerInfo struct {
	Reading  bool
	Callback reflect.Value
}

var requestHandlers = make(map[reflect.Type]handlerInfo)

func registerHandler(cmd Command, reading bool, callback interface{}) {
	requestHandlers[reflect.TypeOf(cmd)] = handlerInfo{reading, reflect.ValueOf(callback)}
}

func init() {
	registerHandler((*GetCommand)(nil), true, (*Host).handleGet)
	registerHandler((*FindCommand)(nil), true, (*Host).handleFind)
	registerHandler((*ChildrenCommand)(nil), true, (*Host).handleChildren)
	registerHandler((*DescribeCommand)(nil), true, (*Host).handleDescribe)
	registerHandler((*InitCommand)(nil), false, (*Host).handleInit)
	registerHandler((*UpdateCommand)(nil), false, (*Host).handleUpdate)
	registerHandler((*DeleteCommand)(nil), false, (*Host).handleDelete)
	registerHandler((*DispatchCommand)(nil), false, (*Host).handleDispatch)
}

func (h *Host) serve() {
	defer close(h.served)
	for req := range h.requests {
		handler, ok := requestHandlers[reflect.TypeOf(req.Cmd)]
		switch {
		case !ok:
			req.Reply <- ErrUnknownCommand
			continue
		case !handler.Reading && h.readonly:
			req.Reply <- ErrReadonly
			continue
		}
		l := h.gate.NewLocker()
		h.pending.Add(1)
		go h.handle(l, handler.Callback, req)
	}
	h.pending.Wait()
}

func (h *Host) handle(l guard.Locker, callback reflect.Value, req request) {
	defer h.pending.Done()
	l.Lock()
	defer l.Unlock()
	results := callback.Call([]reflect.Value{reflect.ValueOf(h), reflect.ValueOf(req.Cmd)})
	req.Reply <- results[0].Interface()
}

func result(value interface{}, err error) interface{} {
	if err != nil {
		return err
	}
	return value
}

func (h *Host) handleGet(cmd *GetCommand) interface{} {
	return result(h.store.Get(cmd.Path))
}

func (h *Host) handleFind(cmd *FindCommand) interface{} {
	return result(h.store.Find(cmd.Path))
}

func (h *Host) handleChildren(cmd *ChildrenCommand) interface{} {
	return result(h.store.Children(cmd.Path))
}

func (h *Host) handleDescribe(cmd *DescribeCommand) interface{} {
	return &Description{Descriptor: h.store.Descriptor(), Readonly: h.readonly}
}

func (h *Host) handleInit(cmd *InitCommand) interface{} {
	return h.dispatch(dispatch.Action{Type: dispatch.ActionTreeInit, Payload: cmd.Value})
}

func (h *Host) handleUpdate(cmd *UpdateCommand) interface{} {
	return h.dispatch(dispatch.Action{Type: dispatch.ActionTreeUpdate, Payload: dispatch.TreePatch{Path: cmd.Path, Value: cmd.Value}})
}

func (h *Host) handleDelete(cmd *DeleteCommand) interface{} {
	return h.dispatch(dispatch.Action{Type: dispatch.ActionTreeDelete, Payload: cmd.Path})
}

func (h *Host) handleDispatch(cmd *DispatchCommand) interface{} {
	if strings.HasPrefix(cmd.Action.Type, "@@") && !strings.HasPrefix(cmd.Action.Type, "@@tree/") {
		return &dispatch.MalformedActionError{Type: cmd.Action.Type, Reason: "reserved action type"}
	}
	return h.dispatch(cmd.Action)
}

// dispatch returns nil once a has been reduced, or the error it failed with.
func (h *Host) dispatch(a dispatch.Action) interface{} {
	t, err := h.runtime.Dispatch(a)
	if err != nil {
		return err
	}
	if _, err := t.Wait(context.Background()); err != nil {
		return err
	}
	return nil
}
