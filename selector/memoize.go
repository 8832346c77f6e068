package selector

import (
	"context"
	"fmt"
	"sync"

	"github.com/kezhuw/treestate/internal/ident"
	"github.com/kezhuw/treestate/store"
	"github.com/kezhuw/treestate/table"
	"golang.org/x/sync/singleflight"
)

// Fn is a function a Memoizer can wrap.
type Fn func(ctx context.Context, args ...interface{}) (interface{}, error)

type Memoized interface {
	Call(ctx context.Context, args ...interface{}) (interface{}, error)
	Release()
}

type Memoizer func(fn Fn) Memoized

type none struct {
	fn Fn
}

func (m none) Call(ctx context.Context, args ...interface{}) (interface{}, error) {
	return m.fn(ctx, args...)
}

func (none) Release() {}

// None does not memoize.
func None(fn Fn) Memoized {
	return none{fn}
}

type last struct {
	fn Fn

	mu    sync.Mutex
	valid bool
	args  []interface{}
	value interface{}
}

// Last reuses the previous result while every argument is identical to the
// previous call's. Failures are not cached.
func Last(fn Fn) Memoized {
	return &last{fn: fn}
}

func (m *last) Call(ctx context.Context, args ...interface{}) (interface{}, error) {
	m.mu.Lock()
	if m.valid && ident.All(m.args, args) {
		value := m.value
		m.mu.Unlock()
		return value, nil
	}
	m.mu.Unlock()
	value, err := m.fn(ctx, args...)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.valid, m.args, m.value = true, append([]interface{}(nil), args...), value
	m.mu.Unlock()
	return value, nil
}

func (m *last) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid, m.args, m.value = false, nil, nil
}

type async struct {
	fn    Fn
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]interface{}
}

// Async caches results by the printed form of the arguments. Concurrent
// calls with equal arguments share one computation; failures are evicted.
func Async(fn Fn) Memoized {
	return &async{fn: fn, cache: make(map[string]interface{})}
}

func (m *async) Call(ctx context.Context, args ...interface{}) (interface{}, error) {
	key := fmt.Sprintf("%#v", args)
	m.mu.Lock()
	value, ok := m.cache[key]
	m.mu.Unlock()
	if ok {
		return value, nil
	}
	value, err, _ := m.group.Do(key, func() (interface{}, error) {
		value, err := m.fn(ctx, args...)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.cache[key] = value
		m.mu.Unlock()
		return value, nil
	})
	return value, err
}

func (m *async) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]interface{})
}

// Described is state that exposes a tree store descriptor.
type Described interface {
	Descriptor() store.Descriptor
}

type version struct {
	epoch  uint64
	id     table.ID
	marker uint64
}

type versioned struct {
	version version
	value   interface{}
}

type treeMarker struct {
	fn Fn

	mu    sync.Mutex
	cache map[string]versioned
}

// TreeMarker expects (state, path) arguments where state is Described. It
// resolves path and reuses the result computed for the same node version, so
// an unchanged subtree is never read again. Other arguments bypass the cache.
func TreeMarker(fn Fn) Memoized {
	return &treeMarker{fn: fn, cache: make(map[string]versioned)}
}

func (m *treeMarker) resolve(args []interface{}) (string, version, bool) {
	if len(args) != 2 {
		return "", version{}, false
	}
	state, ok := args[0].(Described)
	if !ok {
		return "", version{}, false
	}
	path, ok := args[1].(string)
	if !ok {
		return "", version{}, false
	}
	desc := state.Descriptor()
	if desc.Reader == nil {
		return "", version{}, false
	}
	n, err := desc.Reader.Find(path)
	if err != nil {
		return "", version{}, false
	}
	return path, version{epoch: desc.Epoch, id: n.ID, marker: n.Marker}, true
}

func (m *treeMarker) Call(ctx context.Context, args ...interface{}) (interface{}, error) {
	path, v, ok := m.resolve(args)
	if !ok {
		return m.fn(ctx, args...)
	}
	m.mu.Lock()
	cached, hit := m.cache[path]
	m.mu.Unlock()
	if hit && cached.version == v {
		return cached.value, nil
	}
	value, err := m.fn(ctx, args...)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cache[path] = versioned{v, value}
	m.mu.Unlock()
	return value, nil
}

func (m *treeMarker) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]versioned)
}
