// Package selector derives memoized values from runtime state.
package selector

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Func selects a value from state and props.
type Func func(ctx context.Context, state, props interface{}) (interface{}, error)

// Projector combines the values of the raw selectors, in order, with the
// extra arguments passed to Select.
type Projector func(ctx context.Context, values []interface{}, extra []interface{}) (interface{}, error)

type Options struct {
	// Memoize wraps every raw selector, Last by default.
	Memoize Memoizer
	// ProjectorMemoize wraps the projector, Last by default.
	ProjectorMemoize Memoizer
}

type Selector struct {
	raws      []Memoized
	projector Memoized
}

func Create(raws []Func, projector Projector, opts *Options) *Selector {
	memoize, projectorMemoize := Memoizer(Last), Memoizer(Last)
	if opts != nil {
		if opts.Memoize != nil {
			memoize = opts.Memoize
		}
		if opts.ProjectorMemoize != nil {
			projectorMemoize = opts.ProjectorMemoize
		}
	}
	s := &Selector{raws: make([]Memoized, len(raws))}
	for i, raw := range raws {
		raw := raw
		s.raws[i] = memoize(func(ctx context.Context, args ...interface{}) (interface{}, error) {
			return raw(ctx, args[0], args[1])
		})
	}
	n := len(raws)
	s.projector = projectorMemoize(func(ctx context.Context, args ...interface{}) (interface{}, error) {
		return projector(ctx, args[:n:n], args[n:])
	})
	return s
}

// Select resolves every raw selector concurrently and projects the results.
func (s *Selector) Select(ctx context.Context, state, props interface{}, extra ...interface{}) (interface{}, error) {
	values := make([]interface{}, len(s.raws), len(s.raws)+len(extra))
	g, gctx := errgroup.WithContext(ctx)
	for i, raw := range s.raws {
		i, raw := i, raw
		g.Go(func() error {
			value, err := raw.Call(gctx, state, props)
			values[i] = value
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s.projector.Call(ctx, append(values, extra...)...)
}

// Release drops every cached value.
func (s *Selector) Release() {
	for _, raw := range s.raws {
		raw.Release()
	}
	s.projector.Release()
}
