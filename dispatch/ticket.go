package dispatch

import (
	"context"
	"sync"
)

// Ticket tracks completion of one dispatched value.
type Ticket struct {
	once  sync.Once
	done  chan struct{}
	value interface{}
	err   error
}

func newTicket() *Ticket {
	return &Ticket{done: make(chan struct{})}
}

func (t *Ticket) complete(value interface{}, err error) {
	t.once.Do(func() {
		t.value, t.err = value, err
		close(t.done)
	})
}

func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Err returns the failure of the dispatch, or nil if it succeeded or is still
// in flight.
func (t *Ticket) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

func (t *Ticket) Value() interface{} {
	select {
	case <-t.done:
		return t.value
	default:
		return nil
	}
}

func (t *Ticket) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// join completes once every ticket completes, with the first error in
// ticket order.
func join(tickets ...*Ticket) *Ticket {
	t := newTicket()
	go func() {
		var (
			value interface{}
			err   error
		)
		for _, x := range tickets {
			<-x.done
			if x.err != nil && err == nil {
				err = x.err
			}
			value = x.value
		}
		t.complete(value, err)
	}()
	return t
}
