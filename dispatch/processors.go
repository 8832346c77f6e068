package dispatch

import (
	"sync"
	"time"

	celgo "github.com/google/cel-go/cel"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Logger logs every concrete action at debug level.
func Logger(logger *logrus.Logger) Processor {
	return func(api API) func(ActionHandler) ActionHandler {
		return func(next ActionHandler) ActionHandler {
			return func(a Action) (interface{}, error) {
				logger.Debugf("runtime[%s] action %s error=%t", api.ID(), a.Type, a.Error)
				state, err := next(a)
				if err != nil {
					logger.Warnf("runtime[%s] action %s failed: %s", api.ID(), a.Type, err)
				}
				return state, err
			}
		}
	}
}

// Perfmon logs how long reducing each action took, warning past threshold.
func Perfmon(logger *logrus.Logger, threshold time.Duration) Processor {
	return func(api API) func(ActionHandler) ActionHandler {
		return func(next ActionHandler) ActionHandler {
			return func(a Action) (interface{}, error) {
				start := time.Now()
				state, err := next(a)
				elapsed := time.Since(start)
				if threshold > 0 && elapsed > threshold {
					logger.Warnf("runtime[%s] action %s took %s", api.ID(), a.Type, elapsed)
				} else {
					logger.Infof("runtime[%s] action %s took %s", api.ID(), a.Type, elapsed)
				}
				return state, err
			}
		}
	}
}

// Filter suppresses actions for which the CEL expression evaluates to true.
// The expression sees the action as map variable "action" with fields type,
// payload, error and meta. A suppressed action leaves the state unchanged.
func Filter(expression string) (Processor, error) {
	env, err := celgo.NewEnv(celgo.Variable("action", celgo.DynType))
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}
	return func(api API) func(ActionHandler) ActionHandler {
		return func(next ActionHandler) ActionHandler {
			return func(a Action) (interface{}, error) {
				out, _, err := prg.Eval(map[string]interface{}{
					"action": map[string]interface{}{
						"type":    a.Type,
						"payload": a.Payload,
						"error":   a.Error,
						"meta":    a.Meta,
					},
				})
				if err != nil {
					return nil, xerrors.Errorf("treestate: filter %q on action %s: %w", expression, a.Type, err)
				}
				if suppress, ok := out.Value().(bool); ok && suppress {
					return api.State(), nil
				}
				return next(a)
			}
		}
	}, nil
}

type Entry struct {
	ID    ulid.ULID
	Time  time.Time
	Type  string
	Error bool
	Err   error
}

// Journal keeps the most recent reduced actions.
type Journal struct {
	mu      sync.Mutex
	size    int
	next    int
	full    bool
	entries []Entry
}

func NewJournal(size int) *Journal {
	if size <= 0 {
		size = 1
	}
	return &Journal{size: size, entries: make([]Entry, size)}
}

// Processor records each action after it is reduced.
func (j *Journal) Processor(api API) func(ActionHandler) ActionHandler {
	return func(next ActionHandler) ActionHandler {
		return func(a Action) (interface{}, error) {
			state, err := next(a)
			id := ulid.Make()
			j.append(Entry{ID: id, Time: ulid.Time(id.Time()), Type: a.Type, Error: a.Error, Err: err})
			return state, err
		}
	}
}

func (j *Journal) append(e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[j.next] = e
	j.next++
	if j.next == j.size {
		j.next = 0
		j.full = true
	}
}

// Entries returns recorded entries, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.full {
		return append([]Entry(nil), j.entries[:j.next]...)
	}
	list := make([]Entry, 0, j.size)
	list = append(list, j.entries[j.next:]...)
	return append(list, j.entries[:j.next]...)
}
