package dispatch

// Action type suffixes used by CreateAction.
const (
	SuffixSuccess = "_SUCCESS"
	SuffixFailure = "_FAILURE"
)

// ActionCreator builds a dispatchable value from a payload.
type ActionCreator func(payload interface{}) Dispatchable

// CreateAction returns a creator of thunks that dispatch typ with the
// payload, run fn once that action is reduced, then dispatch typ_SUCCESS with
// the result or typ_FAILURE with the error. fn runs outside the dispatch
// gate. The dispatch completes with the state after the final action, or
// with the error of fn.
func CreateAction(typ string, fn func(payload interface{}) (interface{}, error)) ActionCreator {
	return func(payload interface{}) Dispatchable {
		return Thunk(func(api API) (interface{}, error) {
			started, err := api.Dispatch(Action{Type: typ, Payload: payload})
			if err != nil {
				return nil, err
			}
			t := newTicket()
			go func() {
				if err := waitTicket(started); err != nil {
					t.complete(nil, err)
					return
				}
				result, err := fn(payload)
				end := Action{Type: typ + SuffixSuccess, Payload: result, Meta: payload}
				if err != nil {
					end = Action{Type: typ + SuffixFailure, Payload: err, Error: true, Meta: payload}
				}
				finished, derr := api.Dispatch(end)
				if derr != nil {
					t.complete(nil, derr)
					return
				}
				<-finished.done
				if err == nil {
					err = finished.err
				}
				t.complete(finished.value, err)
			}()
			return t, nil
		})
	}
}

// BoundCreator dispatches what its creator builds.
type BoundCreator func(payload interface{}) (*Ticket, error)

func BindActionCreators(api API, creators map[string]ActionCreator) map[string]BoundCreator {
	bound := make(map[string]BoundCreator, len(creators))
	for name, creator := range creators {
		creator := creator
		bound[name] = func(payload interface{}) (*Ticket, error) {
			return api.Dispatch(creator(payload))
		}
	}
	return bound
}
