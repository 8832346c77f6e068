package dispatch

// Reserved action types.
const (
	ActionInit               = "@@INIT"
	ActionReplace            = "@@REPLACE"
	ActionUnknown            = "@@UNKNOWN_ACTION"
	ActionInitStore          = "@@INIT_STORE"
	ActionEnableTransformers = "@@ENABLE_TRANSFORMERS"
	ActionSetupProcessors    = "@@SETUP_PROCESSORS"
	ActionLoadModule         = "@@LOAD_MODULE"
	ActionUnloadModule       = "@@UNLOAD_MODULE"
	ActionRegisterEffects    = "@@REGISTER_EFFECTS"
	ActionUnregisterEffects  = "@@UNREGISTER_EFFECTS"
	ActionSequenceStart      = "@@SEQUENCE_START"
	ActionSequenceFinish     = "@@SEQUENCE_FINISH"
)

// Dispatchable is a value accepted by Runtime.Dispatch: an Action, a Thunk or
// a *Sequence.
type Dispatchable interface {
	dispatchable()
}

type Action struct {
	Type    string
	Payload interface{}
	Error   bool
	Meta    interface{}
}

// Thunk is a deferred action. It runs inside the dispatch gate; values it
// dispatches through api are queued behind it, so waiting on them from the
// thunk itself never completes.
type Thunk func(api API) (interface{}, error)

// Sequence is a named side effect. Body runs on its own goroutine and drives
// the runtime through Step.Yield. At most one run per name is in flight.
type Sequence struct {
	Name string
	Body func(step *Step) (interface{}, error)
}

type replaceOp struct {
	reducer Reducer
}

func (Action) dispatchable()    {}
func (Thunk) dispatchable()     {}
func (*Sequence) dispatchable() {}
func (replaceOp) dispatchable() {}

// API is the view of a runtime handed to thunks, transformers and
// processors.
type API interface {
	ID() string
	Dispatch(v Dispatchable) (*Ticket, error)
	State() interface{}
}

func validate(v Dispatchable) (Dispatchable, error) {
	switch a := v.(type) {
	case nil:
		return nil, &MalformedActionError{Reason: "nil value"}
	case *Action:
		if a == nil {
			return nil, &MalformedActionError{Reason: "nil action"}
		}
		return validate(*a)
	case Action:
		if a.Type == "" {
			return nil, &MalformedActionError{Reason: "missing type"}
		}
	case Thunk:
		if a == nil {
			return nil, &MalformedActionError{Reason: "nil thunk"}
		}
	case *Sequence:
		switch {
		case a == nil:
			return nil, &MalformedActionError{Reason: "nil sequence"}
		case a.Name == "":
			return nil, &MalformedActionError{Reason: "sequence without name"}
		case a.Body == nil:
			return nil, &MalformedActionError{Type: a.Name, Reason: "sequence without body"}
		}
	case replaceOp:
		if a.reducer == nil {
			return nil, &MalformedActionError{Type: ActionReplace, Reason: "nil reducer"}
		}
	}
	return v, nil
}
