package dispatch

import "golang.org/x/xerrors"

// Module is a slice reducer plus the sequences started with it.
type Module struct {
	Slice   string
	Initial interface{}
	Reducer Reducer
	Effects []*Sequence
}

func (m *Module) reducer() Reducer {
	return func(state interface{}, a Action) (interface{}, error) {
		if state == nil {
			state = m.Initial
		}
		if m.Reducer == nil {
			return state, nil
		}
		return m.Reducer(state, a)
	}
}

func effectNames(effects []*Sequence) []string {
	names := make([]string, 0, len(effects))
	for _, e := range effects {
		names = append(names, e.Name)
	}
	return names
}

// LoadModule adds the module's slice to the root reducer and starts its
// effects. The returned ticket completes when the lifecycle actions are
// reduced.
func (r *Runtime) LoadModule(m Module) (*Ticket, error) {
	if m.Slice == "" {
		return nil, xerrors.Errorf("%w: empty slice name", ErrInvalidModule)
	}
	for _, e := range m.Effects {
		if _, err := validate(e); err != nil {
			return nil, xerrors.Errorf("%w: slice %s: %s", ErrInvalidModule, m.Slice, err)
		}
	}
	r.modules.Lock()
	defer r.modules.Unlock()
	if _, ok := r.slices[m.Slice]; ok {
		return nil, xerrors.Errorf("%w: %s", ErrSliceLoaded, m.Slice)
	}
	slices := make(map[string]Reducer, len(r.slices)+1)
	for name, reducer := range r.slices {
		slices[name] = reducer
	}
	slices[m.Slice] = m.reducer()
	root, err := r.build(slices)
	if err != nil {
		return nil, err
	}
	replaced, err := r.ReplaceReducer(root)
	if err != nil {
		return nil, err
	}
	r.slices = slices
	r.effects[m.Slice] = m.Effects
	tickets := []*Ticket{replaced}
	for _, a := range []Action{
		{Type: ActionLoadModule, Payload: m.Slice},
		{Type: ActionRegisterEffects, Payload: effectNames(m.Effects), Meta: m.Slice},
	} {
		t, err := r.Dispatch(a)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	for _, e := range m.Effects {
		if _, err := r.Dispatch(e); err != nil {
			return nil, err
		}
	}
	r.logger.Debugf("runtime[%s] loaded module %s", r.id, m.Slice)
	return join(tickets...), nil
}

// UnloadModule removes a slice from the root reducer. Its running effects are
// not interrupted.
func (r *Runtime) UnloadModule(slice string) (*Ticket, error) {
	r.modules.Lock()
	defer r.modules.Unlock()
	if _, ok := r.slices[slice]; !ok {
		return nil, xerrors.Errorf("%w: %s", ErrSliceMissing, slice)
	}
	slices := make(map[string]Reducer, len(r.slices))
	for name, reducer := range r.slices {
		if name != slice {
			slices[name] = reducer
		}
	}
	root, err := r.build(slices)
	if err != nil {
		return nil, err
	}
	unregistered, err := r.Dispatch(Action{Type: ActionUnregisterEffects, Payload: effectNames(r.effects[slice]), Meta: slice})
	if err != nil {
		return nil, err
	}
	replaced, err := r.ReplaceReducer(root)
	if err != nil {
		return nil, err
	}
	r.slices = slices
	delete(r.effects, slice)
	unloaded, err := r.Dispatch(Action{Type: ActionUnloadModule, Payload: slice})
	if err != nil {
		return nil, err
	}
	r.logger.Debugf("runtime[%s] unloaded module %s", r.id, slice)
	return join(unregistered, replaced, unloaded), nil
}

// Slices lists the loaded slice names.
func (r *Runtime) Slices() []string {
	r.modules.Lock()
	defer r.modules.Unlock()
	names := make([]string, 0, len(r.slices))
	for name := range r.slices {
		names = append(names, name)
	}
	return names
}
