package selector

import (
	"context"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
	"golang.org/x/xerrors"
)

// Feature selects the state of a loaded module.
func Feature(slice string) Func {
	return func(ctx context.Context, state, props interface{}) (interface{}, error) {
		switch s := state.(type) {
		case interface{ Slice(string) interface{} }:
			return s.Slice(slice), nil
		case map[string]interface{}:
			return s[slice], nil
		}
		return nil, nil
	}
}

// Node selects the tree value at the path given as props. Pair it with
// TreeMarker to read each subtree version once.
func Node(ctx context.Context, state, props interface{}) (interface{}, error) {
	described, ok := state.(Described)
	if !ok {
		return nil, xerrors.Errorf("treestate: state of type %T has no tree", state)
	}
	path, ok := props.(string)
	if !ok {
		return nil, xerrors.Errorf("treestate: props of type %T is not a path", props)
	}
	return described.Descriptor().Reader.Get(path)
}

// Identity projects the first selected value.
func Identity(ctx context.Context, values []interface{}, extra []interface{}) (interface{}, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

// Expr compiles an expr-lang expression into a projector. The expression
// sees the selected values as "values", the first of them as "value" and the
// extra arguments as "extra".
func Expr(expression string) (Projector, error) {
	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]interface{}{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, values []interface{}, extra []interface{}) (interface{}, error) {
		return run(program, values, extra)
	}, nil
}

func run(program *exprvm.Program, values []interface{}, extra []interface{}) (interface{}, error) {
	env := map[string]interface{}{
		"values": values,
		"extra":  extra,
		"value":  nil,
	}
	if len(values) != 0 {
		env["value"] = values[0]
	}
	return exprlang.Run(program, env)
}
