package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/kezhuw/treestate"
	"github.com/kezhuw/treestate/cmd/treestate/cmds"
	"github.com/kezhuw/treestate/dispatch"
	"github.com/kezhuw/treestate/selector"
	"github.com/kezhuw/treestate/table"
)

var (
	ErrInvalidArguments   = errors.New("invalid arguments")
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// Tree is the part of a treestate client the shell drives.
type Tree interface {
	Get(path string) (interface{}, error)
	Find(path string) (*treestate.Node, error)
	Children(path string) ([]*treestate.Node, error)
	Initialize(value interface{}) error
	Update(path string, value interface{}) error
	Delete(path string) error
	Dispatch(a dispatch.Action) error
	Describe() (*treestate.Description, error)
	Close() error
}

type State struct {
	client Tree
}

func Dial(addr string) (*State, error) {
	client, err := treestate.Dial(addr, nil)
	if err != nil {
		return nil, err
	}
	return &State{client: client}, nil
}

func New(client Tree) *State {
	return &State{client: client}
}

type handlerFunc func(*State, string) (string, error)

type handlerInfo struct {
	Cmd  *cmds.Command
	Func handlerFunc
}

var handlers = make(map[string]handlerInfo)

func regHandler(name string, f handlerFunc) {
	cmd := cmds.Find(name)
	if cmd == nil {
		panic(fmt.Errorf("no command: %s", name))
	}
	handlers[cmd.Name] = handlerInfo{cmd, f}
}

func init() {
	regHandler("get", (*State).handleGet)
	regHandler("find", (*State).handleFind)
	regHandler("children", (*State).handleChildren)
	regHandler("init", (*State).handleInit)
	regHandler("update", (*State).handleUpdate)
	regHandler("delete", (*State).handleDelete)
	regHandler("dispatch", (*State).handleDispatch)
	regHandler("describe", (*State).handleDescribe)
	regHandler("select", (*State).handleSelect)
}

func (s *State) ExecuteCommand(cmd *cmds.Command, args string) (string, error) {
	h, ok := handlers[cmd.Name]
	if !ok {
		return "", ErrUnsupportedCommand
	}
	return h.Func(s, args)
}

func splitArgs(s string, n int) (args []string) {
	s = strings.TrimFunc(s, unicode.IsSpace)
	for s != "" {
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i == -1 || n == 1 {
			args = append(args, s)
			break
		}
		n--
		args = append(args, s[:i])
		s = strings.TrimFunc(s[i:], unicode.IsSpace)
	}
	return args
}

// parseValue decodes a JSON argument. Integral numbers become int64.
func parseValue(s string) (interface{}, error) {
	d := json.NewDecoder(strings.NewReader(s))
	d.UseNumber()
	var value interface{}
	if err := d.Decode(&value); err != nil {
		return nil, ErrInvalidArguments
	}
	if d.More() {
		return nil, ErrInvalidArguments
	}
	return numbers(value), nil
}

func numbers(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []interface{}:
		for i := range v {
			v[i] = numbers(v[i])
		}
	case map[string]interface{}:
		for k := range v {
			v[k] = numbers(v[k])
		}
	}
	return value
}

func format(value interface{}) (string, error) {
	if b, ok := value.([]byte); ok {
		return fmt.Sprintf("%q", b), nil
	}
	var buf bytes.Buffer
	e := json.NewEncoder(&buf)
	e.SetIndent("", "  ")
	if err := e.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func formatNode(n *treestate.Node) string {
	s := fmt.Sprintf("%d %q %s parent=%d left=%d right=%d marker=%d", n.ID, n.Key, n.Kind, n.Parent, n.Left, n.Right, n.Marker)
	if n.Kind == table.KindValue {
		if value, err := format(n.Value); err == nil {
			s += " value=" + value
		}
	}
	return s
}

func (s *State) handleGet(path string) (string, error) {
	value, err := s.client.Get(path)
	if err != nil {
		return "", err
	}
	return format(value)
}

func (s *State) handleFind(path string) (string, error) {
	n, err := s.client.Find(path)
	if err != nil {
		return "", err
	}
	return formatNode(n), nil
}

func (s *State) handleChildren(path string) (string, error) {
	nodes, err := s.client.Children(path)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(nodes))
	for _, n := range nodes {
		lines = append(lines, formatNode(n))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *State) handleInit(str string) (string, error) {
	if str == "" {
		return "", ErrInvalidArguments
	}
	value, err := parseValue(str)
	if err != nil {
		return "", err
	}
	if err := s.client.Initialize(value); err != nil {
		return "", err
	}
	return "OK", nil
}

func (s *State) handleUpdate(str string) (string, error) {
	args := splitArgs(str, 2)
	if len(args) != 2 {
		return "", ErrInvalidArguments
	}
	value, err := parseValue(args[1])
	if err != nil {
		return "", err
	}
	if err := s.client.Update(args[0], value); err != nil {
		return "", err
	}
	return "OK", nil
}

func (s *State) handleDelete(path string) (string, error) {
	if path == "" {
		return "", ErrInvalidArguments
	}
	if err := s.client.Delete(path); err != nil {
		return "", err
	}
	return "OK", nil
}

func (s *State) handleDispatch(str string) (string, error) {
	args := splitArgs(str, 2)
	if len(args) == 0 {
		return "", ErrInvalidArguments
	}
	a := dispatch.Action{Type: args[0]}
	if len(args) == 2 {
		payload, err := parseValue(args[1])
		if err != nil {
			return "", err
		}
		a.Payload = payload
	}
	if err := s.client.Dispatch(a); err != nil {
		return "", err
	}
	return "OK", nil
}

func (s *State) handleDescribe(str string) (string, error) {
	if str != "" {
		return "", ErrInvalidArguments
	}
	desc, err := s.client.Describe()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("root=%d epoch=%d autoincrement=%d readonly=%t timestamp=%s",
		desc.Root, desc.Epoch, desc.Autoincrement, desc.Readonly, desc.Timestamp), nil
}

func remoteGet(ctx context.Context, state, props interface{}) (interface{}, error) {
	return state.(Tree).Get(props.(string))
}

func (s *State) handleSelect(str string) (string, error) {
	args := splitArgs(str, 2)
	if len(args) != 2 {
		return "", ErrInvalidArguments
	}
	projector, err := selector.Expr(args[1])
	if err != nil {
		return "", err
	}
	sel := selector.Create([]selector.Func{remoteGet}, projector, &selector.Options{Memoize: selector.None})
	defer sel.Release()
	value, err := sel.Select(context.Background(), s.client, args[0])
	if err != nil {
		return "", err
	}
	return format(value)
}

func (s *State) Close() {
	s.client.Close()
}
