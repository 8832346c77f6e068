// Package treestate is the client of a treestated server.
package treestate

import (
	"errors"
	"net"
	"reflect"
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/kezhuw/treestate/dispatch"
	"github.com/kezhuw/treestate/protocol"
	"github.com/kezhuw/treestate/store"
	"github.com/kezhuw/treestate/table"
	"github.com/kezhuw/treestate/v0"
)

var (
	ErrClientClosed        = errors.New("treestate: client closed")
	ErrServerClosed        = errors.New("treestate: server closed")
	ErrIncompatibleVersion = errors.New("treestate: incompatible version")
)

type ResponseTypeError struct {
	Type reflect.Type
}

func (e *ResponseTypeError) Error() string {
	return "treestate: unexpected response type: " + e.Type.String()
}

const (
	DefaultChannelCap = 128
)

type Options struct {
	ChannelCap int
	Timeout    time.Duration
}

var defaultOptions = &Options{ChannelCap: DefaultChannelCap}

// Node is a tree node as seen by clients. Value holds the data of leaves.
type Node struct {
	ID     table.ID
	Key    string
	Parent table.ID
	Left   table.ID
	Right  table.ID
	Kind   table.Kind
	Marker uint64
	Value  interface{}
}

type Description struct {
	Autoincrement uint64
	Root          table.ID
	Epoch         uint64
	Timestamp     time.Time
	Readonly      bool
}

type Client struct {
	broker     *broker
	closed     chan struct{}
	serverAddr string
}

func Dial(addr string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = defaultOptions
	}
	conn, err := dial(addr, opts.Timeout)
	if err != nil {
		return nil, err
	}
	return newClient(addr, conn, opts)
}

func newClient(addr string, conn net.Conn, opts *Options) (*Client, error) {
	n := opts.ChannelCap
	if n <= 0 {
		n = DefaultChannelCap
	}
	c := &Client{
		broker:     newBroker(n, conn),
		closed:     make(chan struct{}),
		serverAddr: addr,
	}
	switch result := c.broker.Call(protocol.HANDSHAKE, &protocol.HandshakeRequest{Versions: []uint32{v0.Version}}).(type) {
	case *protocol.HandshakeResponse:
		if result.Version == v0.Version {
			runtime.SetFinalizer(c, (*Client).finalize)
			return c, nil
		}
		c.Close()
		return nil, ErrIncompatibleVersion
	case error:
		c.Close()
		return nil, result
	default:
		c.Close()
		return nil, &ResponseTypeError{reflect.TypeOf(result)}
	}
}

func (c *Client) getBroker() *broker {
	addr := (*unsafe.Pointer)(unsafe.Pointer(&c.broker))
	return (*broker)(atomic.LoadPointer(addr))
}

func (c *Client) resetBroker() *broker {
	addr := (*unsafe.Pointer)(unsafe.Pointer(&c.broker))
	b := atomic.LoadPointer(addr)
	switch {
	case b == nil:
		return nil
	case !atomic.CompareAndSwapPointer(addr, b, nil):
		return nil
	}
	return (*broker)(b)
}

func (c *Client) finalize() {
	go c.Close()
}

func (c *Client) Addr() string {
	return c.serverAddr
}

func (c *Client) Close() error {
	b := c.resetBroker()
	if b == nil {
		<-c.closed
		return nil
	}
	defer close(c.closed)
	return b.Close()
}

func (c *Client) call(cmd uint32, msg interface{}) (interface{}, error) {
	b := c.getBroker()
	if b == nil {
		return nil, ErrClientClosed
	}
	switch result := b.Call(cmd, msg).(type) {
	case *protocol.Error:
		return nil, remoteError(result)
	case error:
		return nil, result
	default:
		return result, nil
	}
}

// remoteError restores the store error a server reported for a path.
func remoteError(e *protocol.Error) error {
	switch e.Code {
	case protocol.EcodePathNotFound:
		return &store.NotFoundError{Path: e.Info}
	case protocol.EcodePathNotTree:
		return &store.NotTreeError{Path: e.Info}
	case protocol.EcodePathExists:
		return &store.ExistsError{Path: e.Info}
	case protocol.EcodeInvalidPath:
		return &store.InvalidPathError{Path: e.Info}
	}
	return e
}

func (c *Client) okOrError(cmd uint32, msg interface{}) error {
	result, err := c.call(cmd, msg)
	switch {
	case err != nil:
		return err
	case result != nil:
		return &ResponseTypeError{reflect.TypeOf(result)}
	}
	return nil
}

func (c *Client) Get(path string) (interface{}, error) {
	result, err := c.call(protocol.GET, &protocol.GetRequest{Path: path})
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*protocol.GetResponse)
	if !ok {
		return nil, &ResponseTypeError{reflect.TypeOf(result)}
	}
	return protocol.Unmarshal(resp.Value)
}

func fromWire(n *protocol.Node) (*Node, error) {
	node := &Node{
		ID:     table.ID(n.Id),
		Key:    n.Key,
		Parent: table.ID(n.Parent),
		Left:   table.ID(n.Left),
		Right:  table.ID(n.Right),
		Kind:   table.Kind(n.Kind),
		Marker: n.Marker,
	}
	if len(n.Data) != 0 {
		value, err := protocol.Unmarshal(n.Data)
		if err != nil {
			return nil, err
		}
		node.Value = value
	}
	return node, nil
}

func (c *Client) Find(path string) (*Node, error) {
	result, err := c.call(protocol.FIND, &protocol.FindRequest{Path: path})
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*protocol.FindResponse)
	if !ok || resp.Node == nil {
		return nil, &ResponseTypeError{reflect.TypeOf(result)}
	}
	return fromWire(resp.Node)
}

func (c *Client) Children(path string) ([]*Node, error) {
	result, err := c.call(protocol.CHILDREN, &protocol.ChildrenRequest{Path: path})
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*protocol.ChildrenResponse)
	if !ok {
		return nil, &ResponseTypeError{reflect.TypeOf(result)}
	}
	nodes := make([]*Node, 0, len(resp.Nodes))
	for _, n := range resp.Nodes {
		node, err := fromWire(n)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (c *Client) Initialize(value interface{}) error {
	buf, err := protocol.Marshal(value)
	if err != nil {
		return err
	}
	return c.okOrError(protocol.INIT, &protocol.InitRequest{Value: buf})
}

func (c *Client) Update(path string, value interface{}) error {
	buf, err := protocol.Marshal(value)
	if err != nil {
		return err
	}
	return c.okOrError(protocol.UPDATE, &protocol.UpdateRequest{Path: path, Value: buf})
}

func (c *Client) Delete(path string) error {
	return c.okOrError(protocol.DELETE, &protocol.DeleteRequest{Path: path})
}

// Dispatch dispatches a on the server runtime and waits until it is reduced.
func (c *Client) Dispatch(a dispatch.Action) error {
	msg := &protocol.DispatchRequest{Type: a.Type, Error: a.Error}
	if a.Payload != nil {
		buf, err := protocol.Marshal(a.Payload)
		if err != nil {
			return err
		}
		msg.Payload = buf
	}
	if a.Meta != nil {
		buf, err := protocol.Marshal(a.Meta)
		if err != nil {
			return err
		}
		msg.Meta = buf
	}
	return c.okOrError(protocol.DISPATCH, msg)
}

func (c *Client) Describe() (*Description, error) {
	result, err := c.call(protocol.DESCRIBE, &protocol.DescribeRequest{})
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*protocol.DescribeResponse)
	if !ok {
		return nil, &ResponseTypeError{reflect.TypeOf(result)}
	}
	return &Description{
		Autoincrement: resp.Autoincrement,
		Root:          table.ID(resp.Root),
		Epoch:         resp.Epoch,
		Timestamp:     time.Unix(0, resp.Timestamp),
		Readonly:      resp.Readonly,
	}, nil
}

// Tree returns a view of the subtree at path.
func (c *Client) Tree(path string) *Tree {
	return &Tree{client: c, root: path}
}
