package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"reflect"
	"sync"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/kezhuw/neterrs"
	"github.com/kezhuw/treestate/cmd/treestated/host"
	"github.com/kezhuw/treestate/cmd/treestated/server/tip"
	"github.com/kezhuw/treestate/dispatch"
	"github.com/kezhuw/treestate/protocol"
	"github.com/kezhuw/treestate/store"
	"github.com/kezhuw/treestate/table"
	"github.com/sirupsen/logrus"
)

var ErrIncompatibleVersion = errors.New("incompatible protocol version")

type Client struct {
	id     uint64
	host   *host.Host
	logger *logrus.Logger

	conn connection
	addr net.Addr

	closed       chan struct{}
	decoder      *protocol.Decoder
	disconnected chan uint64

	maxPayload uint64

	chans  sync.Pool
	writes chan protocol.Packet
	asyncs sync.WaitGroup
}

func (c *Client) handleRead(conn connection, reads chan protocol.Packet) {
	defer close(reads)
	r := bufio.NewReader(conn)
	var err error
	var pkt protocol.Packet
	for {
		err = protocol.ReadPacketLimit(r, &pkt, c.maxPayload)
		if err != nil {
			break
		}
		reads <- pkt
		pkt.Payload = nil
	}
	switch {
	case err == io.EOF || neterrs.IsClosed(err):
		c.logger.Infof("client[%d, %s], peer closed.", c.id, c.addr)
	case err == protocol.ErrPacketTooLarge:
		c.logger.Warnf("client[%d, %s], packet exceeds %d bytes, aborting.", c.id, c.addr, c.maxPayload)
	default:
		c.logger.Warnf("client[%d, %s], peer aborted: %s.", c.id, c.addr, err)
	}
}

func (c *Client) handleWrite(conn connection, writes chan protocol.Packet) {
	defer conn.CloseWrite()
	w := bufio.NewWriter(conn)
	for pkt := range writes {
		err := protocol.WritePacket(w, &pkt)
		if err == nil && len(writes) != 0 {
			continue
		}
		if err == nil {
			err = w.Flush()
		}
		if err != nil {
			c.logger.Warnf("client[%d, %s] write error: %s", c.id, c.addr, err)
			break
		}
	}
	for range writes {
	}
	c.disconnected <- c.id
	close(c.closed)
}

func (c *Client) Start(n int) {
	c.writes = make(chan protocol.Packet, n)
	c.closed = make(chan struct{})
	go c.serve(n)
}

func (c *Client) serve(n int) {
	c.logger.Infof("client[%d, %s] serving", c.id, c.addr)
	reads := make(chan protocol.Packet, n)
	go c.handleRead(c.conn, reads)
	go c.handleWrite(c.conn, c.writes)
	defer close(c.writes)
	for pkt := range reads {
		err := c.handlePacket(pkt.Seq, pkt.Cmd, pkt.Payload)
		if err != nil {
			c.conn.CloseRead()
			go func() {
				for range reads {
				}
			}()
			c.logger.Errorf("client[%d, %s] fail to handle command %d, aborting: %s", c.id, c.addr, pkt.Cmd, err)
			break
		}
	}
	c.logger.Infof("client[%d, %s] exiting, wait for asynchrous request done", c.id, c.addr)
	c.asyncs.Wait()
	c.logger.Infof("client[%d, %s] exited.", c.id, c.addr)
}

func (c *Client) replyOk(seq uint32) {
	c.writes <- protocol.Packet{Seq: seq, Cmd: protocol.OK}
}

func (c *Client) replyEcode(seq uint32, code int, info string) {
	var msg protocol.ErrorResponse
	msg.Code = uint32(code)
	msg.Info = info
	payload, _ := proto.Marshal(&msg)
	c.replyPacket(seq, protocol.ERROR, payload)
}

// errorCode maps err to a wire error code. Path errors carry their path as
// info, others their message.
func errorCode(err error) (int, string) {
	var (
		notFound  *store.NotFoundError
		notTree   *store.NotTreeError
		exists    *store.ExistsError
		invalid   *store.InvalidPathError
		malformed *dispatch.MalformedActionError
		shape     *dispatch.ReducerShapeError
		panicked  *dispatch.ReducerPanicError
		sequence  *dispatch.SequencePanicError
	)
	switch {
	case errors.Is(err, host.ErrClosed), errors.Is(err, dispatch.ErrRuntimeClosed), errors.Is(err, store.ErrClosed):
		return protocol.EcodeShutdown, ""
	case errors.Is(err, host.ErrReadonly), errors.Is(err, table.ErrReadonly):
		return protocol.EcodeReadonly, ""
	case errors.Is(err, host.ErrUnknownCommand):
		return protocol.EcodeUnknownRequest, ""
	case errors.Is(err, store.ErrInvalidValue):
		return protocol.EcodeInvalidValue, err.Error()
	case errors.As(err, &notFound):
		return protocol.EcodePathNotFound, notFound.Path
	case errors.As(err, &notTree):
		return protocol.EcodePathNotTree, notTree.Path
	case errors.As(err, &exists):
		return protocol.EcodePathExists, exists.Path
	case errors.As(err, &invalid):
		return protocol.EcodeInvalidPath, invalid.Path
	case errors.As(err, &malformed):
		return protocol.EcodeMalformedAction, err.Error()
	case errors.As(err, &shape), errors.As(err, &panicked), errors.As(err, &sequence):
		return protocol.EcodeReducerFailure, err.Error()
	}
	return protocol.EcodeInternalError, err.Error()
}

func (c *Client) replyError(seq uint32, err error) {
	code, info := errorCode(err)
	if code == protocol.EcodeInternalError {
		c.logger.Errorf("client[%d, %s] request %d internal error: %s", c.id, c.addr, seq, err)
	}
	c.replyEcode(seq, code, info)
}

func (c *Client) replyPacket(seq, cmd uint32, payload []byte) {
	c.writes <- protocol.Packet{Seq: seq, Cmd: cmd, Payload: payload}
}

func (c *Client) replyMessage(seq, cmd uint32, msg proto.Message) {
	payload, err := proto.Marshal(msg)
	if err != nil {
		c.logger.Errorf("client[%d, %s] fail to marshal message %s: %s", c.id, c.addr, proto.MessageName(msg), msg)
		c.replyEcode(seq, protocol.EcodeInternalError, err.Error())
		return
	}
	c.writes <- protocol.Packet{Seq: seq, Cmd: cmd, Payload: payload}
}

func (c *Client) waitResult(reply chan interface{}, info fmt.Stringer, tick time.Duration) interface{} {
	defer c.chans.Put(reply)
	if tick == 0 {
		return <-reply
	}

	var n int
	var elapsed time.Duration
	logging := c.logger.Warnf
	for {
		select {
		case result := <-reply:
			return result
		case <-time.After(tick):
			n++
			elapsed += tick
			if n == 5 {
				logging = c.logger.Errorf
			}
			logging("client[%d, %s]: %s wait response, elapsed %s", c.id, c.addr, info, elapsed)
			tick += tick / 2
		}
	}
}

// request forwards cmd to the host and answers seq asynchronously. Errors
// are replied directly; other results go through respond.
func (c *Client) request(seq uint32, info fmt.Stringer, cmd host.Command, respond func(seq uint32, result interface{})) {
	reply := c.chans.Get().(chan interface{})
	c.host.Request(reply, cmd)
	c.asyncs.Add(1)
	go func() {
		defer c.asyncs.Done()
		switch result := c.waitResult(reply, info, time.Second).(type) {
		case error:
			c.replyError(seq, result)
		default:
			respond(seq, result)
		}
	}()
}

func (c *Client) respondOk(seq uint32, result interface{}) {
	c.replyOk(seq)
}

func (c *Client) respondGet(seq uint32, result interface{}) {
	value, err := protocol.Marshal(result)
	if err != nil {
		c.replyError(seq, err)
		return
	}
	c.replyMessage(seq, protocol.GET, &protocol.GetResponse{Value: value})
}

func (c *Client) unexpected(seq uint32, result interface{}) {
	c.replyEcode(seq, protocol.EcodeInternalError, "unexpected response")
	c.logger.Errorf("client[%d, %s] unexpected response of Go type: %s", c.id, c.addr, reflect.TypeOf(result))
}

func toWire(n *table.Node) (*protocol.Node, error) {
	msg := &protocol.Node{
		Id:     uint64(n.ID),
		Key:    n.Key,
		Parent: uint64(n.Parent),
		Left:   uint64(n.Left),
		Right:  uint64(n.Right),
		Kind:   uint32(n.Kind),
		Marker: n.Marker,
	}
	if !n.IsContainer() {
		data, err := protocol.Marshal(n.Data)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return msg, nil
}

func (c *Client) respondFind(seq uint32, result interface{}) {
	n, ok := result.(*table.Node)
	if !ok {
		c.unexpected(seq, result)
		return
	}
	msg, err := toWire(n)
	if err != nil {
		c.replyError(seq, err)
		return
	}
	c.replyMessage(seq, protocol.FIND, &protocol.FindResponse{Node: msg})
}

func (c *Client) respondChildren(seq uint32, result interface{}) {
	nodes, ok := result.([]*table.Node)
	if !ok && result != nil {
		c.unexpected(seq, result)
		return
	}
	var resp protocol.ChildrenResponse
	for _, n := range nodes {
		msg, err := toWire(n)
		if err != nil {
			c.replyError(seq, err)
			return
		}
		resp.Nodes = append(resp.Nodes, msg)
	}
	c.replyMessage(seq, protocol.CHILDREN, &resp)
}

func (c *Client) respondDescribe(seq uint32, result interface{}) {
	desc, ok := result.(*host.Description)
	if !ok {
		c.unexpected(seq, result)
		return
	}
	c.replyMessage(seq, protocol.DESCRIBE, &protocol.DescribeResponse{
		Autoincrement: desc.Autoincrement,
		Root:          uint64(desc.Root),
		Epoch:         desc.Epoch,
		Timestamp:     desc.Timestamp.UnixNano(),
		Readonly:      desc.Readonly,
	})
}

var handlers = make(map[uint32]reflect.Value)

func regMessageHandler(cmd uint32, callback interface{}) {
	handlers[cmd] = reflect.ValueOf(callback)
}

func init() {
	regMessageHandler(protocol.GET, (*Client).handleCommandGet)
	regMessageHandler(protocol.FIND, (*Client).handleCommandFind)
	regMessageHandler(protocol.CHILDREN, (*Client).handleCommandChildren)
	regMessageHandler(protocol.INIT, (*Client).handleCommandInit)
	regMessageHandler(protocol.UPDATE, (*Client).handleCommandUpdate)
	regMessageHandler(protocol.DELETE, (*Client).handleCommandDelete)
	regMessageHandler(protocol.DISPATCH, (*Client).handleCommandDispatch)
	regMessageHandler(protocol.DESCRIBE, (*Client).handleCommandDescribe)
}

func (c *Client) call(f reflect.Value, seq uint32, msg interface{}) error {
	results := f.Call([]reflect.Value{reflect.ValueOf(c), reflect.ValueOf(seq), reflect.ValueOf(msg)})
	if len(results) == 0 {
		return nil
	}
	switch result := results[0].Interface().(type) {
	case nil:
		return nil
	case error:
		return result
	default:
		return fmt.Errorf("unexpected return type from message handling: %s", reflect.TypeOf(result))
	}
}

var (
	errDecoderNone     = errors.New("no protocol decoder selected")
	errDecoderSelected = errors.New("protocol decoder selected")
)

func (c *Client) handlePacket(seq, cmd uint32, payload []byte) error {
	switch {
	case cmd == protocol.HANDSHAKE:
		return c.handleHandshake(seq, payload)
	case c.decoder == nil:
		return errDecoderNone
	}
	f, ok := handlers[cmd]
	if !ok || !c.decoder.Registered(cmd) {
		c.replyEcode(seq, protocol.EcodeUnknownRequest, "")
		return nil
	}
	msg, err := c.decoder.Unmarshal(cmd, payload)
	if err != nil {
		c.replyEcode(seq, protocol.EcodeInvalidMessage, err.Error())
		return nil
	}
	return c.call(f, seq, msg)
}

func (c *Client) handleCommandGet(seq uint32, msg *protocol.GetRequest) error {
	c.request(seq, msg, &host.GetCommand{Path: msg.Path}, c.respondGet)
	return nil
}

func (c *Client) handleCommandFind(seq uint32, msg *protocol.FindRequest) error {
	c.request(seq, msg, &host.FindCommand{Path: msg.Path}, c.respondFind)
	return nil
}

func (c *Client) handleCommandChildren(seq uint32, msg *protocol.ChildrenRequest) error {
	c.request(seq, msg, &host.ChildrenCommand{Path: msg.Path}, c.respondChildren)
	return nil
}

func (c *Client) handleCommandInit(seq uint32, msg *protocol.InitRequest) error {
	value, err := protocol.Unmarshal(msg.Value)
	if err != nil {
		c.replyEcode(seq, protocol.EcodeInvalidValue, err.Error())
		return nil
	}
	c.request(seq, msg, &host.InitCommand{Value: value}, c.respondOk)
	return nil
}

func (c *Client) handleCommandUpdate(seq uint32, msg *protocol.UpdateRequest) error {
	value, err := protocol.Unmarshal(msg.Value)
	if err != nil {
		c.replyEcode(seq, protocol.EcodeInvalidValue, err.Error())
		return nil
	}
	c.request(seq, msg, &host.UpdateCommand{Path: msg.Path, Value: value}, c.respondOk)
	return nil
}

func (c *Client) handleCommandDelete(seq uint32, msg *protocol.DeleteRequest) error {
	c.request(seq, msg, &host.DeleteCommand{Path: msg.Path}, c.respondOk)
	return nil
}

func unmarshalOptional(buf []byte) (interface{}, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	return protocol.Unmarshal(buf)
}

func (c *Client) handleCommandDispatch(seq uint32, msg *protocol.DispatchRequest) error {
	payload, err := unmarshalOptional(msg.Payload)
	if err != nil {
		c.replyEcode(seq, protocol.EcodeInvalidValue, err.Error())
		return nil
	}
	meta, err := unmarshalOptional(msg.Meta)
	if err != nil {
		c.replyEcode(seq, protocol.EcodeInvalidValue, err.Error())
		return nil
	}
	action := dispatch.Action{Type: msg.Type, Payload: payload, Error: msg.Error, Meta: meta}
	c.request(seq, msg, &host.DispatchCommand{Action: action}, c.respondOk)
	return nil
}

func (c *Client) handleCommandDescribe(seq uint32, msg *protocol.DescribeRequest) error {
	c.request(seq, msg, &host.DescribeCommand{}, c.respondDescribe)
	return nil
}

func (c *Client) handleHandshake(seq uint32, payload []byte) error {
	if c.decoder != nil {
		return errDecoderSelected
	}
	var handshake protocol.HandshakeRequest
	err := handshake.Unmarshal(payload)
	if err != nil {
		return err
	}
	c.replyPacket(seq, protocol.HANDSHAKE, tip.HandshakeReplyPayload)
	for _, v := range handshake.Versions {
		if v == tip.Version {
			c.decoder = &tip.Decoder
			return nil
		}
	}
	return ErrIncompatibleVersion
}

func NewClient(id uint64, conn connection, h *host.Host, logger *logrus.Logger, disconnected chan uint64) *Client {
	c := &Client{
		id:           id,
		host:         h,
		conn:         conn,
		addr:         conn.RemoteAddr(),
		logger:       logger,
		closed:       make(chan struct{}),
		disconnected: disconnected,
		maxPayload:   protocol.DefaultMaxPayloadSize,
	}
	c.chans.New = func() interface{} { return make(chan interface{}, 1) }
	return c
}

// Shutdown stops reading requests and waits for pending replies to be
// written. After timeout the connection is closed forcibly.
func (c *Client) Shutdown(timeout time.Duration) {
	c.logger.Infof("client[%d, %s] shutting down", c.id, c.addr)
	c.conn.CloseRead()
	select {
	case <-c.closed:
	case <-time.After(timeout):
		c.logger.Warnf("client[%d, %s] not done after %s, closing forcibly", c.id, c.addr, timeout)
		c.conn.Close()
		<-c.closed
	}
	c.conn.Close()
	c.logger.Infof("client[%d, %s] shut down", c.id, c.addr)
}
