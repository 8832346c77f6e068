package treestate

import (
	"net"
	"runtime"

	"github.com/golang/protobuf/proto"
	"github.com/kezhuw/treestate/protocol"
)

type request struct {
	Cmd   uint32
	Data  []byte
	Reply chan interface{}
}

// broker serializes requests into the router goroutine that owns the
// connection.
type broker struct {
	closed   chan interface{}
	requests chan request
}

func (b *broker) finalize() {
	close(b.requests)
}

func newBroker(cap int, conn net.Conn) *broker {
	b := &broker{
		closed:   make(chan interface{}, 1),
		requests: make(chan request, cap),
	}
	runtime.SetFinalizer(b, (*broker).finalize)
	go newRouter(cap).Serve(conn, b.requests, b.closed)
	return b
}

func encode(msg interface{}) ([]byte, error) {
	switch msg := msg.(type) {
	case nil:
		return nil, nil
	case protocol.Marshaler:
		return msg.Marshal()
	case protocol.Protobuf:
		return proto.Marshal(msg)
	}
	return nil, protocol.ErrInvalidType
}

func (b *broker) Request(reply chan interface{}, cmd uint32, msg interface{}) {
	data, err := encode(msg)
	if err != nil {
		reply <- err
		return
	}
	b.requests <- request{Cmd: cmd, Data: data, Reply: reply}
}

// Call sends msg and waits for its response.
func (b *broker) Call(cmd uint32, msg interface{}) interface{} {
	reply := make(chan interface{}, 1)
	b.Request(reply, cmd, msg)
	return <-reply
}

func (b *broker) Close() error {
	b.Request(b.closed, 0, nil)
	if err, ok := (<-b.closed).(error); ok {
		return err
	}
	return nil
}
