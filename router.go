package treestate

import (
	"net"

	"github.com/kezhuw/treestate/protocol"
	"github.com/kezhuw/treestate/v0"
)

type router struct {
	r *packetReader
	w *packetWriter
}

func newRouter(cap int) *router {
	return &router{r: newPacketReader(cap), w: newPacketWriter(cap)}
}

func deliver(f *inflight, pkt protocol.Packet) {
	reply := f.Take(pkt.Seq)
	if reply == nil {
		return
	}
	go decodeResponse(reply, pkt.Cmd, pkt.Payload)
}

func decodeResponse(reply chan interface{}, cmd uint32, payload []byte) {
	msg, err := v0.Decoder.Unmarshal(cmd, payload)
	if err != nil {
		reply <- err
		return
	}
	switch msg := msg.(type) {
	case *protocol.OkResponse:
		reply <- nil
	case *protocol.ErrorResponse:
		reply <- &protocol.Error{Code: int(msg.Code), Info: msg.Info}
	default:
		reply <- msg
	}
}

func drainRequests(reqs chan request, err error) {
	for req := range reqs {
		req.Reply <- err
	}
}

func waitResponses(f *inflight, packets chan protocol.Packet, failures chan uint32, err error) {
	for packets != nil || failures != nil {
		select {
		case pkt, ok := <-packets:
			if !ok {
				packets = nil
				continue
			}
			deliver(f, pkt)
		case seq, ok := <-failures:
			if !ok {
				failures = nil
				continue
			}
			f.Fail(seq, err)
		}
	}
	f.FailAll(err)
}

// Serve owns the connection: it writes requests, matches responses by
// sequence and fails pending requests once either direction breaks.
func (ru *router) Serve(conn net.Conn, requests chan request, closed chan interface{}) {
	defer conn.Close()
	go ru.r.Serve(conn)
	go ru.w.Serve(conn)

	r, w := ru.r, ru.w
	f := newInflight(cap(requests))
	for {
		select {
		case req, ok := <-requests:
			switch {
			case !ok:
				w.Close()
				waitResponses(f, r.Packets, w.Failures, ErrClientClosed)
				return
			case req.Reply == closed:
				req.Reply <- nil
				go drainRequests(requests, ErrClientClosed)
				w.Close()
				waitResponses(f, r.Packets, w.Failures, ErrClientClosed)
				return
			default:
				w.Packets <- protocol.Packet{Seq: f.Add(req.Reply), Cmd: req.Cmd, Payload: req.Data}
			}
		case pkt, ok := <-r.Packets:
			if !ok {
				go drainRequests(requests, r.Err)
				w.Close()
				waitResponses(f, nil, w.Failures, r.Err)
				return
			}
			deliver(f, pkt)
		case seq := <-w.Failures:
			f.Fail(seq, w.Err)
			go drainRequests(requests, w.Err)
			w.Close()
			waitResponses(f, r.Packets, w.Failures, w.Err)
			return
		}
	}
}
