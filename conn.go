package treestate

import (
	"bufio"
	"io"
	"net"

	"github.com/kezhuw/treestate/protocol"
)

type packetReader struct {
	Err     error
	Packets chan protocol.Packet
}

func newPacketReader(cap int) *packetReader {
	return &packetReader{Packets: make(chan protocol.Packet, cap)}
}

func (pr *packetReader) Serve(conn net.Conn) {
	defer close(pr.Packets)
	r := bufio.NewReader(conn)
	for {
		var pkt protocol.Packet
		if err := protocol.ReadPacket(r, &pkt); err != nil {
			if err == io.EOF {
				err = ErrServerClosed
			}
			pr.Err = err
			return
		}
		pr.Packets <- pkt
	}
}

// packetWriter reports the sequence of every packet it failed to write
// through Failures.
type packetWriter struct {
	Err      error
	Failures chan uint32
	Packets  chan protocol.Packet
}

func newPacketWriter(cap int) *packetWriter {
	return &packetWriter{
		Failures: make(chan uint32, 16),
		Packets:  make(chan protocol.Packet, cap),
	}
}

type writeCloser interface {
	CloseWrite() error
}

func (pw *packetWriter) Serve(conn net.Conn) {
	defer close(pw.Failures)
	defer func() {
		if c, ok := conn.(writeCloser); ok {
			c.CloseWrite()
		}
	}()
	w := bufio.NewWriter(conn)
	for pkt := range pw.Packets {
		err := protocol.WritePacket(w, &pkt)
		if err == nil {
			err = w.Flush()
		}
		if err != nil {
			pw.Err = err
			pw.Failures <- pkt.Seq
			for pkt := range pw.Packets {
				pw.Failures <- pkt.Seq
			}
			return
		}
	}
}

func (pw *packetWriter) Close() {
	close(pw.Packets)
}

// inflight maps request sequences to reply channels.
type inflight struct {
	seq     uint32
	replies map[uint32]chan interface{}
}

func newInflight(cap int) *inflight {
	return &inflight{replies: make(map[uint32]chan interface{}, cap)}
}

func (f *inflight) Add(reply chan interface{}) uint32 {
	f.seq++
	f.replies[f.seq] = reply
	return f.seq
}

func (f *inflight) Take(seq uint32) chan interface{} {
	reply, ok := f.replies[seq]
	if ok {
		delete(f.replies, seq)
	}
	return reply
}

func (f *inflight) Fail(seq uint32, err error) {
	if reply := f.Take(seq); reply != nil {
		reply <- err
	}
}

func (f *inflight) FailAll(err error) {
	for seq, reply := range f.replies {
		reply <- err
		delete(f.replies, seq)
	}
}
