package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	// PacketHeadSize is the size of the sequence, command and payload length
	// prefix of every packet.
	PacketHeadSize = 16

	// DefaultMaxPayloadSize bounds payloads read by ReadPacket.
	DefaultMaxPayloadSize = 64 << 20
)

// ErrPacketTooLarge is returned for a packet whose declared payload exceeds
// the read limit. The stream is not resynchronizable afterwards.
var ErrPacketTooLarge = errors.New("treestate/protocol: packet payload too large")

type Packet struct {
	Seq     uint32
	Cmd     uint32
	Payload []byte
}

// PacketHead is the fixed size prefix of a packet.
type PacketHead [PacketHeadSize]byte

func (h *PacketHead) Seq() uint32 {
	return binary.LittleEndian.Uint32(h[0:4])
}

func (h *PacketHead) Cmd() uint32 {
	return binary.LittleEndian.Uint32(h[4:8])
}

func (h *PacketHead) PayloadSize() uint64 {
	return binary.LittleEndian.Uint64(h[8:16])
}

func (h *PacketHead) encode(pkt *Packet) {
	binary.LittleEndian.PutUint32(h[0:4], pkt.Seq)
	binary.LittleEndian.PutUint32(h[4:8], pkt.Cmd)
	binary.LittleEndian.PutUint64(h[8:16], uint64(len(pkt.Payload)))
}

// ReadPacket reads one packet with payloads up to DefaultMaxPayloadSize.
func ReadPacket(r io.Reader, pkt *Packet) error {
	return ReadPacketLimit(r, pkt, DefaultMaxPayloadSize)
}

// ReadPacketLimit reads one packet into pkt. A clean end of stream before
// the head yields io.EOF. The payload is allocated only after its declared
// size is checked against limit.
func ReadPacketLimit(r io.Reader, pkt *Packet, limit uint64) error {
	var head PacketHead
	n, err := io.ReadFull(r, head[:])
	if err != nil {
		if err == io.ErrUnexpectedEOF && n == 0 {
			err = io.EOF
		}
		return err
	}
	size := head.PayloadSize()
	if size > limit {
		return ErrPacketTooLarge
	}
	var payload []byte
	if size != 0 {
		payload = make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
	}
	pkt.Seq, pkt.Cmd, pkt.Payload = head.Seq(), head.Cmd(), payload
	return nil
}

func WritePacket(w io.Writer, pkt *Packet) error {
	var head PacketHead
	head.encode(pkt)
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	if len(pkt.Payload) == 0 {
		return nil
	}
	_, err := w.Write(pkt.Payload)
	return err
}
