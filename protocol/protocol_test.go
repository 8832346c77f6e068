package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"
)

func TestValueCodec(t *testing.T) {
	value := map[string]interface{}{
		"name":   "treestate",
		"count":  int64(-3),
		"size":   uint64(1 << 40),
		"ratio":  0.25,
		"ok":     true,
		"none":   nil,
		"blob":   []byte{0, 1, 2},
		"list":   []interface{}{"a", int64(1), false},
		"nested": map[string]interface{}{"": "empty key"},
	}
	buf, err := Marshal(value)
	require.NoError(t, err)
	decoded, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, value, decoded)
}

func TestValueCodecNormalizesGoKinds(t *testing.T) {
	buf, err := Marshal([]int{1, 2})
	require.NoError(t, err)
	decoded, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(1), int64(2)}, decoded)

	_, err = Marshal(map[int]string{1: "a"})
	require.Equal(t, ErrInvalidType, err)

	_, err = Marshal(struct{}{})
	require.Equal(t, ErrInvalidType, err)
}

func TestValueCodecDeterministic(t *testing.T) {
	m := map[string]interface{}{"b": int64(1), "a": int64(2), "c": int64(3)}
	first, err := Marshal(m)
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		again, err := Marshal(m)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	buf, err := Marshal("abc")
	require.NoError(t, err)

	_, err = Unmarshal(buf[:len(buf)-1])
	require.Equal(t, io.ErrUnexpectedEOF, err)

	_, err = Unmarshal(append(buf, 0))
	require.Equal(t, ErrExtraBytes, err)

	_, err = Unmarshal([]byte{0xff})
	require.Error(t, err)

	_, err = Unmarshal([]byte{FieldArray, 0x7f})
	require.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestPacket(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePacket(&buf, &Packet{Seq: 7, Cmd: GET, Payload: []byte("payload")}))
	require.NoError(t, WritePacket(&buf, &Packet{Seq: 8, Cmd: OK}))
	require.Equal(t, 2*PacketHeadSize+len("payload"), buf.Len())

	var pkt Packet
	require.NoError(t, ReadPacket(&buf, &pkt))
	require.Equal(t, uint32(7), pkt.Seq)
	require.Equal(t, uint32(GET), pkt.Cmd)
	require.Equal(t, []byte("payload"), pkt.Payload)

	pkt = Packet{}
	require.NoError(t, ReadPacket(&buf, &pkt))
	require.Equal(t, uint32(8), pkt.Seq)
	require.Nil(t, pkt.Payload)

	require.Equal(t, io.EOF, ReadPacket(&buf, &pkt))
}

func TestPacketClearsStalePayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePacket(&buf, &Packet{Seq: 1, Cmd: OK}))

	pkt := Packet{Payload: []byte("stale")}
	require.NoError(t, ReadPacket(&buf, &pkt))
	require.Equal(t, uint32(1), pkt.Seq)
	require.Nil(t, pkt.Payload)
}

func TestPacketTooLarge(t *testing.T) {
	var head PacketHead
	head.encode(&Packet{Seq: 3, Cmd: GET})
	binary.LittleEndian.PutUint64(head[8:], 1<<62)

	var pkt Packet
	err := ReadPacket(bytes.NewReader(head[:]), &pkt)
	require.Equal(t, ErrPacketTooLarge, err)
	require.Nil(t, pkt.Payload)

	var buf bytes.Buffer
	require.NoError(t, WritePacket(&buf, &Packet{Seq: 4, Cmd: GET, Payload: make([]byte, 9)}))
	raw := buf.Bytes()
	require.Equal(t, ErrPacketTooLarge, ReadPacketLimit(bytes.NewReader(raw), &pkt, 8))
	require.NoError(t, ReadPacketLimit(bytes.NewReader(raw), &pkt, 9))
	require.Equal(t, uint32(4), pkt.Seq)
	require.Len(t, pkt.Payload, 9)
}

func TestPacketTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePacket(&buf, &Packet{Seq: 5, Cmd: GET, Payload: []byte("payload")}))
	raw := buf.Bytes()

	var pkt Packet
	require.Equal(t, io.ErrUnexpectedEOF, ReadPacket(bytes.NewReader(raw[:PacketHeadSize]), &pkt))
	require.Equal(t, io.ErrUnexpectedEOF, ReadPacket(bytes.NewReader(raw[:PacketHeadSize-1]), &pkt))
}

func TestHandshake(t *testing.T) {
	req := &HandshakeRequest{Versions: []uint32{0, 3}}
	buf, err := req.Marshal()
	require.NoError(t, err)

	var decoded HandshakeRequest
	require.NoError(t, decoded.Unmarshal(buf))
	require.Equal(t, req.Versions, decoded.Versions)
	require.Error(t, decoded.Unmarshal(nil))
	require.Error(t, decoded.Unmarshal(append(buf, 1)))

	_, err = (&HandshakeRequest{}).Marshal()
	require.Error(t, err)

	resp := &HandshakeResponse{Version: 5}
	buf, err = resp.Marshal()
	require.NoError(t, err)
	var decodedResp HandshakeResponse
	require.NoError(t, decodedResp.Unmarshal(buf))
	require.Equal(t, uint32(5), decodedResp.Version)
	require.Equal(t, io.ErrUnexpectedEOF, decodedResp.Unmarshal(buf[:2]))
}

func TestDecoder(t *testing.T) {
	var d Decoder
	d.Register(HANDSHAKE, (*HandshakeResponse)(nil))
	d.Register(FIND, (*FindResponse)(nil))
	require.True(t, d.Registered(FIND))
	require.False(t, d.Registered(GET))
	require.Panics(t, func() { d.Register(FIND, (*FindResponse)(nil)) })

	payload, err := proto.Marshal(&FindResponse{Node: &Node{Id: 3, Key: "a", Parent: 1, Marker: 9}})
	require.NoError(t, err)
	msg, err := d.Unmarshal(FIND, payload)
	require.NoError(t, err)
	resp, ok := msg.(*FindResponse)
	require.True(t, ok)
	require.Equal(t, uint64(3), resp.Node.Id)
	require.Equal(t, "a", resp.Node.Key)
	require.Equal(t, uint64(9), resp.Node.Marker)

	_, err = d.Unmarshal(GET, nil)
	require.Equal(t, ErrNoUnmarshaler, err)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Code: EcodePathNotFound, Info: "a.b"}
	require.Equal(t, "treestate: not found, info: a.b", err.Error())
	require.Equal(t, "treestate: unknown error code: 99", (&Error{Code: 99}).Error())
}
