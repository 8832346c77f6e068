package table

import (
	"github.com/kezhuw/treestate/protocol"
	"golang.org/x/xerrors"
)

var ErrCorruptedNode = xerrors.New("treestate/table: corrupted node")

// Encode serializes every field of n except its id, which durable tables
// keep in the record key.
func Encode(n *Node) ([]byte, error) {
	var buf protocol.Buffer
	buf.WriteString(n.Key)
	buf.WriteUvarint(uint64(n.Parent))
	buf.WriteUvarint(uint64(n.Left))
	buf.WriteUvarint(uint64(n.Right))
	buf.WriteByte(byte(n.Kind))
	buf.WriteUvarint(n.Marker)
	if err := buf.WriteValue(n.Data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Decode(id ID, b []byte) (*Node, error) {
	r := protocol.NewReader(b)
	n := &Node{ID: id}
	var err error
	if n.Key, err = r.ReadString(); err != nil {
		return nil, xerrors.Errorf("%w: node %d key: %v", ErrCorruptedNode, id, err)
	}
	var links [3]uint64
	for i := range links {
		if links[i], err = r.ReadUvarint(); err != nil {
			return nil, xerrors.Errorf("%w: node %d links: %v", ErrCorruptedNode, id, err)
		}
	}
	n.Parent, n.Left, n.Right = ID(links[0]), ID(links[1]), ID(links[2])
	kind, err := r.ReadByte()
	if err != nil || Kind(kind) > KindArray {
		return nil, xerrors.Errorf("%w: node %d kind", ErrCorruptedNode, id)
	}
	n.Kind = Kind(kind)
	if n.Marker, err = r.ReadUvarint(); err != nil {
		return nil, xerrors.Errorf("%w: node %d marker: %v", ErrCorruptedNode, id, err)
	}
	if n.Data, err = r.ReadValue(); err != nil {
		return nil, xerrors.Errorf("%w: node %d data: %v", ErrCorruptedNode, id, err)
	}
	if len(r.Bytes()) != 0 {
		return nil, xerrors.Errorf("%w: node %d trailing bytes", ErrCorruptedNode, id)
	}
	return n, nil
}
