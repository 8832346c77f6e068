// Package v0 decodes responses of protocol version 0.
package v0

import "github.com/kezhuw/treestate/protocol"

const Version = 0

var Decoder protocol.Decoder

func init() {
	Decoder.Register(protocol.GET, (*protocol.GetResponse)(nil))
	Decoder.Register(protocol.FIND, (*protocol.FindResponse)(nil))
	Decoder.Register(protocol.CHILDREN, (*protocol.ChildrenResponse)(nil))
	Decoder.Register(protocol.DESCRIBE, (*protocol.DescribeResponse)(nil))

	Decoder.Register(protocol.OK, (*protocol.OkResponse)(nil))
	Decoder.Register(protocol.ERROR, (*protocol.ErrorResponse)(nil))
	Decoder.Register(protocol.HANDSHAKE, (*protocol.HandshakeResponse)(nil))
}
