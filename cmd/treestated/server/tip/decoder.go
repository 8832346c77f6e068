package tip

import "github.com/kezhuw/treestate/protocol"

var Decoder protocol.Decoder

func init() {
	Decoder.Register(protocol.GET, (*protocol.GetRequest)(nil))
	Decoder.Register(protocol.FIND, (*protocol.FindRequest)(nil))
	Decoder.Register(protocol.CHILDREN, (*protocol.ChildrenRequest)(nil))
	Decoder.Register(protocol.INIT, (*protocol.InitRequest)(nil))
	Decoder.Register(protocol.UPDATE, (*protocol.UpdateRequest)(nil))
	Decoder.Register(protocol.DELETE, (*protocol.DeleteRequest)(nil))
	Decoder.Register(protocol.DISPATCH, (*protocol.DispatchRequest)(nil))
	Decoder.Register(protocol.DESCRIBE, (*protocol.DescribeRequest)(nil))
}
