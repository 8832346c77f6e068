package tip

import (
	"github.com/kezhuw/treestate/protocol"
	"github.com/kezhuw/treestate/v0"
)

const Version = v0.Version

var HandshakeReplyPayload = func() []byte {
	var msg protocol.HandshakeResponse
	msg.Version = Version
	payload, err := msg.Marshal()
	if err != nil {
		panic(err)
	}
	return payload
}()
