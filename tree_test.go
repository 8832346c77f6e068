package treestate

import (
	"testing"

	"github.com/kezhuw/treestate/protocol"
	"github.com/kezhuw/treestate/store"
	"github.com/stretchr/testify/require"
)

func TestTreePath(t *testing.T) {
	c := &Client{}
	root := c.Tree("")
	require.Equal(t, "a.b", root.path("a.b"))
	require.Equal(t, "", root.path(""))

	users := c.Tree("users")
	require.Equal(t, "users", users.Root())
	require.Equal(t, "users", users.path(""))
	require.Equal(t, "users.ann", users.path("ann"))
	require.Equal(t, "users.ann.age", users.Tree("ann").path("age"))
}

func TestDialAddress(t *testing.T) {
	for _, addr := range []string{"tcp://", "a://b://c", ""} {
		_, err := dial(addr, 0)
		require.IsType(t, &ServerAddressError{}, err, addr)
	}
}

func TestRemoteError(t *testing.T) {
	require.Equal(t, &store.NotFoundError{Path: "a.b"}, remoteError(&protocol.Error{Code: protocol.EcodePathNotFound, Info: "a.b"}))
	require.Equal(t, &store.NotTreeError{Path: "a"}, remoteError(&protocol.Error{Code: protocol.EcodePathNotTree, Info: "a"}))
	require.Equal(t, &store.ExistsError{Path: "x"}, remoteError(&protocol.Error{Code: protocol.EcodePathExists, Info: "x"}))
	require.Equal(t, &store.InvalidPathError{Path: "."}, remoteError(&protocol.Error{Code: protocol.EcodeInvalidPath, Info: "."}))

	e := &protocol.Error{Code: protocol.EcodeReadonly}
	require.Equal(t, e, remoteError(e))
}

func TestClosedClient(t *testing.T) {
	c := &Client{closed: make(chan struct{})}
	close(c.closed)
	require.NoError(t, c.Close())
	_, err := c.Get("a")
	require.Equal(t, ErrClientClosed, err)
}
