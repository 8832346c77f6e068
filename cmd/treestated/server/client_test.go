package server

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kezhuw/treestate/protocol"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var errBrokenPipe = errors.New("broken pipe")

// brokenConn fails every write.
type brokenConn struct {
	net.Conn

	mu     sync.Mutex
	writes int
}

func (c *brokenConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	return 0, errBrokenPipe
}

func (c *brokenConn) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func (c *brokenConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7000}
}

func (c *brokenConn) CloseRead() error  { return nil }
func (c *brokenConn) CloseWrite() error { return nil }

func TestWriteFailureStopsWriter(t *testing.T) {
	var logs bytes.Buffer
	logger := logrus.New()
	logger.Out = &logs

	conn := &brokenConn{}
	disconnected := make(chan uint64, 1)
	c := NewClient(7, conn, nil, logger, disconnected)

	writes := make(chan protocol.Packet, 8)
	for i := 0; i < cap(writes); i++ {
		writes <- protocol.Packet{Seq: uint32(i), Cmd: protocol.OK, Payload: make([]byte, 8192)}
	}
	close(writes)
	go c.handleWrite(conn, writes)

	select {
	case id := <-disconnected:
		require.Equal(t, uint64(7), id)
	case <-time.After(5 * time.Second):
		t.Fatal("writer did not report disconnection")
	}
	<-c.closed
	require.Equal(t, 1, conn.Writes())
	require.Equal(t, 1, strings.Count(logs.String(), "write error"))
}
