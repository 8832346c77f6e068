package server

import (
	"fmt"
	"net"
	"strings"

	"github.com/kezhuw/neterrs"
	"github.com/sirupsen/logrus"
)

type listener struct {
	addr     string
	logger   *logrus.Logger
	clients  chan<- connection
	listener net.Listener
	closed   chan struct{}
}

func listen(addr string, logger *logrus.Logger, clients chan<- connection) (*listener, error) {
	i := strings.Index(addr, "://")
	if i == -1 {
		return nil, fmt.Errorf("invalid listen address: %s", addr)
	}
	l, err := net.Listen(addr[:i], addr[i+len("://"):])
	if err != nil {
		return nil, err
	}
	return &listener{
		addr:     addr,
		logger:   logger,
		clients:  clients,
		listener: l,
		closed:   make(chan struct{}),
	}, nil
}

// Addr returns the bound address in listen syntax.
func (l *listener) Addr() string {
	a := l.listener.Addr()
	return a.Network() + "://" + a.String()
}

func (l *listener) Serve() {
	defer close(l.closed)
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if !neterrs.IsClosed(err) {
				l.logger.Errorf("listener[%s] accept error: %s", l.addr, err)
			}
			break
		}
		c, ok := conn.(connection)
		if !ok {
			l.logger.Errorf("listener[%s] drop %s: no half close support", l.addr, conn.RemoteAddr())
			conn.Close()
			continue
		}
		l.logger.Infof("listener[%s] new client come from %s", l.addr, conn.RemoteAddr())
		l.clients <- c
	}
}

func (l *listener) Close() {
	l.listener.Close()
	<-l.closed
}
