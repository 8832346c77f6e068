package treestate

import (
	"net"
	"strings"
	"time"
)

type ServerAddressError struct {
	Addr string
}

func (e *ServerAddressError) Error() string {
	return "treestate: invalid server address: " + e.Addr
}

// dial connects to "network://address", or to a tcp address.
func dial(addr string, timeout time.Duration) (net.Conn, error) {
	network, address := "tcp", addr
	switch parts := strings.Split(addr, "://"); len(parts) {
	case 1:
	case 2:
		network, address = parts[0], parts[1]
	default:
		return nil, &ServerAddressError{addr}
	}
	if address == "" {
		return nil, &ServerAddressError{addr}
	}
	return net.DialTimeout(network, address, timeout)
}
