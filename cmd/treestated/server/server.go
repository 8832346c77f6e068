package server

import (
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kezhuw/treestate/cmd/treestated/config"
	"github.com/kezhuw/treestate/cmd/treestated/host"
	"github.com/sirupsen/logrus"
)

type connection interface {
	net.Conn
	CloseRead() error
	CloseWrite() error
}

type Server struct {
	host      *host.Host
	netLogger *logrus.Logger

	clientId        uint64
	clients         map[uint64]*Client
	concurrents     int
	maxPayload      uint64
	shutdownTimeout time.Duration
	disconnected    chan uint64

	incomings chan connection
	listeners []*listener

	signalc      chan os.Signal
	shuttingDown bool
}

// Listen binds every configured address. The server takes ownership of h
// and closes it when Serve returns.
func Listen(cfg *config.Config, h *host.Host, logger *logrus.Logger) (s *Server, err error) {
	incomings := make(chan connection, 128)
	listeners := make([]*listener, 0, len(cfg.Listens))
	defer func() {
		if err != nil {
			for _, l := range listeners {
				l.listener.Close()
			}
		}
	}()
	for _, addr := range cfg.Listens {
		l, err := listen(addr, logger, incomings)
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, l)
	}

	sigc := make(chan os.Signal, 8)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	return &Server{
		host:            h,
		disconnected:    make(chan uint64, 128),
		incomings:       incomings,
		clients:         make(map[uint64]*Client),
		concurrents:     cfg.ConcurrentRequests,
		maxPayload:      uint64(cfg.MaxPayloadSize),
		shutdownTimeout: time.Duration(cfg.ShutdownTimeout),
		listeners:       listeners,
		netLogger:       logger,
		signalc:         sigc,
	}, nil
}

// Addrs returns the bound listen addresses.
func (s *Server) Addrs() []string {
	addrs := make([]string, 0, len(s.listeners))
	for _, l := range s.listeners {
		addrs = append(addrs, l.Addr())
	}
	return addrs
}

// Shutdown stops accepting connections and closes online clients. Serve
// returns once all of them are gone.
func (s *Server) Shutdown() {
	s.signalc <- syscall.SIGTERM
}

func (s *Server) Serve() {
	defer s.host.Close()
	defer signal.Stop(s.signalc)

	for _, l := range s.listeners {
		go l.Serve()
	}

	incomings := s.incomings
	for {
		select {
		case conn, ok := <-incomings:
			switch ok {
			case true:
				s.clientId++
				c := NewClient(s.clientId, conn, s.host, s.netLogger, s.disconnected)
				c.maxPayload = s.maxPayload
				c.Start(s.concurrents)
				s.clients[s.clientId] = c
			case false:
				incomings = nil
				go s.closeClients(s.clients)
				s.clients = nil
			}
		case id, ok := <-s.disconnected:
			switch ok {
			case true:
				if c, ok := s.clients[id]; ok {
					c.conn.Close()
					delete(s.clients, id)
				}
			case false:
				s.netLogger.Infof("server shut down")
				return
			}
		case sig := <-s.signalc:
			s.handleSignal(sig)
		}
	}
}

func (s *Server) handleSignal(sig os.Signal) {
	switch sig {
	case os.Interrupt, syscall.SIGTERM:
		if s.shuttingDown {
			return
		}
		s.netLogger.Infof("server receive signal %s, shutting down", sig)
		s.shuttingDown = true
		go s.closeListeners(s.listeners)
	}
}

func (s *Server) closeClients(clients map[uint64]*Client) {
	for _, c := range clients {
		c.Shutdown(s.shutdownTimeout)
	}
	close(s.disconnected)
}

func (s *Server) closeListeners(listeners []*listener) {
	for _, l := range listeners {
		l.Close()
	}
	close(s.incomings)
}
