// Package chattest runs an in-process chat server that speaks the client's
// wire contract, for use in tests. Each accepted connection gets the welcome
// frame, its username frame is read, and the connection is then handed to a
// per-connection Script.
package chattest

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cyberinferno/chatclient/frame"
	"github.com/cyberinferno/chatclient/idgenerator"
	"github.com/cyberinferno/chatclient/logger"
	"github.com/cyberinferno/chatclient/safemap"
)

// Script drives one connection after the handshake. Returning ends the
// connection; a non-nil error is reported by Server.Close.
type Script func(p *Peer) error

// Server accepts chat clients on a loopback port.
type Server struct {
	// Welcome is sent as the first frame to each client.
	Welcome string
	// Script runs per connection after the username arrives; nil closes the
	// connection right after the handshake.
	Script Script
	// ReceiveBufferSize bounds frames read from clients.
	ReceiveBufferSize int
	// Timeout bounds each frame read by a Peer.
	Timeout time.Duration

	log      logger.Logger
	listener net.Listener
	running  atomic.Bool
	ids      *idgenerator.IdGenerator
	peers    *safemap.SafeMap[uint32, *Peer]
	group    errgroup.Group
	stopOnce sync.Once
	stopErr  error
}

// NewServer returns a stopped Server with defaults matching the client's.
func NewServer(welcome string, script Script, log logger.Logger) *Server {
	return &Server{
		Welcome:           welcome,
		Script:            script,
		ReceiveBufferSize: 1024,
		Timeout:           5 * time.Second,
		log:               log,
		ids:               idgenerator.NewIdGenerator(0),
		peers:             safemap.NewSafeMap[uint32, *Peer](),
	}
}

// Start listens on 127.0.0.1 with a kernel-chosen port and begins accepting.
func (s *Server) Start() error {
	if s.running.Load() {
		return errors.New("chattest: server already running")
	}

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("chattest: listen: %w", err)
	}

	s.listener = ln
	s.running.Store(true)
	s.log.Debug("test server started", logger.Field{Key: "addr", Value: ln.Addr().String()})

	s.group.Go(s.acceptLoop)
	return nil
}

// AddrPort returns the listening address.
func (s *Server) AddrPort() netip.AddrPort {
	return s.listener.Addr().(*net.TCPAddr).AddrPort()
}

// Peer returns the live connection with the given ID.
func (s *Server) Peer(id uint32) (*Peer, bool) {
	return s.peers.Load(id)
}

// PeerCount returns the number of live connections.
func (s *Server) PeerCount() int {
	return s.peers.Len()
}

// Close stops accepting, closes every live connection and waits for all
// scripts to return. It returns the first script error. Safe to call more
// than once.
func (s *Server) Close() error {
	s.stopOnce.Do(func() {
		s.running.Store(false)
		if s.listener != nil {
			_ = s.listener.Close()
		}

		for _, p := range s.peers.Values() {
			_ = p.Close()
		}

		s.stopErr = s.group.Wait()
		s.log.Debug("test server stopped")
	})

	return s.stopErr
}

func (s *Server) acceptLoop() error {
	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}

			s.log.Warn("test server accept error", logger.Field{Key: "error", Value: err})
			continue
		}

		p := &Peer{
			id:      s.ids.Id(),
			conn:    conn,
			codec:   frame.NewCodec(frame.MaxPayloadSize),
			buf:     make([]byte, s.ReceiveBufferSize),
			timeout: s.Timeout,
		}
		s.peers.Store(p.id, p)
		s.group.Go(func() error { return s.serve(p) })
	}

	return nil
}

func (s *Server) serve(p *Peer) error {
	defer s.peers.Delete(p.id)
	defer p.Close()

	if err := p.Send(s.Welcome); err != nil {
		return fmt.Errorf("chattest: peer %d: send welcome: %w", p.id, err)
	}

	name, err := p.Receive()
	if err != nil {
		return fmt.Errorf("chattest: peer %d: receive username: %w", p.id, err)
	}

	p.username = name
	s.log.Debug("test peer joined", logger.Field{Key: "id", Value: p.id}, logger.Field{Key: "user", Value: name})

	if s.Script == nil {
		return nil
	}

	return s.Script(p)
}
