package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/oleh-synelnykov/hasten/rpc/common"
	"github.com/oleh-synelnykov/hasten/rpc/dispatch"
	"github.com/oleh-synelnykov/hasten/rpc/transport"
)

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// Server accepts connections through a server connector and runs one peer
// per connection, all sharing a single dispatcher.
type Server struct {
	cfg        common.Config
	connector  transport.IServerConnector
	dispatcher *dispatch.Dispatcher

	listener net.Listener
	closed   atomic.Bool

	mu    sync.Mutex
	peers map[*Peer]struct{}
	wg    sync.WaitGroup
}

// NewServer creates a server. Handlers are registered on the dispatcher
// before Serve is called.
func NewServer(connector transport.IServerConnector, cfg common.Config, dispatcher *dispatch.Dispatcher) *Server {
	cfg.Normalize()
	return &Server{
		cfg:        cfg,
		connector:  connector,
		dispatcher: dispatcher,
		peers:      make(map[*Peer]struct{}),
	}
}

// Serve binds the endpoint and accepts connections until Shutdown. It
// blocks; the returned error is nil after a clean shutdown.
func (s *Server) Serve() error {
	listener, err := s.connector.Listen(s.cfg.Transport)
	if err != nil {
		return fmt.Errorf("failed to listen on %s endpoint %s: %w",
			s.connector.GetName(), s.cfg.Transport.Endpoint, err)
	}
	s.listener = listener
	Logger.Infof("serving on %s endpoint %s", s.connector.GetName(), listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		if err := s.connector.UpgradeConnection(conn, s.cfg.Transport); err != nil {
			Logger.Warningf("connection tuning failed for %s: %v", conn.RemoteAddr(), err)
		}

		s.track(NewPeer(conn, s.cfg, WithDispatcher(s.dispatcher)))
	}
}

// Addr returns the bound address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting, closes every live peer gracefully, and waits
// for them to finish or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.mu.Lock()
	for peer := range s.peers {
		_ = peer.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		Logger.Infof("server stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// track registers a peer and reaps it once its session ends.
func (s *Server) track(peer *Peer) {
	s.mu.Lock()
	s.peers[peer] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-peer.Done()
		s.mu.Lock()
		delete(s.peers, peer)
		s.mu.Unlock()
	}()
}
