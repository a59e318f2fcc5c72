// Package session implements the per-connection protocol sessions and the
// acceptor that admits them.
//
// The Server owns the TCP listener, the connection cap, and a socket-id to
// session table used for message fan-out. Each admitted connection gets one
// Session running two goroutines: a read loop that drives the protocol state
// machine and a write loop that is the sole writer of the socket. All
// outbound frames, direct replies and fan-out alike, pass through the
// session's buffered send channel, preserving the single-writer-per-socket
// invariant.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/Vitya28/simple-chat-server/internal/v1/config"
	"github.com/Vitya28/simple-chat-server/internal/v1/metrics"
	"github.com/Vitya28/simple-chat-server/internal/v1/registry"
)

// Server accepts connections and coordinates the live sessions.
type Server struct {
	cfg *config.Config
	log *zap.Logger
	reg *registry.Registry

	// mu is the coarse accounting lock: it serializes the session table
	// (which doubles as the connection counter) and the listener slot.
	mu       sync.Mutex
	sessions map[registry.SocketID]*Session
	listener net.Listener

	wg sync.WaitGroup
}

// NewServer creates a server around an explicit registry instance. The
// registry is shared by reference with every session; it is not a package
// singleton.
func NewServer(cfg *config.Config, logger *zap.Logger, reg *registry.Registry) *Server {
	return &Server{
		cfg:      cfg,
		log:      logger,
		reg:      reg,
		sessions: make(map[registry.SocketID]*Session),
	}
}

// Serve listens on the configured port and accepts connections until the
// context is cancelled or the listener fails. It returns nil on orderly
// shutdown. Sessions admitted before shutdown keep running until Shutdown
// closes them.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp4", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.log.Info("chat server listening",
		zap.String("addr", ln.Addr().String()),
		zap.Uint32("max_connections", s.cfg.MaxConnections),
		zap.Uint32("max_chatrooms", s.cfg.MaxChatrooms))

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.admit(conn)
	}
}

// admit applies the connection cap and starts a session for an accepted
// connection. Connections beyond the cap are closed immediately; the peer
// gets no frame, it simply observes EOF.
func (s *Server) admit(conn net.Conn) {
	s.mu.Lock()
	if uint32(len(s.sessions)) >= s.cfg.MaxConnections {
		s.mu.Unlock()
		metrics.RejectedConnections.Inc()
		s.log.Info("connection cap reached, refusing connection",
			zap.String("peer", conn.RemoteAddr().String()),
			zap.Uint32("max_connections", s.cfg.MaxConnections))
		conn.Close()
		return
	}
	sess := newSession(s, conn)
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	metrics.IncConnection()
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		sess.writeLoop()
	}()
	go func() {
		defer s.wg.Done()
		sess.readLoop()
	}()
}

// dropSession removes a terminated session from the table, releasing its
// slot under the cap.
func (s *Server) dropSession(sess *Session) {
	s.mu.Lock()
	_, ok := s.sessions[sess.id]
	if ok {
		delete(s.sessions, sess.id)
	}
	s.mu.Unlock()
	if ok {
		metrics.DecConnection()
	}
}

// fanout enqueues an encoded frame to every target session that is still
// live. The session table lock is released before any enqueue; a recipient
// that cannot keep up is dropped by its own session, never stalling the
// fan-out.
func (s *Server) fanout(targets []registry.SocketID, frame []byte, exclude registry.SocketID) {
	s.mu.Lock()
	recipients := make([]*Session, 0, len(targets))
	for _, id := range targets {
		if id == exclude {
			continue
		}
		if sess, ok := s.sessions[id]; ok {
			recipients = append(recipients, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range recipients {
		sess.enqueue(frame)
	}
}

// Addr returns the listener's address once Serve has bound it, or nil.
// Useful for tests listening on port 0 and for the readiness probe.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown closes the listener and every live session, then waits for all
// session goroutines to finish, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	live := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		sess.close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
