package session

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Vitya28/simple-chat-server/internal/v1/logging"
	"github.com/Vitya28/simple-chat-server/internal/v1/metrics"
	"github.com/Vitya28/simple-chat-server/internal/v1/registry"
	"github.com/Vitya28/simple-chat-server/internal/v1/wire"
)

// sessionState tracks where a connection is in its lifecycle.
//
//	awaitingEnter --USER_ENTER(valid, unique name)--> active
//	active --USER_LEAVE | recv FAILED | EOF--> closing
//
// In awaitingEnter any message other than USER_ENTER is a protocol violation
// and the connection is closed without a reply. In active, unknown message
// types are ignored for forward compatibility.
type sessionState int

const (
	stateAwaitingEnter sessionState = iota
	stateActive
	stateClosing
)

// sendQueueSize bounds the per-session outbound frame queue. A session whose
// queue fills up is considered stuck and is dropped.
const sendQueueSize = 256

// Session is one client connection being driven through the protocol state
// machine. Only the read loop touches state and username; the write loop is
// the only goroutine that ever writes conn.
type Session struct {
	id   registry.SocketID
	conn net.Conn
	srv  *Server

	send chan []byte
	done chan struct{}

	closeOnce sync.Once

	state    sessionState
	username string
	ip       string
	ctx      context.Context
}

func newSession(srv *Server, conn net.Conn) *Session {
	id := registry.SocketID(uuid.NewString())
	s := &Session{
		id:   id,
		conn: conn,
		srv:  srv,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
		ip:   peerAddress(conn),
		ctx:  logging.WithSession(context.Background(), string(id), ""),
	}
	logging.Info(s.ctx, "connection established", zap.String("peer", conn.RemoteAddr().String()))
	return s
}

// peerAddress returns the textual host part of the peer's address,
// informational only.
func peerAddress(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil || host == "" {
		return "Unknown IP"
	}
	return host
}

// close shuts the connection down exactly once. Closing conn unblocks both
// loops; done unblocks pending enqueues.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// enqueue hands an encoded frame to the write loop without blocking. A full
// queue means the peer has stopped draining; the connection is dropped so
// the fan-out that called us never stalls.
func (s *Session) enqueue(frame []byte) {
	select {
	case s.send <- frame:
	case <-s.done:
	default:
		logging.Warn(s.ctx, "send queue full, dropping connection")
		s.close()
	}
}

// writeLoop is the single writer of the socket. It drains the send queue
// until the session closes or a write fails.
func (s *Session) writeLoop() {
	defer s.close()
	for {
		select {
		case frame := <-s.send:
			if wire.WriteFrame(s.conn, frame) == wire.Failed {
				logging.Warn(s.ctx, "frame write failed")
				return
			}
		case <-s.done:
			return
		}
	}
}

// readLoop receives frames and drives the state machine until the peer
// leaves, violates the protocol, or the transport fails.
func (s *Session) readLoop() {
	defer s.teardown()
	for {
		msg, res := wire.Receive(s.conn)
		switch res {
		case wire.TryAgain:
			// Blocking read; transient only on signal interrupt.
			continue
		case wire.Failed:
			return
		}
		if !s.dispatch(msg) {
			return
		}
	}
}

// teardown runs once the read loop exits: it removes the user from the
// registry, fans out leave notifications for every room the user was in, and
// releases the connection slot. Errors here never disturb other sessions.
func (s *Session) teardown() {
	s.state = stateClosing
	s.close()

	member, notices, ok := s.srv.reg.RemoveUser(s.id)
	if ok {
		for _, n := range notices {
			if len(n.Remaining) == 0 {
				continue
			}
			frame := wire.Encode(wire.TypeNotifyUserLeft,
				wire.MemberNotice(n.Room, member.Username, member.IP))
			s.srv.fanout(n.Remaining, frame, s.id)
		}
		logging.Info(s.ctx, "user disconnected")
		s.logStats()
	} else {
		logging.Info(s.ctx, "connection closed before identification")
	}

	s.srv.dropSession(s)
}

// dispatch routes one received frame. It returns false when the session must
// transition to closing.
func (s *Session) dispatch(msg wire.Message) (keep bool) {
	start := time.Now()
	status := "success"
	defer func() {
		metrics.DispatchDuration.WithLabelValues(msg.Type.String()).Observe(time.Since(start).Seconds())
		if !keep {
			status = "closed"
		}
		metrics.FramesProcessed.WithLabelValues(msg.Type.String(), status).Inc()
	}()

	if s.state == stateAwaitingEnter {
		if msg.Type != wire.TypeUserEnter {
			logging.Warn(s.ctx, "message before USER_ENTER, dropping connection",
				zap.String("type", msg.Type.String()))
			return false
		}
		return s.handleUserEnter(msg)
	}

	switch msg.Type {
	case wire.TypeUserEnter:
		// A second USER_ENTER on a live session can only collide with
		// itself in the registry; treated like any other rejection.
		return s.handleUserEnter(msg)
	case wire.TypeUserLeave:
		// Payload ignored. Leave notifications are emitted by teardown.
		return false
	case wire.TypeChatroomList:
		return s.handleChatroomList()
	case wire.TypeUserList:
		return s.handleUserList(msg)
	case wire.TypeEnterChatroom:
		return s.handleEnterChatroom(msg)
	case wire.TypeLeaveChatroom:
		return s.handleLeaveChatroom(msg)
	case wire.TypeSendChatroomMessage:
		return s.handleSendChatroomMessage(msg)
	default:
		// Unknown or server-to-client types: ignored for forward
		// compatibility.
		logging.Info(s.ctx, "ignoring unknown message type", zap.String("type", msg.Type.String()))
		return true
	}
}

// handleUserEnter identifies the connection. An empty name or a name already
// in use terminates the session; no error frame is defined for this case.
func (s *Session) handleUserEnter(msg wire.Message) bool {
	username := wire.String(msg.Payload)
	if username == "" {
		logging.Info(s.ctx, "USER_ENTER without username, dropping connection")
		return false
	}

	if err := s.srv.reg.AddUser(s.id, username, s.ip); err != nil {
		logging.Info(s.ctx, "user rejected, dropping connection",
			zap.String("requested_username", username), zap.Error(err))
		return false
	}

	s.username = username
	s.state = stateActive
	s.ctx = logging.WithSession(context.Background(), string(s.id), username)
	logging.Info(s.ctx, "user entered", zap.String("ip", s.ip))
	s.logStats()
	return true
}

// handleChatroomList replies with the sorted room names, newline-separated
// with a NUL in place of the final separator; empty when no rooms are live.
func (s *Session) handleChatroomList() bool {
	names := s.srv.reg.ListRoomNames()
	s.enqueue(wire.Encode(wire.TypeChatroomList, wire.JoinList(names)))
	return true
}

// handleUserList replies with user@ip entries for the named room's members.
// An unknown room yields an empty payload.
func (s *Session) handleUserList(msg wire.Message) bool {
	roomName := wire.String(msg.Payload)
	members, err := s.srv.reg.ListRoomMembers(roomName)
	if err != nil {
		s.enqueue(wire.Encode(wire.TypeUserList, nil))
		return true
	}

	entries := make([]string, 0, len(members))
	for _, m := range members {
		entries = append(entries, m.Username+"@"+m.IP)
	}
	s.enqueue(wire.Encode(wire.TypeUserList, wire.JoinList(entries)))
	return true
}

// handleEnterChatroom joins the room, creating it on first entry, and
// notifies every member that was already present. The joiner receives no
// notification about itself.
func (s *Session) handleEnterChatroom(msg wire.Message) bool {
	roomName := wire.String(msg.Payload)
	if roomName == "" {
		logging.Info(s.ctx, "ENTER_CHATROOM without room name, dropping connection")
		return false
	}

	others, err := s.srv.reg.EnterRoom(s.id, roomName)
	if err != nil {
		logging.Error(s.ctx, "enter room failed", zap.String("room", roomName), zap.Error(err))
		return false
	}

	if len(others) > 0 {
		frame := wire.Encode(wire.TypeNotifyUserJoined,
			wire.MemberNotice(roomName, s.username, s.ip))
		s.srv.fanout(others, frame, s.id)
	}
	logging.Info(s.ctx, "entered room", zap.String("room", roomName))
	s.logStats()
	return true
}

// handleLeaveChatroom leaves the room and notifies the remaining members.
// Leaving a room the user is not in is forgiven; the session continues.
func (s *Session) handleLeaveChatroom(msg wire.Message) bool {
	roomName := wire.String(msg.Payload)
	if roomName == "" {
		logging.Info(s.ctx, "LEAVE_CHATROOM without room name, dropping connection")
		return false
	}

	remaining, err := s.srv.reg.LeaveRoom(s.id, roomName)
	if err != nil {
		// Client-side confusion, not a protocol violation.
		logging.Info(s.ctx, "leave ignored", zap.String("room", roomName), zap.Error(err))
		return true
	}

	if len(remaining) > 0 {
		frame := wire.Encode(wire.TypeNotifyUserLeft,
			wire.MemberNotice(roomName, s.username, s.ip))
		s.srv.fanout(remaining, frame, s.id)
	}
	logging.Info(s.ctx, "left room", zap.String("room", roomName))
	s.logStats()
	return true
}

// handleSendChatroomMessage broadcasts to every member of the room,
// including the sender, whose echo confirms delivery. An unknown room is
// forgiven.
func (s *Session) handleSendChatroomMessage(msg wire.Message) bool {
	roomName, text := wire.SplitMessage(msg.Payload)

	members := s.srv.reg.RoomMembersSnapshot(roomName)
	if members == nil {
		logging.Info(s.ctx, "message to unknown room ignored", zap.String("room", roomName))
		return true
	}

	frame := wire.Encode(wire.TypeSendChatroomMessage,
		wire.ChatBroadcast(s.username, roomName, text))
	s.srv.fanout(members, frame, "")
	return true
}

func (s *Session) logStats() {
	users, rooms := s.srv.reg.Stats()
	logging.Info(s.ctx, "statistics", zap.Int("users", users), zap.Int("rooms", rooms))
}
