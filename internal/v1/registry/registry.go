// Package registry implements the authoritative, concurrency-safe store of
// connected users and live chatrooms.
//
// Concurrency Design:
// The registry holds two mutexes: roomsMu guarding the room map and usersMu
// guarding the user set. The lock ordering invariant is:
//
//	acquire roomsMu BEFORE usersMu, never the reverse.
//
// Every operation touching both collections takes the locks in that order;
// single-collection operations may take their lock alone. No lock is ever
// held across network I/O: mutating operations return membership snapshots so
// callers can fan out notifications after the locks are released.
//
// Invariants maintained at every externally observable moment:
//   - socket id is a primary key over live users
//   - usernames are unique across live users
//   - a room name is in a user's room set iff the user's socket is in that
//     room's member set
//   - no live room is empty; a room's last leave deletes the room
package registry

import (
	"errors"
	"sort"
	"sync"

	"k8s.io/utils/set"

	"github.com/Vitya28/simple-chat-server/internal/v1/metrics"
)

// SocketID is the opaque per-connection identity key. It is assigned by the
// acceptor when a connection is admitted and never reused for a live user.
type SocketID string

// Registry operation rejections.
var (
	ErrDuplicateName   = errors.New("username already in use")
	ErrDuplicateSocket = errors.New("socket already has a user")
	ErrUnknownUser     = errors.New("no user for socket")
	ErrNotAMember      = errors.New("user is not a member of the room")
	ErrUnknownRoom     = errors.New("no such room")
)

// Member is the externally visible identity of a connected user.
type Member struct {
	Username string
	IP       string
}

// RoomNotice reports one room affected by a user removal: the room's name and
// a snapshot of the members that remain, taken atomically with the removal.
type RoomNotice struct {
	Room      string
	Remaining []SocketID
}

type user struct {
	socket   SocketID
	username string
	ip       string
	rooms    set.Set[string]
}

type room struct {
	name    string
	members set.Set[SocketID]
}

// Registry is the shared room/user store. Construct one per server with New
// and pass it by reference to every session.
type Registry struct {
	roomsMu sync.Mutex // guards rooms; acquire before usersMu
	usersMu sync.Mutex // guards users and byName
	rooms   map[string]*room
	users   map[SocketID]*user
	byName  map[string]SocketID // username uniqueness index
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		rooms:  make(map[string]*room),
		users:  make(map[SocketID]*user),
		byName: make(map[string]SocketID),
	}
}

// AddUser inserts a newly identified user. It rejects a username already in
// use and a socket that already has a user; failure has no side effects.
func (r *Registry) AddUser(socket SocketID, username, ip string) error {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	if _, taken := r.byName[username]; taken {
		return ErrDuplicateName
	}
	if _, exists := r.users[socket]; exists {
		return ErrDuplicateSocket
	}

	r.users[socket] = &user{
		socket:   socket,
		username: username,
		ip:       ip,
		rooms:    set.New[string](),
	}
	r.byName[username] = socket
	metrics.ActiveUsers.Set(float64(len(r.users)))
	return nil
}

// RemoveUser removes the user and its membership in every room it had
// joined. Rooms left empty are deleted. The returned notices carry, per
// affected room, the members remaining after the removal so the caller can
// emit leave notifications. An absent user is a no-op with ok == false.
func (r *Registry) RemoveUser(socket SocketID) (Member, []RoomNotice, bool) {
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	u, ok := r.users[socket]
	if !ok {
		return Member{}, nil, false
	}

	var notices []RoomNotice
	for _, name := range u.rooms.UnsortedList() {
		rm, ok := r.rooms[name]
		if !ok {
			continue
		}
		rm.members.Delete(socket)
		if rm.members.Len() == 0 {
			delete(r.rooms, name)
		}
		notices = append(notices, RoomNotice{
			Room:      name,
			Remaining: rm.members.UnsortedList(),
		})
	}

	delete(r.byName, u.username)
	delete(r.users, socket)
	metrics.ActiveUsers.Set(float64(len(r.users)))
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
	return Member{Username: u.username, IP: u.ip}, notices, true
}

// EnterRoom joins the user to the named room, creating the room on first
// entry. It returns a snapshot of the members that were already present (the
// joiner excluded) for the join notification. Re-entering a room the user is
// already in is a no-op with a nil snapshot.
func (r *Registry) EnterRoom(socket SocketID, roomName string) ([]SocketID, error) {
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	r.usersMu.Lock()
	u, ok := r.users[socket]
	if !ok {
		r.usersMu.Unlock()
		return nil, ErrUnknownUser
	}
	u.rooms.Insert(roomName)
	r.usersMu.Unlock()

	rm, ok := r.rooms[roomName]
	if !ok {
		rm = &room{name: roomName, members: set.New[SocketID]()}
		r.rooms[roomName] = rm
		metrics.ActiveRooms.Set(float64(len(r.rooms)))
	}
	if rm.members.Has(socket) {
		return nil, nil
	}
	others := rm.members.UnsortedList()
	rm.members.Insert(socket)
	return others, nil
}

// LeaveRoom removes the user from the named room, deleting the room when its
// membership drops to zero. It returns a snapshot of the members remaining
// after the removal for the leave notification. Leaving a room the user is
// not in (or that does not exist) is a no-op reported as ErrNotAMember.
func (r *Registry) LeaveRoom(socket SocketID, roomName string) ([]SocketID, error) {
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	rm, roomExists := r.rooms[roomName]

	r.usersMu.Lock()
	u, ok := r.users[socket]
	if !ok {
		r.usersMu.Unlock()
		return nil, ErrUnknownUser
	}
	if !roomExists || !rm.members.Has(socket) {
		r.usersMu.Unlock()
		return nil, ErrNotAMember
	}
	u.rooms.Delete(roomName)
	r.usersMu.Unlock()

	rm.members.Delete(socket)
	if rm.members.Len() == 0 {
		delete(r.rooms, roomName)
		metrics.ActiveRooms.Set(float64(len(r.rooms)))
		return nil, nil
	}
	return rm.members.UnsortedList(), nil
}

// ListRoomNames returns a point-in-time snapshot of live room names, sorted
// ascending.
func (r *Registry) ListRoomNames() []string {
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	names := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListRoomMembers returns a consistent snapshot of the named room's members.
func (r *Registry) ListRoomMembers(roomName string) ([]Member, error) {
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	rm, ok := r.rooms[roomName]
	if !ok {
		return nil, ErrUnknownRoom
	}

	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	members := make([]Member, 0, rm.members.Len())
	for _, socket := range rm.members.UnsortedList() {
		if u, ok := r.users[socket]; ok {
			members = append(members, Member{Username: u.username, IP: u.ip})
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Username < members[j].Username })
	return members, nil
}

// UserBySocket returns the identity of the user on the given socket.
func (r *Registry) UserBySocket(socket SocketID) (Member, bool) {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	u, ok := r.users[socket]
	if !ok {
		return Member{}, false
	}
	return Member{Username: u.username, IP: u.ip}, true
}

// RoomMembersSnapshot returns the sockets of the named room's members for
// fan-out, or nil when the room does not exist.
func (r *Registry) RoomMembersSnapshot(roomName string) []SocketID {
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()

	rm, ok := r.rooms[roomName]
	if !ok {
		return nil
	}
	return rm.members.UnsortedList()
}

// Stats returns the current user and room counts for the periodic statistics
// log line.
func (r *Registry) Stats() (users, rooms int) {
	r.roomsMu.Lock()
	defer r.roomsMu.Unlock()
	r.usersMu.Lock()
	defer r.usersMu.Unlock()
	return len(r.users), len(r.rooms)
}
