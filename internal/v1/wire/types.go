// Package wire implements the framed binary protocol spoken between chat
// clients and the server.
//
// Every frame on the wire is a fixed 8-byte header followed by an optional
// payload:
//
//	marker  uint16  always 0xFFEF, big-endian
//	type    uint16  message type code, big-endian
//	size    uint32  payload length in bytes, big-endian
//	payload []byte  opaque; interpretation depends on type
//
// The codec treats payloads as opaque bytes. The helpers in payload.go
// implement the ASCII-oriented field grammar (NUL terminators, newline
// separators) used by the individual message types.
package wire

import "fmt"

// Marker is the fixed frame marker. A received header whose first two bytes
// do not decode to this value is not a protocol frame and the connection
// carrying it must be dropped.
const Marker uint16 = 0xFFEF

// HeaderSize is the encoded size of a frame header: marker + type + size.
const HeaderSize = 2 + 2 + 4

// MsgType identifies the kind of message a frame carries.
type MsgType uint16

const (
	TypeNoMessage           MsgType = 0x0000 // reserved
	TypeUserEnter           MsgType = 0x0001 // C->S: username\0
	TypeUserLeave           MsgType = 0x0002 // C->S: payload ignored
	TypeChatroomList        MsgType = 0x0003 // C->S: empty; S->C: r1\nr2\n...\0
	TypeUserList            MsgType = 0x0004 // C->S: room\0; S->C: u1@ip1\n...\0
	TypeEnterChatroom       MsgType = 0x0005 // C->S: room\0
	TypeLeaveChatroom       MsgType = 0x0006 // C->S: room\0
	TypeSendChatroomMessage MsgType = 0x0007 // C->S: room\0text\0; S->C: sender\0room\0text\0
	TypeServerChatroomMsg   MsgType = 0x0008 // S->C: text\0
	TypeSendUserMessage     MsgType = 0x0009 // reserved, not implemented
	TypeNotifyError         MsgType = 0x000A // S->C: text\0
	TypeNotifyUserJoined    MsgType = 0x000B // S->C: room\nusername@ip
	TypeNotifyUserLeft      MsgType = 0x000C // S->C: room\nusername@ip
)

// String returns the protocol name of the message type for logging.
func (t MsgType) String() string {
	switch t {
	case TypeNoMessage:
		return "NO_MESSAGE"
	case TypeUserEnter:
		return "USER_ENTER"
	case TypeUserLeave:
		return "USER_LEAVE"
	case TypeChatroomList:
		return "CHATROOM_LIST"
	case TypeUserList:
		return "USER_LIST"
	case TypeEnterChatroom:
		return "ENTER_CHATROOM"
	case TypeLeaveChatroom:
		return "LEAVE_CHATROOM"
	case TypeSendChatroomMessage:
		return "SEND_CHATROOM_MESSAGE"
	case TypeServerChatroomMsg:
		return "SERVER_CHATROOM_MESSAGE"
	case TypeSendUserMessage:
		return "SEND_USER_MESSAGE"
	case TypeNotifyError:
		return "NOTIFY_ERROR"
	case TypeNotifyUserJoined:
		return "NOTIFY_USER_JOINED"
	case TypeNotifyUserLeft:
		return "NOTIFY_USER_LEFT"
	default:
		return fmt.Sprintf("UNKNOWN(0x%04x)", uint16(t))
	}
}

// Message is a decoded frame: the type code and the raw payload bytes.
type Message struct {
	Type    MsgType
	Payload []byte
}

// Result is the tri-state outcome of a codec send or receive.
type Result int

const (
	// Failed means the connection is unusable and must be dropped.
	Failed Result = iota
	// TryAgain means the operation was interrupted by a transient condition
	// and may be retried as-is.
	TryAgain
	// Success means the full frame was transferred.
	Success
)

func (r Result) String() string {
	switch r {
	case Failed:
		return "FAILED"
	case TryAgain:
		return "TRYAGAIN"
	case Success:
		return "SUCCESS"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}
