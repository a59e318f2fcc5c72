package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "alice", String([]byte("alice\x00")))
	assert.Equal(t, "alice", String([]byte("alice")))
	assert.Equal(t, "", String([]byte("\x00trailing")))
	assert.Equal(t, "", String(nil))
}

func TestCString(t *testing.T) {
	assert.Equal(t, []byte("lobby\x00"), CString("lobby"))
	assert.Equal(t, []byte{0}, CString(""))
}

func TestJoinList(t *testing.T) {
	// Single entry: no separators, just the terminator.
	assert.Equal(t, []byte("lobby\x00"), JoinList([]string{"lobby"}))

	// Multiple entries: '\n' between entries, NUL in place of the final
	// separator.
	assert.Equal(t, []byte("general\nlobby\x00"), JoinList([]string{"general", "lobby"}))

	// Empty list yields an empty payload with no terminator.
	assert.Nil(t, JoinList(nil))
	assert.Nil(t, JoinList([]string{}))
}

func TestSplitMessage(t *testing.T) {
	room, text := SplitMessage([]byte("lobby\x00hello world\x00"))
	assert.Equal(t, "lobby", room)
	assert.Equal(t, "hello world", text)

	// Missing trailing NUL on the text is tolerated.
	room, text = SplitMessage([]byte("lobby\x00hi"))
	assert.Equal(t, "lobby", room)
	assert.Equal(t, "hi", text)

	// No separators at all: everything is the room, text empty.
	room, text = SplitMessage([]byte("lobby"))
	assert.Equal(t, "lobby", room)
	assert.Equal(t, "", text)

	room, text = SplitMessage(nil)
	assert.Equal(t, "", room)
	assert.Equal(t, "", text)
}

func TestChatBroadcast(t *testing.T) {
	assert.Equal(t,
		[]byte("alice\x00lobby\x00hello\x00"),
		ChatBroadcast("alice", "lobby", "hello"))
}

func TestMemberNotice(t *testing.T) {
	// No trailing NUL on membership notices.
	assert.Equal(t,
		[]byte("lobby\nalice@10.1.2.3"),
		MemberNotice("lobby", "alice", "10.1.2.3"))
}
