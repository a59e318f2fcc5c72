package wire

import "bytes"

// String extracts a text field from a payload: the bytes up to the first NUL,
// or the whole payload when no terminator is present.
func String(payload []byte) string {
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		return string(payload[:i])
	}
	return string(payload)
}

// CString returns s with a NUL terminator appended; the terminator is counted
// in the frame's size field.
func CString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// JoinList renders a listing reply: entries separated by '\n' with the final
// separator replaced by a NUL terminator. An empty list yields an empty
// payload with no terminator.
func JoinList(items []string) []byte {
	if len(items) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for i, item := range items {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(item)
	}
	buf.WriteByte(0)
	return buf.Bytes()
}

// SplitMessage parses a SEND_CHATROOM_MESSAGE client payload of the form
// room\0text\0 into its two fields. The text's trailing NUL is optional.
func SplitMessage(payload []byte) (room, text string) {
	i := bytes.IndexByte(payload, 0)
	if i < 0 {
		return string(payload), ""
	}
	room = string(payload[:i])
	rest := payload[i+1:]
	if j := bytes.IndexByte(rest, 0); j >= 0 {
		rest = rest[:j]
	}
	return room, string(rest)
}

// ChatBroadcast renders the server-side SEND_CHATROOM_MESSAGE payload
// sender\0room\0text\0 fanned out to the room's members.
func ChatBroadcast(sender, room, text string) []byte {
	b := make([]byte, 0, len(sender)+len(room)+len(text)+3)
	b = append(b, sender...)
	b = append(b, 0)
	b = append(b, room...)
	b = append(b, 0)
	b = append(b, text...)
	b = append(b, 0)
	return b
}

// MemberNotice renders the NOTIFY_USER_JOINED / NOTIFY_USER_LEFT payload
// room\nusername@ip. No NUL terminator is appended.
func MemberNotice(room, username, ip string) []byte {
	b := make([]byte, 0, len(room)+len(username)+len(ip)+2)
	b = append(b, room...)
	b = append(b, '\n')
	b = append(b, username...)
	b = append(b, '@')
	b = append(b, ip...)
	return b
}
