package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_HeaderLayout(t *testing.T) {
	frame := Encode(TypeUserEnter, []byte("alice\x00"))

	require.Len(t, frame, HeaderSize+6)
	// First two bytes on the wire are the marker, big-endian, regardless of
	// host byte order.
	assert.Equal(t, byte(0xFF), frame[0])
	assert.Equal(t, byte(0xEF), frame[1])
	// Type code
	assert.Equal(t, []byte{0x00, 0x01}, frame[2:4])
	// Payload size
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x06}, frame[4:8])
	assert.Equal(t, []byte("alice\x00"), frame[HeaderSize:])
}

func TestEncode_EmptyPayload(t *testing.T) {
	frame := Encode(TypeChatroomList, nil)

	require.Len(t, frame, HeaderSize)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, frame[4:8])
}

func TestRoundTrip_AllTypes(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte("x"),
		[]byte("room\x00text\x00"),
		[]byte("lobby\nalice@10.0.0.1"),
		bytes.Repeat([]byte{0xAB}, 64*1024),
	}

	for typ := TypeUserEnter; typ <= TypeNotifyUserLeft; typ++ {
		for _, payload := range payloads {
			var buf bytes.Buffer
			buf.Write(Encode(typ, payload))

			msg, res := Receive(&buf)
			require.Equal(t, Success, res, "type %s", typ)
			assert.Equal(t, typ, msg.Type)
			if len(payload) == 0 {
				assert.Empty(t, msg.Payload)
			} else {
				assert.Equal(t, payload, msg.Payload)
			}
		}
	}
}

func TestReceive_MarkerMismatch(t *testing.T) {
	// A frame with a zeroed marker must be rejected as FAILED.
	raw := []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}

	_, res := Receive(bytes.NewReader(raw))
	assert.Equal(t, Failed, res)
}

func TestReceive_EOFMidHeader(t *testing.T) {
	raw := Encode(TypeUserEnter, []byte("alice\x00"))

	_, res := Receive(bytes.NewReader(raw[:3]))
	assert.Equal(t, Failed, res)
}

func TestReceive_EOFMidPayload(t *testing.T) {
	raw := Encode(TypeUserEnter, []byte("alice\x00"))

	_, res := Receive(bytes.NewReader(raw[:HeaderSize+2]))
	assert.Equal(t, Failed, res)
}

func TestReceive_OversizedPayloadRejected(t *testing.T) {
	frame := Encode(TypeUserEnter, nil)
	// Forge a size field beyond the limit.
	frame[4], frame[5], frame[6], frame[7] = 0xFF, 0xFF, 0xFF, 0xFF

	_, res := Receive(bytes.NewReader(frame))
	assert.Equal(t, Failed, res)
}

func TestSend_WritesFullFrame(t *testing.T) {
	var buf bytes.Buffer

	res := Send(&buf, TypeNotifyError, []byte("boom\x00"))
	require.Equal(t, Success, res)

	msg, res := Receive(&buf)
	require.Equal(t, Success, res)
	assert.Equal(t, TypeNotifyError, msg.Type)
	assert.Equal(t, []byte("boom\x00"), msg.Payload)
}

// chunkWriter accepts at most n bytes per Write call, exercising the
// partial-write retry loop.
type chunkWriter struct {
	buf bytes.Buffer
	n   int
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	if len(p) > w.n {
		p = p[:w.n]
	}
	return w.buf.Write(p)
}

func TestWriteFrame_PartialWrites(t *testing.T) {
	w := &chunkWriter{n: 3}

	res := Send(w, TypeSendChatroomMessage, []byte("lobby\x00hello\x00"))
	require.Equal(t, Success, res)

	msg, res := Receive(&w.buf)
	require.Equal(t, Success, res)
	assert.Equal(t, []byte("lobby\x00hello\x00"), msg.Payload)
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteFrame_FatalError(t *testing.T) {
	res := Send(failWriter{}, TypeUserEnter, []byte("alice\x00"))
	assert.Equal(t, Failed, res)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Success, classify(nil))
	assert.Equal(t, Failed, classify(io.EOF))
	assert.Equal(t, Failed, classify(io.ErrUnexpectedEOF))
}
