package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"syscall"

	"go.uber.org/zap"

	"github.com/Vitya28/simple-chat-server/internal/v1/logging"
)

// MaxPayloadSize bounds the payload length accepted from a peer. A header
// announcing more than this is treated as a protocol violation rather than an
// allocation request.
const MaxPayloadSize = 1 << 20

// Encode assembles a complete frame for the given type and payload.
// All header fields are written big-endian.
func Encode(typ MsgType, payload []byte) []byte {
	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint16(frame[0:2], Marker)
	binary.BigEndian.PutUint16(frame[2:4], uint16(typ))
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[HeaderSize:], payload)
	return frame
}

// Receive reads exactly one frame from r. It reads the full header, validates
// the marker, then reads the full payload. Short reads are looped by
// io.ReadFull; EOF mid-frame and marker mismatch both yield Failed.
func Receive(r io.Reader) (Message, Result) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, classify(err)
	}

	marker := binary.BigEndian.Uint16(header[0:2])
	typ := MsgType(binary.BigEndian.Uint16(header[2:4]))
	size := binary.BigEndian.Uint32(header[4:8])

	if marker != Marker {
		logging.GetLogger().Warn("frame marker mismatch, dropping peer",
			zap.Uint16("marker", marker))
		return Message{}, Failed
	}
	if size > MaxPayloadSize {
		logging.GetLogger().Warn("frame payload exceeds limit, dropping peer",
			zap.Uint32("size", size), zap.String("type", typ.String()))
		return Message{}, Failed
	}

	msg := Message{Type: typ}
	if size > 0 {
		msg.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, msg.Payload); err != nil {
			return Message{}, classify(err)
		}
	}
	return msg, Success
}

// Send encodes and writes a full frame to w.
func Send(w io.Writer, typ MsgType, payload []byte) Result {
	return WriteFrame(w, Encode(typ, payload))
}

// WriteFrame writes an already encoded frame, retrying partial writes until
// every byte is flushed or a non-retryable error occurs.
func WriteFrame(w io.Writer, frame []byte) Result {
	for len(frame) > 0 {
		n, err := w.Write(frame)
		if err != nil {
			if res := classify(err); res == TryAgain {
				frame = frame[n:]
				continue
			}
			return Failed
		}
		frame = frame[n:]
	}
	return Success
}

// classify maps a transport error onto the tri-state Result. Interrupted
// system calls, would-block conditions and timeouts are transient; anything
// else (EOF, resets, closed connections) means the connection is done.
func classify(err error) Result {
	if err == nil {
		return Success
	}
	if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) {
		return TryAgain
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TryAgain
	}
	return Failed
}
