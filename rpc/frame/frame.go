// Package frame implements the wire framing of the hasten protocol: it
// translates between discrete protocol messages and the raw byte stream of
// a local transport.
//
// Frame format (all integers little-endian):
//
//	0        4    5         9         13        17      20
//	┌────────┬────┬─────────┬─────────┬─────────┬───────┬─────────────┐
//	│ total  │kind│ request │ service │ method  │ rsvd  │ payload ... │
//	│ u32    │ u8 │ id u32  │ id u32  │ id u32  │ 3x u8 │             │
//	└────────┴────┴─────────┴─────────┴─────────┴───────┴─────────────┘
//
// total counts every byte after itself (16 header-tail bytes + payload),
// so a reader always knows exactly where the next frame starts. A total
// exceeding the configured maximum frame size is a protocol violation and
// must close the session.
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/oleh-synelnykov/hasten/rpc/common"
)

const (
	// HeaderSize is the fixed number of bytes before the payload.
	HeaderSize = 20

	// headerTailSize is the number of header bytes counted by the
	// total_length field (everything after the field itself).
	headerTailSize = HeaderSize - 4
)

// Kind distinguishes the frame types of the protocol.
type Kind uint8

const (
	Request  Kind = 0 // client -> server call
	Response Kind = 1 // successful result, echoes the request id
	Error    Kind = 2 // failed result, payload is a wire error
	Ping     Kind = 3 // liveness probe, answered by an empty Response with the same id
	Cancel   Kind = 4 // best-effort abandon notification
	Goodbye  Kind = 5 // graceful shutdown announcement
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case Request:
		return "REQUEST"
	case Response:
		return "RESPONSE"
	case Error:
		return "ERROR"
	case Ping:
		return "PING"
	case Cancel:
		return "CANCEL"
	case Goodbye:
		return "GOODBYE"
	default:
		return "UNKNOWN"
	}
}

func validKind(b byte) bool {
	return b <= byte(Goodbye)
}

// Frame is one discrete protocol message. ServiceID and MethodID are only
// meaningful for Request frames; responses correlate by RequestID alone.
type Frame struct {
	Kind      Kind
	RequestID uint32
	ServiceID uint32
	MethodID  uint32
	Payload   []byte
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s id=%d svc=%d mth=%d (%d payload bytes)",
		f.Kind, f.RequestID, f.ServiceID, f.MethodID, len(f.Payload))
}

// Marshal serializes a frame into a fresh byte slice, header and payload in
// one allocation. It is a pure transform with no I/O.
func Marshal(f *Frame) []byte {
	buf := make([]byte, HeaderSize+len(f.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(headerTailSize+len(f.Payload)))
	buf[4] = byte(f.Kind)
	binary.LittleEndian.PutUint32(buf[5:9], f.RequestID)
	binary.LittleEndian.PutUint32(buf[9:13], f.ServiceID)
	binary.LittleEndian.PutUint32(buf[13:17], f.MethodID)
	// buf[17:20] reserved, left zero
	copy(buf[HeaderSize:], f.Payload)
	return buf
}

// parseHeader validates the fixed header bytes and returns the frame
// skeleton plus the payload length that follows.
func parseHeader(hdr []byte, maxFrameSize uint32) (Frame, int, error) {
	total := binary.LittleEndian.Uint32(hdr[0:4])
	if total < headerTailSize {
		return Frame{}, 0, fmt.Errorf("%w: total length %d below header size", common.ErrProtocolViolation, total)
	}
	if total > maxFrameSize {
		return Frame{}, 0, fmt.Errorf("%w: total length %d exceeds maximum frame size %d", common.ErrProtocolViolation, total, maxFrameSize)
	}
	if !validKind(hdr[4]) {
		return Frame{}, 0, fmt.Errorf("%w: unknown frame kind %d", common.ErrProtocolViolation, hdr[4])
	}
	f := Frame{
		Kind:      Kind(hdr[4]),
		RequestID: binary.LittleEndian.Uint32(hdr[5:9]),
		ServiceID: binary.LittleEndian.Uint32(hdr[9:13]),
		MethodID:  binary.LittleEndian.Uint32(hdr[13:17]),
	}
	return f, int(total) - headerTailSize, nil
}
