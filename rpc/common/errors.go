package common

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Taxonomy
// --------------------------------------------------------------------------

var (
	// ErrProtocolViolation indicates a malformed or oversized frame.
	// It is fatal to the session: the connection must close and every
	// pending call on it fails with ErrSessionClosed.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrDecode indicates a payload that does not match its expected shape.
	// Recoverable: it is contained to the single request it concerns.
	ErrDecode = errors.New("decode error")

	// ErrUnknownMethod indicates no handler is registered for the
	// (service, method) pair of a request. Recoverable.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrTimeout indicates the client-side deadline elapsed before a
	// response arrived. The caller may retry with a new request id.
	ErrTimeout = errors.New("call timed out")

	// ErrSessionClosed is the terminal error for every call outstanding
	// on a session when its transport ends or a fatal violation occurs.
	ErrSessionClosed = errors.New("session closed")

	// ErrTooManyCalls is returned when issuing a call would exceed the
	// configured pending-call high-water mark.
	ErrTooManyCalls = errors.New("too many pending calls")

	// ErrCancelled indicates the caller abandoned the wait. Only the wait
	// is cancelled; in-flight server-side work is not interrupted.
	ErrCancelled = errors.New("call cancelled")

	// ErrDuplicateHandler is returned when registering a handler for a
	// (service, method) pair that already has one.
	ErrDuplicateHandler = errors.New("duplicate handler")
)

// --------------------------------------------------------------------------
// Wire Error Codes
// --------------------------------------------------------------------------

// Predefined codes carried in Error frames. Codes below CodeApplicationBase
// are reserved for the runtime itself.
const (
	CodeApplicationError uint32 = 1 // handler returned a business-logic error
	CodeInvalidRequest   uint32 = 2 // request payload failed to decode
	CodeUnknownMethod    uint32 = 3 // no handler for (service, method)
	CodeInternalError    uint32 = 4 // handler panicked or runtime bug
	CodeRateLimited      uint32 = 5 // dispatcher shed the request

	// CodeApplicationBase is the first code available to application
	// handlers for their own error vocabulary.
	CodeApplicationBase uint32 = 100
)

// --------------------------------------------------------------------------
// Handler Errors
// --------------------------------------------------------------------------

// HandlerError is a business-logic failure raised by a handler. It travels
// back to the caller as an Error frame with the given code and never takes
// down the session that carried the request.
type HandlerError struct {
	Code    uint32
	Message string
}

func (e *HandlerError) Error() string {
	return e.Message
}

// NewHandlerError creates a HandlerError with an application-defined code.
func NewHandlerError(code uint32, format string, args ...any) *HandlerError {
	return &HandlerError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// --------------------------------------------------------------------------
// Wire Errors
// --------------------------------------------------------------------------

// WireError is the decoded payload of an Error frame: a code plus a
// human-readable message. It is what a client call returns when the remote
// side answered with an Error frame.
type WireError struct {
	Code    uint32
	Message string
}

func (e *WireError) Error() string {
	return fmt.Sprintf("remote error (code %d): %s", e.Code, e.Message)
}

// Unwrap maps runtime-reserved codes back to the taxonomy sentinels so
// callers can match with errors.Is.
func (e *WireError) Unwrap() error {
	switch e.Code {
	case CodeInvalidRequest:
		return ErrDecode
	case CodeUnknownMethod:
		return ErrUnknownMethod
	default:
		return nil
	}
}

// EncodeWireError encodes an Error frame payload:
// u32 code, u32 message length, message bytes (little-endian).
func EncodeWireError(code uint32, message string) []byte {
	buf := make([]byte, 8+len(message))
	binary.LittleEndian.PutUint32(buf[0:4], code)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(message)))
	copy(buf[8:], message)
	return buf
}

// DecodeWireError parses an Error frame payload.
func DecodeWireError(payload []byte) (*WireError, error) {
	if len(payload) < 8 {
		return nil, fmt.Errorf("%w: error payload too short (%d bytes)", ErrDecode, len(payload))
	}
	code := binary.LittleEndian.Uint32(payload[0:4])
	msgLen := binary.LittleEndian.Uint32(payload[4:8])
	if int(msgLen) != len(payload)-8 {
		return nil, fmt.Errorf("%w: error message length %d does not match payload", ErrDecode, msgLen)
	}
	return &WireError{Code: code, Message: string(payload[8:])}, nil
}
