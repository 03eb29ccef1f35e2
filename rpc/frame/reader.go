package frame

// --------------------------------------------------------------------------
// Incremental Reassembly
// --------------------------------------------------------------------------

// Reader reassembles frames from a byte stream fed to it in arbitrary
// chunks. It never blocks and never discards partial data between calls;
// the session's single stream reader owns it.
type Reader struct {
	maxFrameSize uint32
	buf          []byte
}

// NewReader creates a Reader enforcing the given maximum frame size. The
// reassembly buffer never holds more than one maximum-size frame plus the
// unconsumed remainder of the last chunk.
func NewReader(maxFrameSize uint32) *Reader {
	return &Reader{maxFrameSize: maxFrameSize}
}

// Feed appends newly arrived bytes and returns every frame that is now
// complete, in stream order. A partial frame stays buffered for the next
// call.
//
// A non-nil error wraps common.ErrProtocolViolation and poisons the stream:
// the byte position of the next frame is no longer known, so the caller
// must close the session rather than call Feed again.
func (r *Reader) Feed(p []byte) ([]*Frame, error) {
	r.buf = append(r.buf, p...)

	var frames []*Frame
	off := 0
	for {
		if len(r.buf)-off < HeaderSize {
			break
		}
		skeleton, payloadLen, err := parseHeader(r.buf[off:off+HeaderSize], r.maxFrameSize)
		if err != nil {
			r.buf = nil
			return frames, err
		}
		if len(r.buf)-off < HeaderSize+payloadLen {
			break
		}
		f := skeleton
		if payloadLen > 0 {
			f.Payload = make([]byte, payloadLen)
			copy(f.Payload, r.buf[off+HeaderSize:off+HeaderSize+payloadLen])
		}
		frames = append(frames, &f)
		off += HeaderSize + payloadLen
	}

	// Compact instead of re-slicing so the consumed prefix is actually
	// released and the buffer never grows past one frame of backlog.
	if off > 0 {
		remaining := copy(r.buf, r.buf[off:])
		r.buf = r.buf[:remaining]
	}
	return frames, nil
}

// Buffered returns the number of bytes waiting for the rest of a frame.
func (r *Reader) Buffered() int {
	return len(r.buf)
}
