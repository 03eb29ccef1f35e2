package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/oleh-synelnykov/hasten/rpc/common"
)

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Encode serializes a value of the given shape into a byte payload.
//
// The encoding is deterministic: the same logical value always produces the
// same bytes. Numerics are fixed-width little-endian, strings/bytes/lists
// are u32 length-prefixed, struct fields concatenate in declaration order.
//
// Generated code guarantees the value matches the shape; the type checks
// here exist so a mismatch surfaces as an error instead of a panic.
func Encode(v any, s *Shape) ([]byte, error) {
	return appendValue(nil, v, s)
}

func appendValue(buf []byte, v any, s *Shape) ([]byte, error) {
	switch s.Kind {
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(v, s)
		}
		if b {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil

	case Int32:
		n, ok := v.(int32)
		if !ok {
			return nil, mismatch(v, s)
		}
		return binary.LittleEndian.AppendUint32(buf, uint32(n)), nil

	case Int64:
		n, ok := v.(int64)
		if !ok {
			return nil, mismatch(v, s)
		}
		return binary.LittleEndian.AppendUint64(buf, uint64(n)), nil

	case Uint32:
		n, ok := v.(uint32)
		if !ok {
			return nil, mismatch(v, s)
		}
		return binary.LittleEndian.AppendUint32(buf, n), nil

	case Uint64:
		n, ok := v.(uint64)
		if !ok {
			return nil, mismatch(v, s)
		}
		return binary.LittleEndian.AppendUint64(buf, n), nil

	case Float32:
		f, ok := v.(float32)
		if !ok {
			return nil, mismatch(v, s)
		}
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(f)), nil

	case Float64:
		f, ok := v.(float64)
		if !ok {
			return nil, mismatch(v, s)
		}
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(f)), nil

	case String:
		str, ok := v.(string)
		if !ok {
			return nil, mismatch(v, s)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(str)))
		return append(buf, str...), nil

	case Bytes:
		b, ok := v.([]byte)
		if !ok {
			return nil, mismatch(v, s)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
		return append(buf, b...), nil

	case List:
		items, ok := v.([]any)
		if !ok {
			return nil, mismatch(v, s)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(items)))
		var err error
		for _, item := range items {
			if buf, err = appendValue(buf, item, s.Elem); err != nil {
				return nil, err
			}
		}
		return buf, nil

	case Struct:
		fields, ok := v.([]any)
		if !ok {
			return nil, mismatch(v, s)
		}
		if len(fields) != len(s.Fields) {
			return nil, fmt.Errorf("codec: struct has %d values for %d fields", len(fields), len(s.Fields))
		}
		var err error
		for i, field := range fields {
			if buf, err = appendValue(buf, field, s.Fields[i]); err != nil {
				return nil, err
			}
		}
		return buf, nil

	default:
		return nil, fmt.Errorf("codec: invalid shape kind %d", s.Kind)
	}
}

func mismatch(v any, s *Shape) error {
	return fmt.Errorf("codec: value of type %T does not match shape %s", v, s.Kind)
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Decode parses a byte payload into a value of the expected shape. It fails
// with an error wrapping common.ErrDecode when the bytes are truncated,
// contain an out-of-range length, do not match the shape, or leave
// trailing garbage.
func Decode(b []byte, s *Shape) (any, error) {
	v, off, err := decodeValue(b, 0, s)
	if err != nil {
		return nil, err
	}
	if off != len(b) {
		return nil, fmt.Errorf("%w: %d trailing bytes after %s value", common.ErrDecode, len(b)-off, s.Kind)
	}
	return v, nil
}

func decodeValue(b []byte, off int, s *Shape) (any, int, error) {
	switch s.Kind {
	case Bool:
		if off+1 > len(b) {
			return nil, 0, truncated(s)
		}
		switch b[off] {
		case 0:
			return false, off + 1, nil
		case 1:
			return true, off + 1, nil
		default:
			return nil, 0, fmt.Errorf("%w: invalid bool byte 0x%02x", common.ErrDecode, b[off])
		}

	case Int32:
		if off+4 > len(b) {
			return nil, 0, truncated(s)
		}
		return int32(binary.LittleEndian.Uint32(b[off:])), off + 4, nil

	case Int64:
		if off+8 > len(b) {
			return nil, 0, truncated(s)
		}
		return int64(binary.LittleEndian.Uint64(b[off:])), off + 8, nil

	case Uint32:
		if off+4 > len(b) {
			return nil, 0, truncated(s)
		}
		return binary.LittleEndian.Uint32(b[off:]), off + 4, nil

	case Uint64:
		if off+8 > len(b) {
			return nil, 0, truncated(s)
		}
		return binary.LittleEndian.Uint64(b[off:]), off + 8, nil

	case Float32:
		if off+4 > len(b) {
			return nil, 0, truncated(s)
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(b[off:])), off + 4, nil

	case Float64:
		if off+8 > len(b) {
			return nil, 0, truncated(s)
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b[off:])), off + 8, nil

	case String:
		data, next, err := decodeLengthPrefixed(b, off, s)
		if err != nil {
			return nil, 0, err
		}
		return string(data), next, nil

	case Bytes:
		data, next, err := decodeLengthPrefixed(b, off, s)
		if err != nil {
			return nil, 0, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, next, nil

	case List:
		if off+4 > len(b) {
			return nil, 0, truncated(s)
		}
		count := binary.LittleEndian.Uint32(b[off:])
		off += 4
		// A declared count can never need more bytes than remain. Elements
		// with a zero minimum size (structs without fields) are exempt:
		// they occupy nothing on the wire at any count.
		if min := minEncodedSize(s.Elem); min > 0 && int64(count)*int64(min) > int64(len(b)-off) {
			return nil, 0, fmt.Errorf("%w: list length %d exceeds remaining %d bytes", common.ErrDecode, count, len(b)-off)
		}
		// Cap the pre-allocation by the remaining bytes so a hostile count
		// over zero-size elements cannot reserve memory up front.
		capHint := int(count)
		if rem := len(b) - off; capHint > rem {
			capHint = rem
		}
		items := make([]any, 0, capHint)
		for i := uint32(0); i < count; i++ {
			item, next, err := decodeValue(b, off, s.Elem)
			if err != nil {
				return nil, 0, err
			}
			items = append(items, item)
			off = next
		}
		return items, off, nil

	case Struct:
		fields := make([]any, 0, len(s.Fields))
		for _, fs := range s.Fields {
			field, next, err := decodeValue(b, off, fs)
			if err != nil {
				return nil, 0, err
			}
			fields = append(fields, field)
			off = next
		}
		return fields, off, nil

	default:
		return nil, 0, fmt.Errorf("%w: invalid shape kind %d", common.ErrDecode, s.Kind)
	}
}

// decodeLengthPrefixed reads a u32 length prefix and returns the following
// slice of exactly that many bytes.
func decodeLengthPrefixed(b []byte, off int, s *Shape) ([]byte, int, error) {
	if off+4 > len(b) {
		return nil, 0, truncated(s)
	}
	length := binary.LittleEndian.Uint32(b[off:])
	off += 4
	if int64(length) > int64(len(b)-off) {
		return nil, 0, fmt.Errorf("%w: %s length %d exceeds remaining %d bytes", common.ErrDecode, s.Kind, length, len(b)-off)
	}
	return b[off : off+int(length)], off + int(length), nil
}

// minEncodedSize returns the smallest number of bytes a value of the shape
// can occupy on the wire. Zero only for structs without fields.
func minEncodedSize(s *Shape) int {
	switch s.Kind {
	case Bool:
		return 1
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	case String, Bytes, List:
		return 4 // length prefix
	case Struct:
		total := 0
		for _, f := range s.Fields {
			total += minEncodedSize(f)
		}
		return total
	default:
		return 0
	}
}

func truncated(s *Shape) error {
	return fmt.Errorf("%w: truncated %s value", common.ErrDecode, s.Kind)
}
