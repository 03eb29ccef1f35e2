package codec

import (
	"errors"
	"reflect"
	"testing"

	"github.com/oleh-synelnykov/hasten/rpc/common"
)

// testValues pairs a shape with values that must survive a round trip
func testValues() []struct {
	name  string
	shape *Shape
	value any
} {
	return []struct {
		name  string
		shape *Shape
		value any
	}{
		{"BoolTrue", BoolShape, true},
		{"BoolFalse", BoolShape, false},
		{"Int32", Int32Shape, int32(-42)},
		{"Int64", Int64Shape, int64(-1 << 40)},
		{"Uint32", Uint32Shape, uint32(4000000000)},
		{"Uint64", Uint64Shape, uint64(1) << 60},
		{"Float32", Float32Shape, float32(3.5)},
		{"Float64", Float64Shape, 2.718281828},
		{"StringEmpty", StringShape, ""},
		{"String", StringShape, "hello, hasten"},
		{"StringUnicode", StringShape, "grüße, 世界"},
		{"BytesEmpty", BytesShape, []byte{}},
		{"Bytes", BytesShape, []byte{0x00, 0xff, 0x10}},
		{"ListEmpty", ListOf(Int64Shape), []any{}},
		{"ListOfInts", ListOf(Int64Shape), []any{int64(1), int64(2), int64(3)}},
		{"ListOfStrings", ListOf(StringShape), []any{"a", "bb", ""}},
		{"NestedList", ListOf(ListOf(Uint32Shape)), []any{
			[]any{uint32(1)},
			[]any{},
			[]any{uint32(2), uint32(3)},
		}},
		{"Struct", StructOf(StringShape, Int64Shape, BoolShape), []any{"key", int64(7), true}},
		{"EmptyStruct", StructOf(), []any{}},
		{"ListOfEmptyStructs", ListOf(StructOf()), []any{[]any{}, []any{}}},
		{"StructOfList", StructOf(StringShape, ListOf(BytesShape)), []any{
			"blob",
			[]any{[]byte("x"), []byte("yz")},
		}},
	}
}

// TestCodecRoundTrip tests that values survive encoding and decoding
func TestCodecRoundTrip(t *testing.T) {
	for _, tc := range testValues() {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Encode(tc.value, tc.shape)
			if err != nil {
				t.Fatalf("Failed to encode %v: %v", tc.value, err)
			}

			result, err := Decode(data, tc.shape)
			if err != nil {
				t.Fatalf("Failed to decode %v: %v", tc.value, err)
			}

			if !reflect.DeepEqual(tc.value, result) {
				t.Errorf("Value doesn't match after round trip:\nOriginal: %#v\nResult: %#v",
					tc.value, result)
			}
		})
	}
}

// TestEncodeMismatch tests that a value of the wrong dynamic type is rejected
func TestEncodeMismatch(t *testing.T) {
	cases := []struct {
		name  string
		shape *Shape
		value any
	}{
		{"StringForInt", Int64Shape, "not a number"},
		{"IntForString", StringShape, int64(1)},
		{"Int32ForInt64", Int64Shape, int32(1)},
		{"ScalarForList", ListOf(Int64Shape), int64(1)},
		{"ShortStruct", StructOf(StringShape, Int64Shape), []any{"only one"}},
		{"WrongFieldType", StructOf(StringShape, Int64Shape), []any{"k", "v"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Encode(tc.value, tc.shape); err == nil {
				t.Errorf("Expected encode of %#v as %s to fail", tc.value, tc.shape.Kind)
			}
		})
	}
}

// TestDecodeTruncated tests that every prefix of a valid encoding is rejected
// cleanly instead of panicking or returning garbage
func TestDecodeTruncated(t *testing.T) {
	shape := StructOf(StringShape, ListOf(Int64Shape), BytesShape)
	value := []any{"truncate-me", []any{int64(1), int64(2)}, []byte("tail")}

	data, err := Encode(value, shape)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	for i := 0; i < len(data); i++ {
		if _, err := Decode(data[:i], shape); err == nil {
			t.Errorf("Expected decode of %d/%d bytes to fail", i, len(data))
		} else if !errors.Is(err, common.ErrDecode) {
			t.Errorf("Expected ErrDecode for %d/%d bytes, got %v", i, len(data), err)
		}
	}
}

// TestDecodeTrailingBytes tests that extra bytes after a complete value are
// rejected
func TestDecodeTrailingBytes(t *testing.T) {
	data, err := Encode(int64(1), Int64Shape)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	if _, err := Decode(append(data, 0x00), Int64Shape); !errors.Is(err, common.ErrDecode) {
		t.Errorf("Expected ErrDecode for trailing bytes, got %v", err)
	}
}

// TestDecodeInvalidBool tests that a bool byte other than 0 or 1 is rejected
func TestDecodeInvalidBool(t *testing.T) {
	if _, err := Decode([]byte{2}, BoolShape); !errors.Is(err, common.ErrDecode) {
		t.Errorf("Expected ErrDecode for invalid bool byte, got %v", err)
	}
}

// TestDecodeOverlongLength tests that a length prefix exceeding the remaining
// buffer is rejected instead of over-reading
func TestDecodeOverlongLength(t *testing.T) {
	// length prefix claims 100 bytes, only 3 follow
	data := []byte{100, 0, 0, 0, 'a', 'b', 'c'}
	if _, err := Decode(data, StringShape); !errors.Is(err, common.ErrDecode) {
		t.Errorf("Expected ErrDecode for overlong length, got %v", err)
	}
}

// TestDecodeHostileListCount tests that a list count requiring more bytes
// than remain is rejected before any element allocation
func TestDecodeHostileListCount(t *testing.T) {
	// count prefix claims 2^32-1 elements, nothing follows
	data := []byte{0xff, 0xff, 0xff, 0xff}
	if _, err := Decode(data, ListOf(Int64Shape)); !errors.Is(err, common.ErrDecode) {
		t.Errorf("Expected ErrDecode for hostile list count, got %v", err)
	}
}

// TestBytesDecodeIsCopy tests that decoded byte slices do not alias the input
func TestBytesDecodeIsCopy(t *testing.T) {
	data, err := Encode([]byte{1, 2, 3}, BytesShape)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	result, err := Decode(data, BytesShape)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	data[len(data)-1] = 99
	if got := result.([]byte)[2]; got != 3 {
		t.Errorf("Decoded bytes alias the input buffer: got %d", got)
	}
}

// benchmarkPayloads returns values for targeted benchmarking
func benchmarkPayloads() map[string]struct {
	shape *Shape
	value any
} {
	large := make([]byte, 16*1024)
	return map[string]struct {
		shape *Shape
		value any
	}{
		"Int64":      {Int64Shape, int64(12345)},
		"SmallStr":   {StringShape, "k"},
		"MediumStr":  {StringShape, "medium length value for encoding"},
		"LargeBytes": {BytesShape, large},
		"Struct":     {StructOf(StringShape, Int64Shape, BoolShape), []any{"key", int64(7), true}},
		"List":       {ListOf(Int64Shape), []any{int64(1), int64(2), int64(3), int64(4)}},
	}
}

// BenchmarkEncode benchmarks encoding of typical payloads
func BenchmarkEncode(b *testing.B) {
	for name, p := range benchmarkPayloads() {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := Encode(p.value, p.shape); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkDecode benchmarks decoding of typical payloads
func BenchmarkDecode(b *testing.B) {
	for name, p := range benchmarkPayloads() {
		b.Run(name, func(b *testing.B) {
			data, err := Encode(p.value, p.shape)
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Decode(data, p.shape); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
