package codec

// --------------------------------------------------------------------------
// Shape Descriptors
// --------------------------------------------------------------------------

// Kind enumerates the value shapes the IDL can express.
type Kind uint8

const (
	Bool Kind = iota + 1
	Int32
	Int64
	Uint32
	Uint64
	Float32
	Float64
	String
	Bytes
	List
	Struct
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	case List:
		return "list"
	case Struct:
		return "struct"
	default:
		return "unknown"
	}
}

// Shape describes the wire layout of a value. Shapes are what the code
// generator emits for every method's argument and result types; the codec
// itself never interprets IDL text.
//
// Struct fields encode in declaration order with no per-field tagging: the
// (service, method) pair on the frame is the sole versioning anchor.
type Shape struct {
	Kind   Kind
	Elem   *Shape   // element shape, List only
	Fields []*Shape // field shapes in declaration order, Struct only
}

// Predefined scalar shapes. Shapes are immutable after construction and
// safe to share across goroutines.
var (
	BoolShape    = &Shape{Kind: Bool}
	Int32Shape   = &Shape{Kind: Int32}
	Int64Shape   = &Shape{Kind: Int64}
	Uint32Shape  = &Shape{Kind: Uint32}
	Uint64Shape  = &Shape{Kind: Uint64}
	Float32Shape = &Shape{Kind: Float32}
	Float64Shape = &Shape{Kind: Float64}
	StringShape  = &Shape{Kind: String}
	BytesShape   = &Shape{Kind: Bytes}
)

// ListOf returns the shape of a sequence with the given element shape.
func ListOf(elem *Shape) *Shape {
	return &Shape{Kind: List, Elem: elem}
}

// StructOf returns the shape of an aggregate with the given field shapes
// in declaration order.
func StructOf(fields ...*Shape) *Shape {
	return &Shape{Kind: Struct, Fields: fields}
}
