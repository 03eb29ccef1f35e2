// Package codec implements the value serialization used for RPC payloads.
// It converts between typed Go values and byte slices according to shape
// descriptors emitted by the IDL code generator.
//
// The package focuses on:
//   - Deterministic encoding: the same logical value always yields the same
//     bytes, keeping the protocol debuggable and testable via round-trip.
//   - Fixed-width little-endian numerics and u32 length-prefixed
//     variable-length data, matching the frame layer's conventions.
//   - Untagged struct encoding in field declaration order; the
//     (service, method) ids on the frame are the sole versioning anchor.
//
// Key Components:
//
//   - Shape: a descriptor tree for the primitives and aggregates the IDL
//     can express (scalars, strings, bytes, lists, structs).
//
//   - Encode/Decode: pure, stateless transforms. Decode fails with an error
//     wrapping common.ErrDecode on truncated input, out-of-range lengths,
//     shape mismatches, or trailing bytes.
//
// Thread Safety:
//
//	All functions are stateless and safe for concurrent use. Shapes are
//	immutable after construction and may be shared freely.
package codec
