// Package rpc provides a frame-based RPC runtime for processes on the same
// machine. It handles connection management, request multiplexing, payload
// encoding, and handler dispatch over unix domain sockets or loopback TCP.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures shared across the stack, including the
//     error taxonomy, wire error codes, runtime configuration, and logging.
//
//   - frame: The wire framing layer translating between discrete protocol
//     messages and the raw byte stream, including incremental reassembly.
//
//   - codec: Shape-directed binary encoding of method arguments and
//     results, driven by descriptors a code generator emits.
//
//   - calltable: Client-side correlation of outstanding request ids with
//     their pending-response slots, with timeout expiry and backpressure.
//
//   - dispatch: Routing of inbound requests to registered handlers with
//     failure containment and composable middleware.
//
//   - session: Connection ownership and lifecycle, tying the layers above
//     to one transport connection.
//
//   - transport: Pluggable connector interfaces with unix and tcp
//     implementations.
//
//   - runtime: The public facade (Peer, Server) applications build on.
package rpc
