// Package session binds one transport connection to the frame, dispatch,
// and call-table layers and manages its lifecycle.
//
// The package focuses on:
//   - Exclusive connection ownership: exactly one reader goroutine and one
//     writer goroutine per connection. Callers hand frames to a
//     multi-producer queue and never touch the socket, so frame bytes can
//     never interleave.
//   - Lifecycle: the one-way Open -> Closing -> Closed progression.
//     Graceful closes flush in-flight work and announce Goodbye; fatal
//     conditions (protocol violations, transport errors) tear down
//     immediately. Either way every pending call terminates with
//     ErrSessionClosed.
//   - Bounded concurrency: inbound requests are dispatched on a worker
//     pool whose size caps concurrent handler invocations; past the cap
//     the reader itself blocks, backpressuring the stream.
//
// Key Components:
//
//   - Session: the connection owner. Created around an established
//     net.Conn by the runtime facade, which also owns the call table the
//     session resolves into.
//
// Thread Safety: Send, Close, State, and Done are safe for concurrent use
// from any goroutine.
package session
