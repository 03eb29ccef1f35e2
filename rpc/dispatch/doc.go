// Package dispatch routes incoming request frames to registered method
// handlers and turns every outcome into exactly one terminal frame.
//
// The package focuses on:
//   - Routing by (service id, method id) pairs through a lock-free
//     concurrent map, registered once at startup.
//   - Failure containment: decode errors, unknown methods, handler errors,
//     and handler panics all become Error frames scoped to the one request
//     that caused them. Nothing a handler does can take down the session.
//   - Cross-cutting behavior through composable middleware (logging, rate
//     limiting, per-call timeouts) baked into each handler at registration.
//
// Key Components:
//
//   - Dispatcher: the handler registry plus the Dispatch entry point the
//     session's worker pool drives.
//
//   - Handler: a method implementation bound to the argument and result
//     shapes its payloads must match.
//
//   - Middleware: a HandlerFunc decorator; chains compose with Chain.
//
// Thread Safety: Register and Use are intended for single-threaded setup
// before traffic starts; Dispatch is safe for unbounded concurrent use
// afterwards.
package dispatch
