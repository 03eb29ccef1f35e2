// Package common provides the shared building blocks of the hasten RPC
// runtime: the error taxonomy, the wire-error payload format, runtime
// configuration, and logging setup.
//
// The package focuses on:
//   - A fixed error taxonomy with a clear propagation policy: only a
//     protocol violation is fatal to a session; every other failure is
//     contained to the single request it concerns.
//   - The Config structure consumed by the runtime facade, covering frame
//     size limits, call timeouts, pending-call backpressure and dispatch
//     worker bounds.
//   - Logger factories so all runtime packages log in a uniform format.
package common
