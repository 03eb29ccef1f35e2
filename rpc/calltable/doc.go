// Package calltable implements the client-side correlation table between
// outstanding request ids and their pending-response slots.
//
// The package focuses on:
//   - Monotonic request-id allocation, never reusing an id while any record
//     of it survives, so a stale late response cannot match a new call.
//   - Exactly-once terminal resolution per request id under any
//     interleaving of response arrival, timeout expiry, caller
//     cancellation, and session closure: the first writer wins.
//   - Backpressure: issuing past the configured pending-call high-water
//     mark fails fast instead of growing without bound against a stalled
//     peer.
//
// Key Components:
//
//   - Table: the pending-call map (a concurrent xsync map mutated by both
//     the session reader and the issuing callers) plus a deadline min-heap
//     for O(log n) expiry.
//
//   - PendingCall: the slot a caller awaits; owned exclusively by the
//     table, observed by the caller through a one-shot buffered channel.
package calltable
