package calltable

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/oleh-synelnykov/hasten/rpc/common"
)

var Logger = logger.GetLogger("rpc/calltable")

var (
	callsIssuedTotal   = metrics.GetOrCreateCounter("hasten_calls_issued_total")
	callsTimedOutTotal = metrics.GetOrCreateCounter("hasten_calls_timed_out_total")
	staleResultsTotal  = metrics.GetOrCreateCounter("hasten_stale_results_total")
)

// --------------------------------------------------------------------------
// Pending Calls
// --------------------------------------------------------------------------

// Result is the terminal outcome of a pending call: either a response
// payload or an error from the taxonomy (wire error, timeout, session
// closed, cancelled).
type Result struct {
	Payload []byte
	Err     error
}

// PendingCall is the slot a caller waits on between issuing a request and
// its resolution. The table owns the slot exclusively; the caller only
// observes it through Done.
type PendingCall struct {
	id       uint32
	deadline time.Time
	done     chan Result
}

// ID returns the request id allocated for this call.
func (c *PendingCall) ID() uint32 {
	return c.id
}

// Done returns the channel that delivers the call's single terminal result.
func (c *PendingCall) Done() <-chan Result {
	return c.done
}

// --------------------------------------------------------------------------
// Call Table
// --------------------------------------------------------------------------

// Table correlates outstanding request ids with their pending-response
// slots. It is the one structure mutated by both the session's reader
// goroutine (resolving) and call-issuing callers, so every operation is
// safe for concurrent use and each request id resolves exactly once:
// whichever of response arrival, timeout expiry, cancellation, or session
// closure wins, the later events observe "already resolved" and discard.
type Table struct {
	maxPending int

	pending     *xsync.MapOf[uint32, *PendingCall]
	nextID      atomic.Uint32
	outstanding atomic.Int64
	closed      atomic.Bool

	mu        sync.Mutex
	deadlines *deadlineHeap
}

// New creates a table enforcing the given pending-call high-water mark.
func New(maxPending int) *Table {
	return &Table{
		maxPending: maxPending,
		pending:    xsync.NewMapOf[uint32, *PendingCall](),
		deadlines:  newDeadlineHeap(),
	}
}

// Issue allocates the next request id and inserts a pending call with the
// given deadline. Ids are monotonic per table and never reused while any
// record of them survives, so a stale late response can never match a new
// unrelated call.
//
// Returns common.ErrTooManyCalls past the high-water mark (backpressure
// against a stalled peer) and common.ErrSessionClosed on a closed table.
func (t *Table) Issue(deadline time.Time) (*PendingCall, error) {
	if t.closed.Load() {
		return nil, common.ErrSessionClosed
	}

	// Lazy expiry keeps the table honest even if the owner's ticker lags.
	t.ExpireDue(time.Now())

	// The increment itself is the admission check. A plain load followed by
	// an add would let concurrent issuers overshoot the high-water mark.
	if t.outstanding.Add(1) > int64(t.maxPending) {
		t.outstanding.Add(-1)
		return nil, common.ErrTooManyCalls
	}

	call := &PendingCall{
		id:       t.nextID.Add(1),
		deadline: deadline,
		done:     make(chan Result, 1),
	}
	t.pending.Store(call.id, call)

	t.mu.Lock()
	t.deadlines.schedule(call.id, deadline.UnixNano())
	t.mu.Unlock()

	// A FailAll racing with the insert above may have missed the new call;
	// re-checking after the store guarantees it still terminates.
	if t.closed.Load() {
		t.complete(call.id, Result{Err: common.ErrSessionClosed})
	}

	callsIssuedTotal.Inc()
	return call, nil
}

// Resolve completes the matching pending call with a response payload.
// Resolving an unknown id is a no-op: the call timed out, was cancelled,
// or the peer sent a duplicate.
func (t *Table) Resolve(id uint32, payload []byte) bool {
	return t.complete(id, Result{Payload: payload})
}

// Fail completes the matching pending call with an error (wire error from
// an Error frame, cancellation, or any taxonomy error). Unknown ids are a
// no-op.
func (t *Table) Fail(id uint32, err error) bool {
	return t.complete(id, Result{Err: err})
}

// ExpireDue resolves every pending call whose deadline is at or before now
// with common.ErrTimeout. A response arriving later finds no record and is
// discarded as stale. Returns the number of calls expired.
func (t *Table) ExpireDue(now time.Time) int {
	t.mu.Lock()
	due := t.deadlines.popDue(now.UnixNano())
	t.mu.Unlock()

	expired := 0
	for _, id := range due {
		if t.complete(id, Result{Err: common.ErrTimeout}) {
			callsTimedOutTotal.Inc()
			expired++
		}
	}
	return expired
}

// FailAll closes the table and resolves every still-pending call with the
// given error. Called exactly when the owning session reaches Closed. The
// table accepts no new calls afterwards.
func (t *Table) FailAll(err error) {
	t.closed.Store(true)
	t.pending.Range(func(id uint32, _ *PendingCall) bool {
		t.complete(id, Result{Err: err})
		return true
	})
}

// Outstanding returns the number of calls awaiting resolution.
func (t *Table) Outstanding() int {
	return int(t.outstanding.Load())
}

// complete delivers the terminal result for id. LoadAndDelete is the
// single arbiter: exactly one competing completion obtains the call, every
// other observes a miss and discards.
func (t *Table) complete(id uint32, result Result) bool {
	call, ok := t.pending.LoadAndDelete(id)
	if !ok {
		staleResultsTotal.Inc()
		Logger.Debugf("discarding result for unknown request id %d", id)
		return false
	}
	t.outstanding.Add(-1)

	t.mu.Lock()
	t.deadlines.unschedule(id)
	t.mu.Unlock()

	// done is buffered with capacity 1 and written exactly once, so the
	// delivery never blocks even if the caller already gave up waiting.
	call.done <- result
	return true
}
