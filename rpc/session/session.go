package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"

	"github.com/oleh-synelnykov/hasten/lib/queue"
	"github.com/oleh-synelnykov/hasten/rpc/calltable"
	"github.com/oleh-synelnykov/hasten/rpc/common"
	"github.com/oleh-synelnykov/hasten/rpc/dispatch"
	"github.com/oleh-synelnykov/hasten/rpc/frame"
)

var Logger = logger.GetLogger("rpc/session")

// drainTimeout bounds the graceful flush of queued frames at teardown. A
// peer that stopped reading gets its connection cut after this long.
var drainTimeout = 5 * time.Second

var (
	framesReadTotal         = metrics.GetOrCreateCounter("hasten_frames_read_total")
	framesWrittenTotal      = metrics.GetOrCreateCounter("hasten_frames_written_total")
	protocolViolationsTotal = metrics.GetOrCreateCounter("hasten_protocol_violations_total")
	sessionsOpenedTotal     = metrics.GetOrCreateCounter("hasten_sessions_opened_total")
	sessionsClosedTotal     = metrics.GetOrCreateCounter("hasten_sessions_closed_total")
)

// --------------------------------------------------------------------------
// Session States
// --------------------------------------------------------------------------

// State is the lifecycle phase of a session. Transitions only move forward:
// Open -> Closing -> Closed.
type State int32

const (
	// StateOpen accepts new outbound frames and routes inbound ones.
	StateOpen State = iota
	// StateClosing refuses new outbound calls but still flushes queued
	// frames and lets in-flight handlers finish.
	StateClosing
	// StateClosed holds no resources; every pending call has terminated.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// Session owns one transport connection end to end: a single reader
// goroutine turns the byte stream into frames and routes them, a single
// writer goroutine drains the outbound queue, and a bounded worker pool
// runs handler dispatch. No other goroutine ever touches the connection,
// which is what makes frame boundaries safe without per-write locking.
type Session struct {
	conn       net.Conn
	cfg        common.Config
	calls      *calltable.Table
	dispatcher *dispatch.Dispatcher

	writeQ  *queue.MPSC[frame.Frame]
	workers chan struct{}

	state     atomic.Int32
	closeOnce sync.Once
	done      chan struct{}

	writerWG  sync.WaitGroup
	handlerWG sync.WaitGroup

	// root context for handler invocations, cancelled at teardown
	ctx    context.Context
	cancel context.CancelFunc
}

// New wraps an established connection in a session and starts its reader
// and writer goroutines. The call table is owned by the caller (the runtime
// facade issues calls against it); the session only resolves and fails its
// entries. A nil dispatcher makes this a pure client end: inbound requests
// are answered with an unknown-method error.
func New(conn net.Conn, cfg common.Config, calls *calltable.Table, dispatcher *dispatch.Dispatcher) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:       conn,
		cfg:        cfg,
		calls:      calls,
		dispatcher: dispatcher,
		writeQ:     queue.New[frame.Frame](),
		workers:    make(chan struct{}, cfg.DispatchWorkers),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}

	sessionsOpenedTotal.Inc()
	s.writerWG.Add(1)
	go s.writeLoop()
	go s.readLoop()

	return s
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Done returns a channel closed once the session reaches Closed and every
// pending call on it has terminated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Send enqueues a frame for the writer goroutine. It never blocks on the
// transport. Returns common.ErrSessionClosed once the session left Open.
func (s *Session) Send(f *frame.Frame) error {
	if s.State() != StateOpen {
		return common.ErrSessionClosed
	}
	if !s.writeQ.Push(f) {
		return common.ErrSessionClosed
	}
	return nil
}

// Close shuts the session down gracefully: in-flight handlers finish, their
// responses and a final Goodbye frame are flushed, then the connection
// closes and any still-pending outbound calls fail with ErrSessionClosed.
// Safe to call multiple times and from any goroutine.
func (s *Session) Close() error {
	s.shutdown(nil)
	return nil
}

// --------------------------------------------------------------------------
// Read Path
// --------------------------------------------------------------------------

// readLoop is the single goroutine that reads the transport. It exits on
// any read error; the error is fatal unless the session was already
// shutting down (the expected way the loop is unblocked).
func (s *Session) readLoop() {
	reader := frame.NewReader(s.cfg.MaxFrameSize)
	buf := make([]byte, s.cfg.ReadBufferSize)

	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			frames, ferr := reader.Feed(buf[:n])
			for _, f := range frames {
				framesReadTotal.Inc()
				s.route(f)
			}
			if ferr != nil {
				protocolViolationsTotal.Inc()
				Logger.Errorf("closing session: %v", ferr)
				s.shutdown(ferr)
				return
			}
		}
		if err != nil {
			if s.State() != StateOpen || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				Logger.Debugf("reader exiting: %v", err)
			} else {
				Logger.Errorf("transport read failed: %v", err)
			}
			s.shutdown(err)
			return
		}
	}
}

// route delivers one inbound frame to its consumer. Responses and errors
// resolve the call table; requests go to the worker pool; control frames
// are handled inline.
func (s *Session) route(f *frame.Frame) {
	switch f.Kind {
	case frame.Response:
		if !s.calls.Resolve(f.RequestID, f.Payload) {
			Logger.Debugf("stale response for request id %d", f.RequestID)
		}

	case frame.Error:
		wireErr, err := common.DecodeWireError(f.Payload)
		if err != nil {
			s.calls.Fail(f.RequestID, err)
			return
		}
		s.calls.Fail(f.RequestID, wireErr)

	case frame.Request:
		s.handleRequest(f)

	case frame.Ping:
		// A probe is answered like a request: an empty Response correlated
		// by id. Replying with another Ping would make two symmetric peers
		// bounce the frame forever, and request ids are only unique per
		// direction, so the receiver could not tell a foreign ping id from
		// one of its own calls.
		_ = s.Send(&frame.Frame{Kind: frame.Response, RequestID: f.RequestID})

	case frame.Cancel:
		// Best effort by contract: the caller already stopped waiting, so
		// there is nothing to resolve. Handlers observing ctx will notice
		// the eventual teardown; running work is not interrupted.
		Logger.Debugf("peer abandoned request id %d", f.RequestID)

	case frame.Goodbye:
		Logger.Infof("peer announced shutdown")
		s.shutdown(nil)
	}
}

// handleRequest runs the dispatcher on a worker slot. Acquiring the slot
// may block the reader, which is deliberate: a request flood backpressures
// the stream instead of spawning unbounded goroutines.
func (s *Session) handleRequest(f *frame.Frame) {
	select {
	case s.workers <- struct{}{}:
	case <-s.done:
		return
	}
	if s.State() != StateOpen {
		<-s.workers
		return
	}

	s.handlerWG.Add(1)
	go func() {
		defer func() {
			<-s.workers
			s.handlerWG.Done()
		}()

		var resp *frame.Frame
		if s.dispatcher == nil {
			resp = &frame.Frame{
				Kind:      frame.Error,
				RequestID: f.RequestID,
				Payload: common.EncodeWireError(common.CodeUnknownMethod,
					fmt.Sprintf("no handler for service %d method %d", f.ServiceID, f.MethodID)),
			}
		} else {
			resp = s.dispatcher.Dispatch(s.ctx, f)
		}
		// Push directly instead of Send so responses still flush while the
		// session is Closing.
		s.writeQ.Push(resp)
	}()
}

// --------------------------------------------------------------------------
// Write Path
// --------------------------------------------------------------------------

// writeLoop is the single goroutine with write access to the transport. It
// drains the outbound queue until the queue closes. On a write error it
// kills the connection and discards the rest of the queue; the reader then
// observes the dead connection and drives the teardown.
func (s *Session) writeLoop() {
	defer s.writerWG.Done()

	broken := false
	for f := range s.writeQ.Recv() {
		if broken {
			continue
		}
		if _, err := s.conn.Write(frame.Marshal(f)); err != nil {
			if s.State() == StateOpen {
				Logger.Errorf("transport write failed: %v", err)
			}
			_ = s.conn.Close()
			broken = true
			continue
		}
		framesWrittenTotal.Inc()
	}
}

// --------------------------------------------------------------------------
// Teardown
// --------------------------------------------------------------------------

// shutdown drives the one-way transition to Closed. A nil cause is a
// graceful close (local Close call or peer Goodbye): handlers finish and
// queued frames flush first. A non-nil cause tears down immediately.
func (s *Session) shutdown(cause error) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))

		if cause == nil {
			s.handlerWG.Wait()
			s.writeQ.Push(&frame.Frame{Kind: frame.Goodbye})
		} else {
			// Unblock a writer stuck on a stalled transport before waiting
			// for it.
			_ = s.conn.Close()
		}
		s.writeQ.Close()
		// The flush is bounded: a writer blocked on a peer that stopped
		// reading gets its connection cut instead of hanging Close forever.
		flush := time.AfterFunc(drainTimeout, func() { _ = s.conn.Close() })
		s.writerWG.Wait()
		flush.Stop()

		s.state.Store(int32(StateClosed))
		_ = s.conn.Close()
		s.cancel()
		s.calls.FailAll(common.ErrSessionClosed)
		sessionsClosedTotal.Inc()
		close(s.done)
	})
}
