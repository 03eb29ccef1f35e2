package runtime

import (
	"context"
	"net"
	"time"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/oleh-synelnykov/hasten/rpc/calltable"
	"github.com/oleh-synelnykov/hasten/rpc/codec"
	"github.com/oleh-synelnykov/hasten/rpc/common"
	"github.com/oleh-synelnykov/hasten/rpc/dispatch"
	"github.com/oleh-synelnykov/hasten/rpc/frame"
	"github.com/oleh-synelnykov/hasten/rpc/session"
	"github.com/oleh-synelnykov/hasten/rpc/transport"
)

var Logger = logger.GetLogger("rpc")

// expiryTick is the granularity at which call deadlines are checked. The
// call table additionally expires lazily on every Issue, so a lagging tick
// only delays the timeout error, never correctness.
const expiryTick = 100 * time.Millisecond

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type options struct {
	dispatcher *dispatch.Dispatcher
}

// Option configures a Peer beyond its Config.
type Option func(*options)

// WithDispatcher makes the peer answer inbound requests with the given
// dispatcher. Without it the peer is a pure client: inbound requests get an
// unknown-method error.
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// --------------------------------------------------------------------------
// Peer
// --------------------------------------------------------------------------

// Peer is one end of an RPC connection. Both ends are symmetric: a peer
// with a dispatcher serves calls, and any peer can issue them. Server-side
// peers are created by Server for each accepted connection; client-side
// ones via Dial or NewPeer.
type Peer struct {
	cfg     common.Config
	calls   *calltable.Table
	session *session.Session
}

// NewPeer wraps an established connection. Ownership of conn transfers to
// the peer; it is closed when the peer closes.
func NewPeer(conn net.Conn, cfg common.Config, opts ...Option) *Peer {
	cfg.Normalize()
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	calls := calltable.New(cfg.MaxPendingCalls)
	p := &Peer{
		cfg:     cfg,
		calls:   calls,
		session: session.New(conn, cfg, calls, o.dispatcher),
	}
	go p.expiryLoop()
	return p
}

// Dial connects through the given connector and wraps the connection in a
// peer.
func Dial(connector transport.IClientConnector, cfg common.Config, opts ...Option) (*Peer, error) {
	cfg.Normalize()
	conn, err := connector.Connect(cfg.Transport)
	if err != nil {
		return nil, err
	}
	if err := connector.UpgradeConnection(conn, cfg.Transport); err != nil {
		_ = conn.Close()
		return nil, err
	}
	Logger.Infof("connected to %s endpoint %s", connector.GetName(), cfg.Transport.Endpoint)
	return NewPeer(conn, cfg, opts...), nil
}

// Call invokes (serviceID, methodID) on the remote end and blocks until a
// response, an error frame, the deadline, or cancellation. The deadline is
// taken from ctx if set, otherwise Config.CallTimeout applies.
//
// args must conform to argsShape; the decoded result conforms to
// resultShape. A remote failure returns a *common.WireError; local
// conditions return the matching taxonomy sentinel.
func (p *Peer) Call(ctx context.Context, serviceID, methodID uint32, args any, argsShape, resultShape *codec.Shape) (any, error) {
	payload, err := codec.Encode(args, argsShape)
	if err != nil {
		return nil, err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(p.cfg.CallTimeout)
	}

	call, err := p.calls.Issue(deadline)
	if err != nil {
		return nil, err
	}

	req := &frame.Frame{
		Kind:      frame.Request,
		RequestID: call.ID(),
		ServiceID: serviceID,
		MethodID:  methodID,
		Payload:   payload,
	}
	if err := p.session.Send(req); err != nil {
		p.calls.Fail(call.ID(), err)
		<-call.Done()
		return nil, err
	}

	return p.await(ctx, call, resultShape)
}

// Ping round-trips a liveness probe. The empty Response the peer answers
// with resolves through the call table like any result, so pings share
// timeout and backpressure semantics with calls.
func (p *Peer) Ping(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(p.cfg.CallTimeout)
	}

	call, err := p.calls.Issue(deadline)
	if err != nil {
		return err
	}

	if err := p.session.Send(&frame.Frame{Kind: frame.Ping, RequestID: call.ID()}); err != nil {
		p.calls.Fail(call.ID(), err)
		<-call.Done()
		return err
	}

	_, err = p.await(ctx, call, nil)
	return err
}

// await blocks on the call's terminal result, racing it against ctx. On
// cancellation a best-effort Cancel frame tells the peer the wait ended;
// the local call fails immediately either way.
func (p *Peer) await(ctx context.Context, call *calltable.PendingCall, resultShape *codec.Shape) (any, error) {
	var res calltable.Result
	select {
	case res = <-call.Done():
	case <-ctx.Done():
		_ = p.session.Send(&frame.Frame{Kind: frame.Cancel, RequestID: call.ID()})
		// Fail may lose the race against an in-flight resolution; Done
		// carries whichever outcome won.
		p.calls.Fail(call.ID(), common.ErrCancelled)
		res = <-call.Done()
	}

	if res.Err != nil {
		return nil, res.Err
	}
	if resultShape == nil {
		return nil, nil
	}
	return codec.Decode(res.Payload, resultShape)
}

// Outstanding returns the number of calls this peer is waiting on.
func (p *Peer) Outstanding() int {
	return p.calls.Outstanding()
}

// Done returns a channel closed once the underlying session is fully torn
// down and every pending call has terminated.
func (p *Peer) Done() <-chan struct{} {
	return p.session.Done()
}

// Close shuts the peer down gracefully (see session.Session.Close).
func (p *Peer) Close() error {
	return p.session.Close()
}

// expiryLoop periodically times out overdue calls until the session ends.
func (p *Peer) expiryLoop() {
	ticker := time.NewTicker(expiryTick)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if n := p.calls.ExpireDue(now); n > 0 {
				Logger.Debugf("expired %d overdue calls", n)
			}
		case <-p.session.Done():
			return
		}
	}
}
