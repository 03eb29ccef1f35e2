package dispatch

import (
	"context"
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/oleh-synelnykov/hasten/rpc/codec"
	"github.com/oleh-synelnykov/hasten/rpc/common"
	"github.com/oleh-synelnykov/hasten/rpc/frame"
)

var Logger = logger.GetLogger("rpc/dispatch")

var (
	unknownMethodTotal = metrics.GetOrCreateCounter("hasten_dispatch_unknown_method_total")
	handlerErrorsTotal = metrics.GetOrCreateCounter("hasten_dispatch_handler_errors_total")
	handlerPanicsTotal = metrics.GetOrCreateCounter("hasten_dispatch_handler_panics_total")
)

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

// Call identifies one invocation: the routing ids from the request frame
// plus the already-decoded argument value.
type Call struct {
	ServiceID uint32
	MethodID  uint32
	Args      any
}

// HandlerFunc is the business-logic signature generated skeletons bind.
// A returned *common.HandlerError carries its own wire code; any other
// error is reported as a generic application error. Either way the failure
// travels back as an Error frame and never takes down the session.
type HandlerFunc func(ctx context.Context, call Call) (any, error)

// Handler binds a method's argument and result shapes (emitted by the code
// generator) to its implementation.
type Handler struct {
	Args   *codec.Shape
	Result *codec.Shape
	Fn     HandlerFunc
}

// boundHandler is a registered handler with the middleware chain applied.
type boundHandler struct {
	args   *codec.Shape
	result *codec.Shape
	fn     HandlerFunc
}

// --------------------------------------------------------------------------
// Dispatcher
// --------------------------------------------------------------------------

// Dispatcher routes request frames to registered handlers. Registration
// happens once at startup before any traffic; during dispatch the handler
// table is read-only, so concurrent requests coordinate on nothing but the
// lookup.
type Dispatcher struct {
	handlers    *xsync.MapOf[uint64, *boundHandler]
	middlewares []Middleware
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: xsync.NewMapOf[uint64, *boundHandler](),
	}
}

// methodKey packs (service, method) into one comparable map key.
func methodKey(serviceID, methodID uint32) uint64 {
	return uint64(serviceID)<<32 | uint64(methodID)
}

// Use appends a middleware. Must be called before Register: the chain is
// baked into each handler at registration time, not per request.
func (d *Dispatcher) Use(mw Middleware) {
	d.middlewares = append(d.middlewares, mw)
}

// Register binds a handler to a (service, method) pair. Intended for
// setup only, before the dispatcher sees traffic. Returns
// common.ErrDuplicateHandler if the pair is already bound.
func (d *Dispatcher) Register(serviceID, methodID uint32, h Handler) error {
	if h.Fn == nil {
		return fmt.Errorf("dispatch: nil handler for (%d, %d)", serviceID, methodID)
	}
	bound := &boundHandler{
		args:   h.Args,
		result: h.Result,
		fn:     Chain(d.middlewares...)(h.Fn),
	}
	if _, loaded := d.handlers.LoadOrStore(methodKey(serviceID, methodID), bound); loaded {
		return fmt.Errorf("%w: (%d, %d)", common.ErrDuplicateHandler, serviceID, methodID)
	}
	return nil
}

// Dispatch routes one request frame to its handler and always returns a
// terminal frame for the client: a Response on success, an Error frame
// otherwise. A bad request never propagates as a session-fatal condition.
func (d *Dispatcher) Dispatch(ctx context.Context, req *frame.Frame) *frame.Frame {
	handler, ok := d.handlers.Load(methodKey(req.ServiceID, req.MethodID))
	if !ok {
		unknownMethodTotal.Inc()
		Logger.Warningf("no handler for (%d, %d), request id %d", req.ServiceID, req.MethodID, req.RequestID)
		return errorFrame(req.RequestID, common.CodeUnknownMethod,
			fmt.Sprintf("no handler for service %d method %d", req.ServiceID, req.MethodID))
	}

	args, err := codec.Decode(req.Payload, handler.args)
	if err != nil {
		Logger.Warningf("request id %d payload rejected: %v", req.RequestID, err)
		return errorFrame(req.RequestID, common.CodeInvalidRequest, err.Error())
	}

	result, err := d.invoke(ctx, handler, Call{
		ServiceID: req.ServiceID,
		MethodID:  req.MethodID,
		Args:      args,
	})
	if err != nil {
		handlerErrorsTotal.Inc()
		if hErr, ok := err.(*common.HandlerError); ok {
			return errorFrame(req.RequestID, hErr.Code, hErr.Message)
		}
		return errorFrame(req.RequestID, common.CodeApplicationError, err.Error())
	}

	payload, err := codec.Encode(result, handler.result)
	if err != nil {
		Logger.Errorf("handler for (%d, %d) produced an unencodable result: %v", req.ServiceID, req.MethodID, err)
		return errorFrame(req.RequestID, common.CodeInternalError, "result encoding failed")
	}

	return &frame.Frame{
		Kind:      frame.Response,
		RequestID: req.RequestID,
		Payload:   payload,
	}
}

// invoke runs the handler with panic containment: a panicking handler
// yields an internal-error frame instead of a dead session.
func (d *Dispatcher) invoke(ctx context.Context, handler *boundHandler, call Call) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			handlerPanicsTotal.Inc()
			Logger.Errorf("handler for (%d, %d) panicked: %v", call.ServiceID, call.MethodID, r)
			err = common.NewHandlerError(common.CodeInternalError, "handler panic: %v", r)
		}
	}()
	return handler.fn(ctx, call)
}

func errorFrame(requestID, code uint32, message string) *frame.Frame {
	return &frame.Frame{
		Kind:      frame.Error,
		RequestID: requestID,
		Payload:   common.EncodeWireError(code, message),
	}
}
