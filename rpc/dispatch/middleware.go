package dispatch

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/oleh-synelnykov/hasten/rpc/common"
)

// --------------------------------------------------------------------------
// Middleware
// --------------------------------------------------------------------------

// Middleware wraps a HandlerFunc with cross-cutting behavior. Chains are
// assembled once at registration time, so a middleware must be safe for
// concurrent invocations but pays no per-request assembly cost.
type Middleware func(HandlerFunc) HandlerFunc

// Chain composes middlewares so the first one listed is the outermost:
// Chain(a, b)(h) runs a, then b, then h.
func Chain(mws ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs each invocation with its routing ids, duration, and outcome.
func Logging() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call Call) (any, error) {
			start := time.Now()
			result, err := next(ctx, call)
			elapsed := time.Since(start)
			if err != nil {
				Logger.Warningf("(%d, %d) failed after %v: %v", call.ServiceID, call.MethodID, elapsed, err)
			} else {
				Logger.Debugf("(%d, %d) completed in %v", call.ServiceID, call.MethodID, elapsed)
			}
			return result, err
		}
	}
}

// RateLimit sheds requests beyond the given sustained rate and burst. A
// shed request fails with common.CodeRateLimited instead of queueing, so a
// flooding client cannot exhaust the worker pool for everyone else.
func RateLimit(rps float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call Call) (any, error) {
			if !limiter.Allow() {
				return nil, common.NewHandlerError(common.CodeRateLimited, "rate limit exceeded")
			}
			return next(ctx, call)
		}
	}
}

// Timeout bounds each handler invocation with a per-call deadline. The
// handler is expected to honor ctx; the dispatcher does not forcibly stop it.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call Call) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, call)
		}
	}
}
