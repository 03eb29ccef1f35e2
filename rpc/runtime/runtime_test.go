package runtime

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/oleh-synelnykov/hasten/rpc/codec"
	"github.com/oleh-synelnykov/hasten/rpc/common"
	"github.com/oleh-synelnykov/hasten/rpc/dispatch"
)

const (
	testServiceID  uint32 = 1
	echoMethodID   uint32 = 1
	doubleMethodID uint32 = 2
	failMethodID   uint32 = 3
	slowMethodID   uint32 = 4
)

// testDispatcher registers the methods the integration tests exercise
func testDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()

	d := dispatch.NewDispatcher()
	handlers := map[uint32]dispatch.Handler{
		echoMethodID: {
			Args:   codec.StringShape,
			Result: codec.StringShape,
			Fn: func(_ context.Context, call dispatch.Call) (any, error) {
				return call.Args, nil
			},
		},
		doubleMethodID: {
			Args:   codec.Int64Shape,
			Result: codec.Int64Shape,
			Fn: func(_ context.Context, call dispatch.Call) (any, error) {
				return call.Args.(int64) * 2, nil
			},
		},
		failMethodID: {
			Args:   codec.Int64Shape,
			Result: codec.Int64Shape,
			Fn: func(_ context.Context, _ dispatch.Call) (any, error) {
				return nil, common.NewHandlerError(common.CodeApplicationBase, "divide by zero")
			},
		},
		slowMethodID: {
			Args:   codec.Int64Shape,
			Result: codec.Int64Shape,
			Fn: func(ctx context.Context, call dispatch.Call) (any, error) {
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
				}
				return call.Args, nil
			},
		},
	}
	for method, h := range handlers {
		if err := d.Register(testServiceID, method, h); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	return d
}

// newPeerPair wires a serving peer and a client peer over an in-memory pipe
func newPeerPair(t *testing.T, cfg common.Config) (client *Peer, server *Peer) {
	t.Helper()

	clientEnd, serverEnd := net.Pipe()
	server = NewPeer(serverEnd, cfg, WithDispatcher(testDispatcher(t)))
	client = NewPeer(clientEnd, cfg)

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}

// TestCallRoundTrip tests a simple call through the full stack
func TestCallRoundTrip(t *testing.T) {
	client, _ := newPeerPair(t, common.DefaultConfig())

	reply, err := client.Call(context.Background(), testServiceID, doubleMethodID,
		int64(5), codec.Int64Shape, codec.Int64Shape)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if reply.(int64) != 10 {
		t.Errorf("Expected 10, got %d", reply)
	}
}

// TestHandlerFailureKeepsSession tests that a failed call returns the remote
// error and leaves the session usable
func TestHandlerFailureKeepsSession(t *testing.T) {
	client, _ := newPeerPair(t, common.DefaultConfig())

	_, err := client.Call(context.Background(), testServiceID, failMethodID,
		int64(0), codec.Int64Shape, codec.Int64Shape)

	var wErr *common.WireError
	if !errors.As(err, &wErr) {
		t.Fatalf("Expected a WireError, got %v", err)
	}
	if wErr.Code != common.CodeApplicationBase {
		t.Errorf("Expected code %d, got %d", common.CodeApplicationBase, wErr.Code)
	}
	if wErr.Message != "divide by zero" {
		t.Errorf("Expected the handler's message, got %q", wErr.Message)
	}

	// the same session still serves the next call
	reply, err := client.Call(context.Background(), testServiceID, echoMethodID,
		"still alive", codec.StringShape, codec.StringShape)
	if err != nil {
		t.Fatalf("Call after failure failed: %v", err)
	}
	if reply.(string) != "still alive" {
		t.Errorf("Expected 'still alive', got %q", reply)
	}
}

// TestUnknownMethodKeepsSession tests that calling an unregistered method is
// an error scoped to that call
func TestUnknownMethodKeepsSession(t *testing.T) {
	client, _ := newPeerPair(t, common.DefaultConfig())

	_, err := client.Call(context.Background(), testServiceID, 99,
		int64(1), codec.Int64Shape, codec.Int64Shape)
	if !errors.Is(err, common.ErrUnknownMethod) {
		t.Fatalf("Expected ErrUnknownMethod, got %v", err)
	}

	if _, err := client.Call(context.Background(), testServiceID, doubleMethodID,
		int64(2), codec.Int64Shape, codec.Int64Shape); err != nil {
		t.Errorf("Call after unknown method failed: %v", err)
	}
}

// TestConcurrentCalls tests interleaved calls multiplexed over one session
func TestConcurrentCalls(t *testing.T) {
	client, _ := newPeerPair(t, common.DefaultConfig())

	const numCalls = 64
	var wg sync.WaitGroup
	wg.Add(numCalls)
	errs := make(chan error, numCalls)

	for i := 0; i < numCalls; i++ {
		go func(n int64) {
			defer wg.Done()
			reply, err := client.Call(context.Background(), testServiceID, doubleMethodID,
				n, codec.Int64Shape, codec.Int64Shape)
			if err != nil {
				errs <- err
				return
			}
			if reply.(int64) != n*2 {
				t.Errorf("Call %d: expected %d, got %d", n, n*2, reply)
			}
		}(int64(i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent call failed: %v", err)
	}
}

// TestCallTimeout tests that the configured timeout terminates a call whose
// response never arrives in time
func TestCallTimeout(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.CallTimeout = 50 * time.Millisecond
	client, _ := newPeerPair(t, cfg)

	start := time.Now()
	_, err := client.Call(context.Background(), testServiceID, slowMethodID,
		int64(1), codec.Int64Shape, codec.Int64Shape)
	if !errors.Is(err, common.ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Timeout took %v, expected well under the handler's sleep", elapsed)
	}
}

// TestContextCancellation tests that cancelling the context abandons the
// wait promptly
func TestContextCancellation(t *testing.T) {
	client, _ := newPeerPair(t, common.DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Call(ctx, testServiceID, slowMethodID,
		int64(1), codec.Int64Shape, codec.Int64Shape)
	if !errors.Is(err, common.ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
}

// TestPing tests the liveness probe round trip
func TestPing(t *testing.T) {
	client, _ := newPeerPair(t, common.DefaultConfig())

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

// TestSymmetricCalls tests that the serving side can also issue calls when
// both ends carry a dispatcher
func TestSymmetricCalls(t *testing.T) {
	clientEnd, serverEnd := net.Pipe()
	a := NewPeer(serverEnd, common.DefaultConfig(), WithDispatcher(testDispatcher(t)))
	b := NewPeer(clientEnd, common.DefaultConfig(), WithDispatcher(testDispatcher(t)))
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})

	for _, peer := range []*Peer{a, b} {
		reply, err := peer.Call(context.Background(), testServiceID, doubleMethodID,
			int64(21), codec.Int64Shape, codec.Int64Shape)
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if reply.(int64) != 42 {
			t.Errorf("Expected 42, got %d", reply)
		}
	}
}

// TestCloseFailsPendingCalls tests that closing a peer terminates its
// outstanding calls with ErrSessionClosed
func TestCloseFailsPendingCalls(t *testing.T) {
	client, _ := newPeerPair(t, common.DefaultConfig())

	result := make(chan error, 1)
	go func() {
		_, err := client.Call(context.Background(), testServiceID, slowMethodID,
			int64(1), codec.Int64Shape, codec.Int64Shape)
		result <- err
	}()

	// let the request reach the wire before closing
	time.Sleep(50 * time.Millisecond)
	_ = client.Close()

	select {
	case err := <-result:
		if !errors.Is(err, common.ErrSessionClosed) {
			t.Errorf("Expected ErrSessionClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Pending call never terminated after Close")
	}

	if _, err := client.Call(context.Background(), testServiceID, echoMethodID,
		"x", codec.StringShape, codec.StringShape); !errors.Is(err, common.ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed on a closed peer, got %v", err)
	}
}

// TestCallsAfterPeerGoodbye tests that a peer observing the remote Goodbye
// refuses new calls
func TestCallsAfterPeerGoodbye(t *testing.T) {
	client, server := newPeerPair(t, common.DefaultConfig())

	_ = server.Close()

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Client never observed the server's Goodbye")
	}

	if _, err := client.Call(context.Background(), testServiceID, echoMethodID,
		"x", codec.StringShape, codec.StringShape); !errors.Is(err, common.ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
}
