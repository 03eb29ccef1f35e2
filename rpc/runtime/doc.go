// Package runtime is the public facade of the RPC stack: it composes the
// transport, session, dispatch, and call-table layers into two entry
// points.
//
// Key Components:
//
//   - Peer: one end of a connection. Issues calls (Call, Ping) and, when
//     constructed WithDispatcher, serves inbound requests too. The protocol
//     is symmetric; client and server differ only in who dialed.
//
//   - Server: binds an endpoint through an IServerConnector and runs a
//     peer per accepted connection against a shared dispatcher, with
//     graceful draining on Shutdown.
//
// A minimal round trip:
//
//	d := dispatch.NewDispatcher()
//	_ = d.Register(1, 1, dispatch.Handler{
//		Args:   codec.StringShape,
//		Result: codec.StringShape,
//		Fn: func(ctx context.Context, call dispatch.Call) (any, error) {
//			return call.Args, nil
//		},
//	})
//	srv := runtime.NewServer(unix.NewUnixServerConnector(), cfg, d)
//	go srv.Serve()
//
//	peer, _ := runtime.Dial(unix.NewUnixClientConnector(), cfg)
//	reply, _ := peer.Call(ctx, 1, 1, "hello", codec.StringShape, codec.StringShape)
package runtime
