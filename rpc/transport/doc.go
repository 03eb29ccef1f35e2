// Package transport defines the connector interfaces through which sessions
// obtain their connections, decoupling the runtime from any concrete socket
// type.
//
// The runtime never dials or listens itself: it receives an IClientConnector
// or IServerConnector via dependency injection and works against the
// net.Conn values they produce. The bundled implementations live in the
// unix and tcp subpackages; anything that yields a net.Conn (including
// net.Pipe in tests) can stand in for them.
package transport
