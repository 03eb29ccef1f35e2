// Package unix provides the transport connectors for Unix domain sockets,
// the default transport for same-machine RPC. A stale socket file left by a
// crashed previous run is removed before listening.
package unix
