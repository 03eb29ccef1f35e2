// Package tcp provides the transport connectors for TCP sockets, mainly for
// loopback use when a unix socket is not available. Accepted connections are
// tuned per TransportConfig: Nagle off, optional keep-alive, linger, and
// socket buffer sizes.
package tcp
