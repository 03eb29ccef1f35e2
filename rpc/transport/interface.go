package transport

import (
	"net"

	"github.com/oleh-synelnykov/hasten/rpc/common"
)

// --------------------------------------------------------------------------
// Client Connector
// --------------------------------------------------------------------------

// IClientConnector abstracts how the client side of a session obtains its
// connection. The runtime facade only ever sees the resulting net.Conn.
type IClientConnector interface {
	// GetName returns the connector's scheme name (e.g. "unix", "tcp")
	GetName() string
	// Connect dials the configured endpoint
	Connect(config common.TransportConfig) (net.Conn, error)
	// UpgradeConnection applies socket-level tuning to an established
	// connection. Connectors ignore settings their socket type lacks.
	UpgradeConnection(conn net.Conn, config common.TransportConfig) error
}

// --------------------------------------------------------------------------
// Server Connector
// --------------------------------------------------------------------------

// IServerConnector abstracts how the server side binds its endpoint.
type IServerConnector interface {
	// GetName returns the connector's scheme name (e.g. "unix", "tcp")
	GetName() string
	// Listen binds the configured endpoint
	Listen(config common.TransportConfig) (net.Listener, error)
	// UpgradeConnection applies socket-level tuning to an accepted
	// connection before it is handed to a session.
	UpgradeConnection(conn net.Conn, config common.TransportConfig) error
}
