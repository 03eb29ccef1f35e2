package unix

import (
	"fmt"
	"net"
	"os"

	"github.com/oleh-synelnykov/hasten/rpc/common"
	"github.com/oleh-synelnykov/hasten/rpc/transport"
)

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Connect(config common.TransportConfig) (net.Conn, error) {
	conn, err := net.Dial("unix", config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to unix socket %s: %v", config.Endpoint, err)
	}
	return conn, nil
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.TransportConfig) error {
	return upgrade(conn, config)
}

// serverConnector implements the IServerConnector interface for Unix sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unix"
}

func (c *serverConnector) Listen(config common.TransportConfig) (net.Listener, error) {
	socketPath := config.Endpoint

	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %v", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create unix socket: %v", err)
	}

	return listener, nil
}

func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.TransportConfig) error {
	return upgrade(conn, config)
}

// upgrade applies socket buffer sizes. Unix sockets have no TCP-level knobs,
// so the remaining TransportConfig fields are ignored.
func upgrade(conn net.Conn, config common.TransportConfig) error {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil // not a unix socket, nothing to upgrade
	}

	if config.WriteBufferSize > 0 {
		if err := unixConn.SetWriteBuffer(config.WriteBufferSize); err != nil {
			return err
		}
	}

	if config.ReadBufferSize > 0 {
		if err := unixConn.SetReadBuffer(config.ReadBufferSize); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Connector Factory Methods
// --------------------------------------------------------------------------

// NewUnixClientConnector creates a connector dialing a unix domain socket.
func NewUnixClientConnector() transport.IClientConnector {
	return &clientConnector{}
}

// NewUnixServerConnector creates a connector listening on a unix domain
// socket, removing a stale socket file from a previous run first.
func NewUnixServerConnector() transport.IServerConnector {
	return &serverConnector{}
}
