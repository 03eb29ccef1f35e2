package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/oleh-synelnykov/hasten/rpc/common"
	"github.com/oleh-synelnykov/hasten/rpc/transport"
)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(config common.TransportConfig) (net.Conn, error) {
	conn, err := net.Dial("tcp", config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", config.Endpoint, err)
	}
	return conn, nil
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.TransportConfig) error {
	return upgrade(conn, config)
}

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(config common.TransportConfig) (net.Listener, error) {
	listener, err := net.Listen("tcp", config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create tcp socket: %v", err)
	}
	return listener, nil
}

func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.TransportConfig) error {
	return upgrade(conn, config)
}

// upgrade applies performance tuning to a TCP connection using the
// configured transport values.
func upgrade(conn net.Conn, config common.TransportConfig) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // not a TCP connection, nothing to upgrade
	}

	// Disable Nagle's algorithm if configured. Small request frames must
	// not wait for coalescing on a latency-sensitive local link.
	if err := tcpConn.SetNoDelay(config.TCPNoDelay); err != nil {
		return err
	}

	if config.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(config.WriteBufferSize); err != nil {
			return err
		}
	}

	if config.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(config.ReadBufferSize); err != nil {
			return err
		}
	}

	if config.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(config.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}

	if config.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(config.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Connector Factory Methods
// --------------------------------------------------------------------------

// NewTCPClientConnector creates a connector dialing a TCP endpoint.
func NewTCPClientConnector() transport.IClientConnector {
	return &clientConnector{}
}

// NewTCPServerConnector creates a connector listening on a TCP endpoint.
func NewTCPServerConnector() transport.IServerConnector {
	return &serverConnector{}
}
