package common

import (
	"fmt"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Runtime configuration
// --------------------------------------------------------------------------

// Config holds every tuning knob the runtime facade consumes. A zero value
// is usable after Normalize fills in the defaults.
type Config struct {
	// MaxFrameSize caps the total_length field of incoming frames. A frame
	// declaring more is a protocol violation and closes the session.
	MaxFrameSize uint32

	// CallTimeout is the default deadline applied to client calls that do
	// not carry their own context deadline.
	CallTimeout time.Duration

	// MaxPendingCalls bounds the number of outstanding client calls per
	// session. Issuing past this high-water mark fails immediately.
	MaxPendingCalls int

	// DispatchWorkers bounds concurrent handler invocations per session so
	// a flood of requests cannot spawn unbounded goroutines.
	DispatchWorkers int

	// ReadBufferSize is the size of the buffer the session reader drains
	// the transport into before feeding the frame layer.
	ReadBufferSize int

	// Transport carries socket-level tuning for the bundled connectors.
	Transport TransportConfig

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// TransportConfig holds socket-level settings consumed by the transport
// connectors. The runtime itself only ever sees the resulting net.Conn.
type TransportConfig struct {
	// Endpoint is a socket path (unix) or host:port (tcp).
	Endpoint string

	// Socket buffer sizes in bytes. Zero leaves the OS default.
	WriteBufferSize int
	ReadBufferSize  int

	// TCP specific tuning, ignored by the unix connector.
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// Default limits for local (same machine) IPC.
const (
	DefaultMaxFrameSize    = 4 * 1024 * 1024 // 4 MB
	DefaultCallTimeout     = 10 * time.Second
	DefaultMaxPendingCalls = 1024
	DefaultDispatchWorkers = 64
	DefaultReadBufferSize  = 64 * 1024 // 64 KB
)

// DefaultConfig returns a Config populated with the default limits.
func DefaultConfig() Config {
	return Config{
		MaxFrameSize:    DefaultMaxFrameSize,
		CallTimeout:     DefaultCallTimeout,
		MaxPendingCalls: DefaultMaxPendingCalls,
		DispatchWorkers: DefaultDispatchWorkers,
		ReadBufferSize:  DefaultReadBufferSize,
		Transport: TransportConfig{
			TCPNoDelay: true,
		},
		LogLevel: "info",
	}
}

// Normalize replaces zero fields with their defaults.
func (c *Config) Normalize() {
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = DefaultMaxFrameSize
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.MaxPendingCalls == 0 {
		c.MaxPendingCalls = DefaultMaxPendingCalls
	}
	if c.DispatchWorkers == 0 {
		c.DispatchWorkers = DefaultDispatchWorkers
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Runtime")
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))
	addField("Call Timeout", c.CallTimeout.String())
	addField("Max Pending Calls", fmt.Sprintf("%d", c.MaxPendingCalls))
	addField("Dispatch Workers", fmt.Sprintf("%d", c.DispatchWorkers))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))

	addSection("Transport")
	addField("Endpoint", c.Transport.Endpoint)
	addField("TCP NoDelay", fmt.Sprintf("%t", c.Transport.TCPNoDelay))
	if c.Transport.TCPKeepAliveSec > 0 {
		addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	}
	if c.Transport.WriteBufferSize > 0 {
		addField("Socket Write Buffer", fmt.Sprintf("%d bytes", c.Transport.WriteBufferSize))
	}
	if c.Transport.ReadBufferSize > 0 {
		addField("Socket Read Buffer", fmt.Sprintf("%d bytes", c.Transport.ReadBufferSize))
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
