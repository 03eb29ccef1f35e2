package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oleh-synelnykov/hasten/rpc/common"
	"github.com/oleh-synelnykov/hasten/rpc/transport"
	"github.com/oleh-synelnykov/hasten/rpc/transport/tcp"
	"github.com/oleh-synelnykov/hasten/rpc/transport/unix"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCFlags adds the connection flags shared by every command that
// opens a session (serve, call, ping)
func SetupRPCFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "/tmp/hasten.sock", WrapString("The endpoint to use: a socket path for unix, host:port for tcp"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The default call timeout in seconds"))

	key = "max-frame-size"
	cmd.PersistentFlags().Int(key, common.DefaultMaxFrameSize, WrapString("Maximum accepted frame size in bytes; larger frames are a protocol violation"))

	key = "max-pending-calls"
	cmd.PersistentFlags().Int(key, common.DefaultMaxPendingCalls, WrapString("Maximum outstanding calls per session before backpressure"))

	key = "dispatch-workers"
	cmd.PersistentFlags().Int(key, common.DefaultDispatchWorkers, WrapString("Maximum concurrent handler invocations per session"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The socket write buffer size in KB (0 keeps the OS default)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The socket read buffer size in KB (0 keeps the OS default)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval in seconds (only for tcp)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time in seconds (only for tcp)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("The level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables. The
// format of the environment variables is HASTEN_<flag> with dashes replaced
// by underscores (e.g. HASTEN_LOG_LEVEL=debug).
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("hasten")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetConfig reads the runtime configuration from viper
func GetConfig() common.Config {
	cfg := common.Config{
		MaxFrameSize:    uint32(viper.GetInt("max-frame-size")),
		CallTimeout:     time.Duration(viper.GetInt("timeout")) * time.Second,
		MaxPendingCalls: viper.GetInt("max-pending-calls"),
		DispatchWorkers: viper.GetInt("dispatch-workers"),
		Transport: common.TransportConfig{
			Endpoint:        viper.GetString("endpoint"),
			WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
			TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
		},
		LogLevel: viper.GetString("log-level"),
	}
	cfg.Normalize()
	return cfg
}

// GetClientConnector creates a client connector based on configuration
func GetClientConnector() (transport.IClientConnector, error) {
	switch viper.GetString("transport") {
	case "unix":
		return unix.NewUnixClientConnector(), nil
	case "tcp":
		return tcp.NewTCPClientConnector(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerConnector creates a server connector based on configuration
func GetServerConnector() (transport.IServerConnector, error) {
	switch viper.GetString("transport") {
	case "unix":
		return unix.NewUnixServerConnector(), nil
	case "tcp":
		return tcp.NewTCPServerConnector(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
