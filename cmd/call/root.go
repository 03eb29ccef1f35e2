package call

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdUtil "github.com/oleh-synelnykov/hasten/cmd/util"
	"github.com/oleh-synelnykov/hasten/cmd/serve"
	"github.com/oleh-synelnykov/hasten/rpc/codec"
	"github.com/oleh-synelnykov/hasten/rpc/common"
	"github.com/oleh-synelnykov/hasten/rpc/runtime"
)

var (
	// CallCmd represents the call command group against the demo service
	CallCmd = &cobra.Command{
		Use:   "call",
		Short: "Invoke methods of the demo service on a running server",
	}

	echoCmd = &cobra.Command{
		Use:   "echo [text]",
		Short: "Round-trip a string through the demo echo method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPeer(cmd, func(ctx context.Context, peer *runtime.Peer) error {
				reply, err := peer.Call(ctx, serve.DemoServiceID, serve.EchoMethodID,
					args[0], codec.StringShape, codec.StringShape)
				if err != nil {
					return err
				}
				fmt.Println(reply.(string))
				return nil
			})
		},
	}

	doubleCmd = &cobra.Command{
		Use:   "double [number]",
		Short: "Double an integer via the demo double method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid number %q: %v", args[0], err)
			}
			return withPeer(cmd, func(ctx context.Context, peer *runtime.Peer) error {
				reply, err := peer.Call(ctx, serve.DemoServiceID, serve.DoubleMethodID,
					n, codec.Int64Shape, codec.Int64Shape)
				if err != nil {
					return err
				}
				fmt.Println(reply.(int64))
				return nil
			})
		},
	}

	// PingCmd round-trips a liveness probe
	PingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Check that a hasten server is alive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPeer(cmd, func(ctx context.Context, peer *runtime.Peer) error {
				start := time.Now()
				if err := peer.Ping(ctx); err != nil {
					return err
				}
				fmt.Printf("pong in %v\n", time.Since(start))
				return nil
			})
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// Add connection flags to both entry commands
	cmdUtil.SetupRPCFlags(CallCmd)
	cmdUtil.SetupRPCFlags(PingCmd)

	// Add subcommands
	CallCmd.AddCommand(echoCmd)
	CallCmd.AddCommand(doubleCmd)
}

// withPeer dials a peer from the configured flags, runs fn, and closes it.
func withPeer(cmd *cobra.Command, fn func(ctx context.Context, peer *runtime.Peer) error) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	cfg := cmdUtil.GetConfig()
	common.InitLoggers(cfg.LogLevel)

	connector, err := cmdUtil.GetClientConnector()
	if err != nil {
		return err
	}

	peer, err := runtime.Dial(connector, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = peer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(viper.GetInt("timeout"))*time.Second)
	defer cancel()

	return fn(ctx, peer)
}
