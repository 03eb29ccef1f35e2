package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cmdUtil "github.com/oleh-synelnykov/hasten/cmd/util"
	"github.com/oleh-synelnykov/hasten/rpc/codec"
	"github.com/oleh-synelnykov/hasten/rpc/common"
	"github.com/oleh-synelnykov/hasten/rpc/dispatch"
	"github.com/oleh-synelnykov/hasten/rpc/runtime"
)

// Built-in demo service ids, also used by the call command.
const (
	DemoServiceID  uint32 = 1
	EchoMethodID   uint32 = 1
	DoubleMethodID uint32 = 2
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a hasten server with the built-in demo service",
	Long: `Start a hasten server with the specified configuration. The configuration
can be set via command line flags or environment variables. The format of the
environment variables is HASTEN_<flag> (e.g. HASTEN_LOG_LEVEL=debug).

The server exposes the demo service (service id 1): method 1 echoes a string,
method 2 doubles an int64.`,
	RunE: run,
}

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add connection flags
	cmdUtil.SetupRPCFlags(ServeCmd)

	key := "rate-limit"
	ServeCmd.PersistentFlags().Float64(key, 0, cmdUtil.WrapString("Requests per second the server accepts before shedding (0 disables rate limiting)"))

	key = "shutdown-timeout"
	ServeCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("Seconds to wait for live sessions to drain on shutdown"))
}

// RegisterDemoService binds the demo handlers used by serve and the
// integration examples.
func RegisterDemoService(d *dispatch.Dispatcher) error {
	if err := d.Register(DemoServiceID, EchoMethodID, dispatch.Handler{
		Args:   codec.StringShape,
		Result: codec.StringShape,
		Fn: func(_ context.Context, call dispatch.Call) (any, error) {
			return call.Args, nil
		},
	}); err != nil {
		return err
	}
	return d.Register(DemoServiceID, DoubleMethodID, dispatch.Handler{
		Args:   codec.Int64Shape,
		Result: codec.Int64Shape,
		Fn: func(_ context.Context, call dispatch.Call) (any, error) {
			return call.Args.(int64) * 2, nil
		},
	})
}

// run starts the hasten server
func run(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	cfg := cmdUtil.GetConfig()
	common.InitLoggers(cfg.LogLevel)
	fmt.Println(cfg.String())

	connector, err := cmdUtil.GetServerConnector()
	if err != nil {
		return err
	}

	dispatcher := dispatch.NewDispatcher()
	dispatcher.Use(dispatch.Logging())
	if rps, _ := cmd.Flags().GetFloat64("rate-limit"); rps > 0 {
		dispatcher.Use(dispatch.RateLimit(rps, int(rps)))
	}
	if err := RegisterDemoService(dispatcher); err != nil {
		return err
	}

	srv := runtime.NewServer(connector, cfg, dispatcher)

	// shut down gracefully on SIGINT/SIGTERM
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		runtime.Logger.Infof("received %v, shutting down", sig)
		timeout, _ := cmd.Flags().GetInt("shutdown-timeout")
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			runtime.Logger.Errorf("shutdown incomplete: %v", err)
		}
	}()

	return srv.Serve()
}
