package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oleh-synelnykov/hasten/cmd/call"
	"github.com/oleh-synelnykov/hasten/cmd/serve"
	"github.com/oleh-synelnykov/hasten/cmd/util"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "hasten",
		Short: "local RPC runtime",
		Long: fmt.Sprintf(`hasten (v%s)

A frame-based RPC runtime for processes on the same machine, speaking a
compact binary protocol over unix domain sockets or loopback TCP.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hasten",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hasten v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(call.CallCmd)
	RootCmd.AddCommand(call.PingCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "unix", util.WrapString("transport to use (unix, tcp)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
