// Package cmd implements the command-line interface of hasten. It provides
// a hierarchical command structure for running a server and talking to it
// as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring a hasten server
//   - call: Commands for invoking demo-service methods and pinging a server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See hasten -help for a list of all commands.
package cmd
