package main

import "github.com/oleh-synelnykov/hasten/cmd"

func main() {
	cmd.Execute()
}
