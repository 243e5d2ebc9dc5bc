// Package main provides the entry point for bloomgate-cli.
//
// bloomgate-cli is the command-line client for BloomGate: each invocation
// performs one protocol command against a running server.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/bloomgate-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
