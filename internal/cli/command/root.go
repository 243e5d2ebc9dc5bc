// Package command provides CLI command definitions for bloomgate-cli.
//
// It uses urfave/cli/v2 for command parsing. Each command performs one
// protocol round trip and prints the server's response.
package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/bloomgate-go/internal/cli/connection"
	"github.com/yndnr/bloomgate-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "bloomgate-cli",
		Usage:   "BloomGate command-line client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			CreateCommand(),
			SetCommand(),
			CheckCommand(),
			InfoCommand(),
			ClearCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "BloomGate server address",
			EnvVars: []string{"BLOOMGATE_SERVER"},
			Value:   "127.0.0.1:4989",
		},
	}
}

// execute runs one command line against the configured server and prints
// the response.
func execute(c *cli.Context, line string) error {
	client := connection.NewClient(c.String("server"))
	defer client.Close()

	resp, err := client.Execute(line)
	if err != nil {
		return fmt.Errorf("server %s: %w", c.String("server"), err)
	}

	fmt.Fprintln(c.App.Writer, resp)
	return nil
}
