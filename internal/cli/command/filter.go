package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"
)

// CreateCommand creates a named filter.
func CreateCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "create a filter",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:    "capacity",
				Aliases: []string{"n"},
				Usage:   "expected number of keys (server default when omitted)",
			},
			&cli.Float64Flag{
				Name:    "fpp",
				Aliases: []string{"p"},
				Usage:   "target false positive probability (server default when omitted)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: create <name>")
			}
			line := "create " + c.Args().First()
			if c.IsSet("capacity") || c.IsSet("fpp") {
				capacity := c.Uint64("capacity")
				if capacity == 0 {
					capacity = 10000
				}
				line += " " + strconv.FormatUint(capacity, 10)
				if c.IsSet("fpp") {
					line += " " + strconv.FormatFloat(c.Float64("fpp"), 'g', -1, 64)
				}
			}
			return execute(c, line)
		},
	}
}

// SetCommand adds a key to a filter.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "add a key to a filter",
		ArgsUsage: "<name> <key>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("usage: set <name> <key>")
			}
			return execute(c, "set "+c.Args().Get(0)+" "+c.Args().Get(1))
		},
	}
}

// CheckCommand tests key membership.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "test whether a key may be in a filter",
		ArgsUsage: "<name> <key>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("usage: check <name> <key>")
			}
			return execute(c, "check "+c.Args().Get(0)+" "+c.Args().Get(1))
		},
	}
}

// InfoCommand prints a filter's parameters and counters.
func InfoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "show filter parameters and counters",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: info <name>")
			}
			return execute(c, "info "+c.Args().First())
		},
	}
}

// ClearCommand resets a filter's contents.
func ClearCommand() *cli.Command {
	return &cli.Command{
		Name:      "clear",
		Usage:     "remove all keys from a filter",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: clear <name>")
			}
			return execute(c, "clear "+c.Args().First())
		},
	}
}
