package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Validate declaration files",
		ArgsUsage: "decl.yaml...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("check needs at least one declaration file", 2)
			}
			failed := 0
			for _, path := range c.Args().Slice() {
				cat, err := loadFile(path)
				if err != nil {
					fmt.Fprintf(c.App.ErrWriter, "FAIL %v\n", err)
					failed++
					continue
				}
				fmt.Fprintf(c.App.Writer, "ok   %s: %d types, %d functions\n",
					path, len(cat.Types()), len(cat.Funcs()))
			}
			if failed > 0 {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}
