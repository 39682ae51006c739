package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

const (
	configKey   = "config"
	rootKey     = "root"
	outKey      = "out"
	devKey      = "dev"
	minifyKey   = "minify"
	statsKey    = "stats"
	debounceKey = "debounce"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("loom: ")

	cmd := &cli.Command{
		Name:  "loom",
		Usage: "Compile template components to static markup and binding setup",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configKey,
				Usage: "Project config file",
				Value: "loom.toml",
			},
			&cli.StringSliceFlag{
				Name:  rootKey,
				Usage: "Source root to scan (repeatable, overrides config)",
			},
			&cli.StringFlag{
				Name:  outKey,
				Usage: "Output directory (overrides config)",
			},
			&cli.BoolFlag{
				Name:  devKey,
				Usage: "Print advisory diagnostics with source context",
			},
			&cli.BoolFlag{
				Name:  minifyKey,
				Usage: "Rewrite registered selectors to short aliases",
			},
		},
		Commands: []*cli.Command{
			buildCommand(),
			watchCommand(),
			inspectCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
