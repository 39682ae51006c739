package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"

	"github.com/loomkit/loom/expr"
)

// config is the loom.toml shape. Flags override file values, file values
// override the defaults.
type config struct {
	Roots           []string     `toml:"roots"`
	Out             string       `toml:"out"`
	Dev             bool         `toml:"dev"`
	MinifySelectors bool         `toml:"minify_selectors"`
	Budget          budgetConfig `toml:"budget"`
}

// budgetConfig bounds compile-time evaluation. Zero fields keep the
// built-in defaults.
type budgetConfig struct {
	MaxSteps  int   `toml:"max_steps"`
	MaxDepth  int   `toml:"max_depth"`
	TimeoutMS int64 `toml:"timeout_ms"`
}

func defaultConfig() config {
	return config{
		Roots: []string{"src"},
		Out:   "dist",
	}
}

// loadConfig reads path and applies the command's flags on top. A missing
// file is not an error unless the flag named it explicitly.
func loadConfig(cmd *cli.Command) (config, error) {
	cfg := defaultConfig()
	path := cmd.String(configKey)

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
		if cmd.IsSet(configKey) {
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if cmd.IsSet(rootKey) {
		cfg.Roots = cmd.StringSlice(rootKey)
	}
	if cmd.IsSet(outKey) {
		cfg.Out = cmd.String(outKey)
	}
	if cmd.IsSet(devKey) {
		cfg.Dev = cmd.Bool(devKey)
	}
	if cmd.IsSet(minifyKey) {
		cfg.MinifySelectors = cmd.Bool(minifyKey)
	}
	if len(cfg.Roots) == 0 {
		return cfg, fmt.Errorf("no source roots configured")
	}
	return cfg, nil
}

func (b budgetConfig) budget() expr.Budget {
	out := expr.DefaultBudget()
	if b.MaxSteps > 0 {
		out.MaxSteps = b.MaxSteps
	}
	if b.MaxDepth > 0 {
		out.MaxDepth = b.MaxDepth
	}
	if b.TimeoutMS > 0 {
		out.Timeout = time.Duration(b.TimeoutMS) * time.Millisecond
	}
	return out
}
