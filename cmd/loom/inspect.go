package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/loomkit/loom/compiler"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the compiled form of one module",
		ArgsUsage: "<file.ts>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("inspect needs a file argument")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runInspect(cfg, path)
		},
	}
}

func runInspect(cfg config, path string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c := compiler.NewCompiler(compiler.Options{
		Dev:             cfg.Dev,
		MinifySelectors: cfg.MinifySelectors,
		Budget:          cfg.Budget.budget(),
	})
	res, err := c.Transform(string(text), path)
	if err != nil {
		return err
	}
	if res == nil {
		fmt.Printf("%s: no component templates\n", path)
		return nil
	}
	for _, prog := range c.Programs(path) {
		printProgram(prog)
	}
	return nil
}

func printProgram(p *compiler.Program) {
	fmt.Printf("%s %q  fingerprint %016x\n", p.Kind, p.Selector, p.Fingerprint)
	fmt.Printf("  static %d bytes, %d scopes, %d bindings\n",
		len(p.Static), p.ScopeCount(), p.BindingCount())
	printScope(p.Root, "  ")
	if len(p.Handlers) > 0 {
		fmt.Println("  delegated handlers:")
		for _, h := range p.Handlers {
			fmt.Printf("    %s @%s%s  %s\n", h.ID, h.Event, modSuffix(h.Modifiers), h.Handler)
		}
	}
	if p.Setup != "" {
		fmt.Println("  setup:")
		for _, line := range strings.Split(p.Setup, "\n") {
			fmt.Printf("  %s\n", line)
		}
	}
	fmt.Println()
}

func printScope(s *compiler.Scope, indent string) {
	switch s.Kind {
	case compiler.ScopeRoot:
		fmt.Printf("%sroot\n", indent)
	case compiler.ScopeIf, compiler.ScopeIfExpr:
		neg := ""
		if s.Negate {
			neg = "!"
		}
		fmt.Printf("%s%s %s  cond %s%s  deps %v\n", indent, s.Kind, s.Anchor, neg, s.Cond, s.Deps)
	case compiler.ScopeRepeat, compiler.ScopeNestedRepeat:
		fmt.Printf("%s%s %s  array %s  param %s\n", indent, s.Kind, s.Anchor, s.Array, s.ItemParam)
	}
	for _, t := range s.Texts {
		fmt.Printf("%s  text %s  %s  deps %v\n", indent, t.Anchor, t.Expr, t.Deps)
	}
	for _, a := range s.Attrs {
		kind := "attr"
		if a.Style {
			kind = "style"
		}
		fmt.Printf("%s  %s %s  %s = %s\n", indent, kind, a.Owner, a.Name, strings.Join(a.Exprs, " + "))
	}
	for _, e := range s.Events {
		fmt.Printf("%s  event %s @%s%s  %s\n", indent, e.ID, e.Event, modSuffix(e.Modifiers), e.Handler)
	}
	for _, c := range s.Children {
		printScope(c, indent+"  ")
	}
}

func modSuffix(mods []string) string {
	if len(mods) == 0 {
		return ""
	}
	return "." + strings.Join(mods, ".")
}
