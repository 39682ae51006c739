package compiler

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/loomkit/loom/expr"
)

const runtimeModule = "@loom/core/runtime"

// Result is one transformed module, handed to the bundler as TypeScript.
type Result struct {
	Contents string
	Loader   string
}

// Options configures a compiler instance.
type Options struct {
	// Dev prints advisory diagnostics with source context and keeps
	// selectors readable.
	Dev bool
	// MinifySelectors rewrites registered selectors to short aliases via
	// the selector table.
	MinifySelectors bool
	// Budget bounds compile-time evaluation. Zero means DefaultBudget.
	Budget expr.Budget
}

// Compiler transforms component modules. The registry is shared across
// files so nested component calls resolve no matter which file defines
// them; populate it with AddSource before transforming a multi-file build.
type Compiler struct {
	registry  *Registry
	selectors *SelectorTable
	budget    expr.Budget
	dev       bool
	minify    bool

	mu       sync.Mutex
	programs map[string][]*Program
}

func NewCompiler(opts Options) *Compiler {
	budget := opts.Budget
	if budget == (expr.Budget{}) {
		budget = expr.DefaultBudget()
	}
	return &Compiler{
		registry:  NewRegistry(),
		selectors: NewSelectorTable(),
		budget:    budget,
		dev:       opts.Dev,
		minify:    opts.MinifySelectors,
		programs:  make(map[string][]*Program),
	}
}

func (c *Compiler) Registry() *Registry       { return c.registry }
func (c *Compiler) Selectors() *SelectorTable { return c.selectors }

// AddSource pre-registers the definitions in one module so other files can
// inline calls to them.
func (c *Compiler) AddSource(source, path string) int {
	return c.registry.AddSource(source, path)
}

// Programs returns the components last compiled from one path, in source
// order.
func (c *Compiler) Programs(path string) []*Program {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.programs[path]
}

// Paths lists every transformed module, sorted.
func (c *Compiler) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.programs))
	for p := range c.programs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// edit is one splice into the module source, applied back to front so
// offsets never shift under later edits.
type edit struct {
	start, end int
	text       string
}

// Transform compiles every component definition in source and splices the
// results back: the render template collapses to its static markup string,
// an initializeBindings method is inserted after produceMarkup, and the
// runtime primitives the bindings use are imported. Files without a render
// template pass through untouched, which also makes the transform
// idempotent: generated output holds no tagged template for a second run
// to find. A panic while compiling one file is contained to that file.
func (c *Compiler) Transform(source, path string) (res *Result, err error) {
	if !strings.Contains(source, "html`") {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "[loom] %s: transform failed: %v; file passed through unchanged\n", path, r)
			res, err = nil, nil
		}
	}()

	defs, scanDiags := scanDefinitions(source, path)
	diags := scanDiags
	for _, def := range defs {
		c.registry.Add(Definition{Name: def.Name, Selector: def.Selector, Kind: def.Kind})
	}

	var edits []edit
	var programs []*Program
	for _, def := range defs {
		if def.MarkupStart == 0 {
			continue
		}
		prog, pdiags := c.buildProgram(source, def)
		diags = append(diags, pdiags...)
		programs = append(programs, prog)

		edits = append(edits, edit{def.MarkupStart, def.MarkupEnd, jsString(prog.Static)})
		edits = append(edits, edit{def.InsertAt, def.InsertAt, bindingsMethod(prog.Setup)})
		if c.minify {
			alias := c.selectors.Alias(prog.Selector)
			edits = append(edits, edit{def.SelStart, def.SelEnd, jsString(alias)})
		}
	}
	if c.dev {
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "[loom] %s%s", d.String(), diagContext(d))
		}
	}
	if len(edits) == 0 {
		return nil, nil
	}

	if line := importLine(programs); line != "" {
		edits = append(edits, edit{0, 0, line})
	}
	c.mu.Lock()
	c.programs[path] = programs
	c.mu.Unlock()

	return &Result{Contents: applyEdits(source, edits), Loader: "ts"}, nil
}

// buildProgram compiles one definition: fold the class constants, inline
// resolvable nested component calls, compile the render body into a scope
// tree, and print the setup source.
func (c *Compiler) buildProgram(source string, def *componentDef) (*Program, []Diagnostic) {
	fc := foldClass(def, c.budget)
	fc.foldCells(moduleSignals(source), c.budget)
	body, diags := c.inlineComponentCalls(source, def.templateBody(source), def.BodyStart, fc, def)

	bc := &buildContext{c: c, def: def, fc: fc, source: source}
	root := &Scope{Kind: ScopeRoot}
	static := bc.buildTree(body, def.BodyStart, nil, root)
	setup, uses := emitSetup(root, bc.handlers)

	prog := &Program{
		Name:        def.Name,
		Selector:    def.Selector,
		Kind:        def.Kind,
		Static:      static,
		Setup:       setup,
		Uses:        uses,
		Root:        root,
		Handlers:    bc.handlers,
		Fingerprint: xxhash.Sum64String(static + "\x00" + setup),
	}
	return prog, append(diags, bc.diags...)
}

func bindingsMethod(setup string) string {
	if setup == "" {
		return "\n\n  initializeBindings(__root: ShadowRoot): void {}"
	}
	return "\n\n  initializeBindings(__root: ShadowRoot): void {\n" + setup + "\n  }"
}

// importLine declares the runtime primitives the generated methods call.
func importLine(programs []*Program) string {
	seen := map[string]bool{}
	var names []string
	for _, p := range programs {
		for _, u := range p.Uses {
			if !seen[u] {
				seen[u] = true
				names = append(names, u)
			}
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return "import { " + strings.Join(names, ", ") + " } from \"" + runtimeModule + "\";\n"
}

func applyEdits(source string, edits []edit) string {
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start > edits[j].start
		}
		return edits[i].end > edits[j].end
	})
	out := source
	for _, e := range edits {
		out = out[:e.start] + e.text + out[e.end:]
	}
	return out
}

func diagContext(d Diagnostic) string {
	if d.Context == "" {
		return "\n"
	}
	return d.Context
}

// Transform compiles a single module with a fresh compiler, for callers
// that do not run a build-wide registry pass.
func Transform(source, path string) (*Result, error) {
	return NewCompiler(Options{}).Transform(source, path)
}
