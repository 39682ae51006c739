package main

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/loomkit/loom/compiler"
)

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Transform every component module under the source roots",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  statsKey,
				Usage: "Print a per-file transform report",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runBuild(cfg, cmd.Bool(statsKey))
		},
	}
}

type sourceFile struct {
	root string
	path string
	rel  string
	text string
}

func collectSources(roots []string) ([]sourceFile, error) {
	var files []sourceFile
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == root {
					return nil
				}
				if name := d.Name(); name == "node_modules" || strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !isSource(path) {
				return nil
			}
			text, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			files = append(files, sourceFile{root: root, path: path, rel: rel, text: string(text)})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files, nil
}

func isSource(path string) bool {
	return strings.HasSuffix(path, ".ts") && !strings.HasSuffix(path, ".d.ts")
}

type transformStat struct {
	rel        string
	components int
	scopes     int
	bindings   int
	inBytes    int
	outBytes   int
	took       time.Duration
}

func runBuild(cfg config, stats bool) error {
	start := time.Now()
	files, err := collectSources(cfg.Roots)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Printf("no .ts sources under %s", strings.Join(cfg.Roots, ", "))
		return nil
	}

	c := compiler.NewCompiler(compiler.Options{
		Dev:             cfg.Dev,
		MinifySelectors: cfg.MinifySelectors,
		Budget:          cfg.Budget.budget(),
	})
	// Pre-register every definition so nested component calls resolve no
	// matter which worker reaches the caller first.
	for _, f := range files {
		c.AddSource(f.text, f.path)
	}

	type outcome struct {
		file sourceFile
		res  *compiler.Result
		took time.Duration
		err  error
	}
	jobs := make(chan sourceFile)
	results := make(chan outcome)
	workers := runtime.NumCPU()
	if workers > len(files) {
		workers = len(files)
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				t0 := time.Now()
				res, terr := c.Transform(f.text, f.path)
				results <- outcome{file: f, res: res, took: time.Since(t0), err: terr}
			}
		}()
	}
	go func() {
		for _, f := range files {
			jobs <- f
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var rows []transformStat
	var writeErr error
	compiled := 0
	for out := range results {
		if out.err != nil {
			log.Printf("%s: %v", out.file.path, out.err)
			continue
		}
		text := out.file.text
		if out.res != nil {
			text = out.res.Contents
			compiled++
			st := transformStat{
				rel:      out.file.rel,
				inBytes:  len(out.file.text),
				outBytes: len(text),
				took:     out.took,
			}
			for _, p := range c.Programs(out.file.path) {
				st.components++
				st.scopes += p.ScopeCount()
				st.bindings += p.BindingCount()
			}
			rows = append(rows, st)
		}
		if writeErr == nil {
			writeErr = writeOutput(cfg.Out, out.file.rel, text)
		}
	}
	if writeErr != nil {
		return writeErr
	}

	log.Printf("compiled %d of %d files to %s in %s",
		compiled, len(files), cfg.Out, time.Since(start).Round(time.Millisecond))
	if stats && len(rows) > 0 {
		renderStats(rows)
	}
	return nil
}

func writeOutput(outDir, rel, text string) error {
	path := filepath.Join(outDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func renderStats(rows []transformStat) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].rel < rows[j].rel })

	tach := tachymeter.New(&tachymeter.Config{Size: len(rows)})
	tbl := table.NewWriter()
	tbl.SetTitle("Transform Report")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"file", "components", "scopes", "bindings", "in", "out", "time"})
	for _, r := range rows {
		tach.AddTime(r.took)
		tbl.AppendRows([]table.Row{{
			r.rel,
			r.components,
			r.scopes,
			r.bindings,
			humanize.Bytes(uint64(r.inBytes)),
			humanize.Bytes(uint64(r.outBytes)),
			r.took.Round(time.Microsecond),
		}})
	}
	tbl.Render()

	calc := tach.Calc()
	log.Printf("transform avg %s p75 %s p99 %s max %s",
		calc.Time.Avg, calc.Time.P75, calc.Time.P99, calc.Time.Max)
}
