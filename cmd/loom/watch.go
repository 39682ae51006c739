package main

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Rebuild whenever a source under the roots changes",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  debounceKey,
				Usage: "Quiet period before a rebuild",
				Value: 200 * time.Millisecond,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runWatch(ctx, cfg, cmd.Duration(debounceKey))
		},
	}
}

func runWatch(ctx context.Context, cfg config, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, root := range cfg.Roots {
		if err := watchTree(watcher, root); err != nil {
			return err
		}
	}

	if err := runBuild(cfg, false); err != nil {
		log.Printf("build: %v", err)
	}
	log.Printf("watching %s", strings.Join(cfg.Roots, ", "))

	// Armed by the first relevant event and re-armed by each one after it,
	// so a burst of writes rebuilds once.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	dirty := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				// Watches do not recurse, so a new directory needs its own.
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = watchTree(watcher, ev.Name)
					continue
				}
			}
			if !isSource(ev.Name) {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) &&
				!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			dirty = true
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: %v", err)
		case <-timer.C:
			if !dirty {
				continue
			}
			dirty = false
			// Definitions inline across files, so one change can alter any
			// module's output; the registry is rebuilt with the rest.
			if err := runBuild(cfg, false); err != nil {
				log.Printf("build: %v", err)
			}
		}
	}
}

func watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			if name := d.Name(); name == "node_modules" || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
		}
		return w.Add(path)
	})
}
