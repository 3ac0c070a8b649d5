package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/minifyco/minify/internal/cache"
	"github.com/minifyco/minify/internal/config"
	"github.com/minifyco/minify/internal/diag"
	"github.com/minifyco/minify/internal/server"
	"github.com/minifyco/minify/internal/store"
)

// cmdMinify implements spec.md's exact CLI contract:
// minify <format> <path|-> [--benchmark]
func cmdMinify(format string, args []string) {
	var path string
	benchmark := false
	for _, a := range args {
		if a == "--benchmark" {
			benchmark = true
			continue
		}
		if path == "" {
			path = a
		}
	}

	if path == "" {
		fmt.Fprintf(os.Stderr, "Usage: minify %s <path|-> [--benchmark]\n", format)
		os.Exit(1)
	}

	input, err := readInput(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minify: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load("")
	if err != nil {
		cfg = config.Get()
	}

	m := buildMinifier(cfg)

	if _, ok := m.Registry.Lookup(format); !ok {
		fmt.Fprintf(os.Stderr, "minify: unsupported format %q\n", format)
		os.Exit(1)
	}

	result, rep := m.Run(context.Background(), format, input)
	if rep != nil {
		fmt.Fprintln(os.Stderr, diag.Resolve(input, rep))
		os.Exit(1)
	}

	if benchmark {
		fmt.Printf("Reduced the size by %.1f%% from %d to %d bytes\n",
			result.ReducedPct, result.InputBytes, result.OutputBytes)
		return
	}

	os.Stdout.Write(result.Output)
}

// readInput reads path, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(filepath.Clean(path))
}

// buildMinifier wires a Minifier for a single CLI invocation: an
// ephemeral in-memory cache (of no use across processes, but exercised
// identically to the daemon's) and, when configured, the same SQLite job
// history the daemon writes to.
func buildMinifier(cfg *config.Config) *server.Minifier {
	c, err := cache.New(cfg.Cache.Size, time.Duration(cfg.Cache.TTLSeconds)*time.Second, cfg.Cache.Enabled)
	if err != nil {
		c, _ = cache.New(1, time.Minute, false)
	}

	var st *store.Store
	if cfg.Store.Enabled {
		dbPath := filepath.Join(cfg.Server.DataDir, "minify.db")
		if opened, openErr := store.Open(dbPath); openErr == nil {
			st = opened
		}
	}

	return server.NewMinifier(c, st, nil)
}
