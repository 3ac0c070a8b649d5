package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/minifyco/minify/internal/config"
	"github.com/minifyco/minify/internal/store"
)

// cmdHistory implements `minify history [--limit N]`, reading directly
// from the same SQLite job history the daemon writes to.
func cmdHistory(args []string) {
	limit := 20
	for i := 0; i < len(args); i++ {
		if args[i] == "--limit" && i+1 < len(args) {
			i++
			if n, err := strconv.Atoi(args[i]); err == nil && n > 0 {
				limit = n
			}
		}
	}

	cfg := config.Get()
	if !cfg.Store.Enabled {
		fmt.Fprintln(os.Stderr, "minify: job history is disabled (store.enabled = false)")
		os.Exit(1)
	}

	dbPath := filepath.Join(cfg.Server.DataDir, "minify.db")
	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minify: opening store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	jobs, err := st.ListJobs(limit, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minify: listing jobs: %v\n", err)
		os.Exit(1)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs recorded yet")
		return
	}

	for _, j := range jobs {
		status := "ok"
		if j.ErrorTemplate != "" {
			status = "error"
		}
		fmt.Printf("%s  %-6s %6d -> %-6d (%.1f%%)  %5dms  %s\n",
			j.CreatedAt, j.Format, j.InputBytes, j.OutputBytes, j.ReducedPct, j.DurationMs, status)
	}
}
