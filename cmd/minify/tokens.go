package main

import (
	"context"
	"fmt"
	"os"

	"github.com/minifyco/minify/internal/config"
	"github.com/minifyco/minify/internal/diag"
	"github.com/minifyco/minify/internal/tokenizer"
)

// cmdTokens implements `minify tokens <format> <path|->`: it reports the
// approximate LLM prompt-token count of the input versus the minified
// output, the corpus's original motivating use case.
func cmdTokens(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: minify tokens <format> <path|->")
		os.Exit(1)
	}
	format, path := args[0], args[1]

	input, err := readInput(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minify: %v\n", err)
		os.Exit(1)
	}

	m := buildMinifier(config.Get())
	if _, ok := m.Registry.Lookup(format); !ok {
		fmt.Fprintf(os.Stderr, "minify: unsupported format %q\n", format)
		os.Exit(1)
	}

	result, rep := m.Run(context.Background(), format, input)
	if rep != nil {
		fmt.Fprintln(os.Stderr, diag.Resolve(input, rep))
		os.Exit(1)
	}

	tok := tokenizer.New()
	before := tok.Count(string(input))
	after := tok.Count(string(result.Output))
	saved := before - after
	var pct float64
	if before > 0 {
		pct = float64(saved) / float64(before) * 100
	}

	fmt.Printf("tokens_in=%d tokens_out=%d tokens_saved=%d (%.1f%%)\n", before, after, saved, pct)
}
