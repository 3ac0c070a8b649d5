package main

import (
	"fmt"
	"os"

	"github.com/minifyco/minify/internal/config"
	"github.com/minifyco/minify/internal/daemon"
)

// cmdServe implements `minify serve [--addr] [--config]`.
func cmdServe(args []string) {
	var configPath, addr string
	foreground := true

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 < len(args) {
				i++
				configPath = args[i]
			}
		case "--addr":
			if i+1 < len(args) {
				i++
				addr = args[i]
			}
		case "--foreground":
			foreground = true
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minify: loading config: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	if err := daemon.Run(cfg, foreground); err != nil {
		fmt.Fprintf(os.Stderr, "minify: %v\n", err)
		os.Exit(1)
	}
}
