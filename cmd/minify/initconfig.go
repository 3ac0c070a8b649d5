package main

import (
	"fmt"
	"os"

	"github.com/minifyco/minify/internal/config"
)

// cmdInitConfig implements `minify init-config [path]`.
func cmdInitConfig(args []string) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	if err := config.InitConfig(path); err != nil {
		fmt.Fprintf(os.Stderr, "minify: %v\n", err)
		os.Exit(1)
	}
}
