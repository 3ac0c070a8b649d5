package main

import (
	"fmt"
	"os"

	"github.com/minifyco/minify/internal/daemon"
)

// cmdService implements `minify service install` / `minify service uninstall`.
func cmdService(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: minify service <install|uninstall>")
		os.Exit(1)
	}

	switch args[0] {
	case "install":
		if err := daemon.InstallService(); err != nil {
			fmt.Fprintf(os.Stderr, "error installing service: %v\n", err)
			os.Exit(1)
		}

	case "uninstall":
		if err := daemon.UninstallService(); err != nil {
			fmt.Fprintf(os.Stderr, "error uninstalling service: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown service command: %s\n", args[0])
		os.Exit(1)
	}
}
