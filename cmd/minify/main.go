package main

import (
	"fmt"
	"os"

	"github.com/minifyco/minify/internal/server"
	"github.com/minifyco/minify/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "tokens":
		cmdTokens(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	case "auth":
		cmdAuth(os.Args[2:])
	case "history":
		cmdHistory(os.Args[2:])
	case "service":
		cmdService(os.Args[2:])
	case "init-config":
		cmdInitConfig(os.Args[2:])
	case "version":
		fmt.Println(version.String())
	case "help", "--help", "-h":
		printUsage()
	default:
		cmdMinify(os.Args[1], os.Args[2:])
	}
}

func printUsage() {
	fmt.Printf(`Usage: minify <format> <path|-> [--benchmark]

Formats: %v

Commands:
  <format> <path|-> [--benchmark]  Minify a file (or stdin, with "-") and
                                    print the result to stdout
  tokens <format> <path|->         Report token counts before/after minifying
  serve [--addr] [--config]        Run the HTTP daemon
  auth set-token                   Store the daemon's bearer auth token
  auth clear-token                 Remove the stored bearer auth token
  history [--limit N]              List recent minify jobs from the job history
  service install                  Install the daemon as a macOS launchd user agent
  service uninstall                Remove the installed launchd user agent
  init-config [path]                Write a default config file
  version                          Print version information
  help                             Show this help message
`, server.Formats)
}
