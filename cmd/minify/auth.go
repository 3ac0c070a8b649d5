package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/minifyco/minify/internal/vault"
	"golang.org/x/term"
)

// cmdAuth implements `minify auth set-token` / `minify auth clear-token`.
func cmdAuth(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: minify auth <set-token|clear-token>")
		os.Exit(1)
	}

	v := vault.New()

	switch args[0] {
	case "set-token":
		fmt.Print("Enter bearer auth token: ")
		token, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading token: %v\n", err)
			os.Exit(1)
		}
		if err := v.Set(string(token)); err != nil {
			fmt.Fprintf(os.Stderr, "error storing token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Auth token stored successfully")

	case "clear-token":
		if err := v.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "error clearing token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Auth token cleared")

	default:
		fmt.Fprintf(os.Stderr, "unknown auth command: %s\n", args[0])
		os.Exit(1)
	}
}
