// Package main provides the entry point for the editorbridge CLI.
package main

import (
	"fmt"
	"os"

	"github.com/opencode-ai/editorbridge/cmd/editorbridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
