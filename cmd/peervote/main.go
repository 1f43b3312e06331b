// Package main is the entry point for the peervote CLI.
package main

import (
	"os"

	"github.com/good-yellow-bee/peervote/cmd/peervote/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
