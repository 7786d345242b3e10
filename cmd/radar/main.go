package main

import (
	"os"

	"github.com/lifesciencesignals/radar/cmd/radar/commands"
)

// main is the entry point for the radar CLI
// Usage: go run ./cmd/radar [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
