package main

import (
	"os"

	"github.com/wonny/patternscan/cmd/scan/commands"
)

// main is the entry point for the patternscan CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/scan [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
