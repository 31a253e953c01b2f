package main

import (
	"os"

	"github.com/wonny/dipbot/cmd/quant/commands"
)

// main is the entry point for the dipbot CLI
// ⭐ single CLI entry point: go run ./cmd/quant [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
