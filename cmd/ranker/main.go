package main

import (
	"os"

	"github.com/wonny/toprank/cmd/ranker/commands"
)

// main is the entry point for the toprank CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/ranker [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
