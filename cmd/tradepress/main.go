package main

import (
	"os"

	"github.com/wonny/tradepress/cmd/tradepress/commands"
)

// main is the entry point for the TradePress CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/tradepress [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
