package main

import (
	"os"

	"github.com/teller-ledger/teller/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
