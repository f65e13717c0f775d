package main

import (
	"os"

	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
