package main

import (
	"os"

	"github.com/simaogato/tradejournal-backend/cmd/journal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
