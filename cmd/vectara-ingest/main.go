package main

import (
	"fmt"
	"os"

	"github.com/LadyD56/vectara-ingest/cmd/vectara-ingest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
