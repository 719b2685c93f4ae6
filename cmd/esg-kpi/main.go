package main

import (
	"fmt"
	"os"

	"esg-kpi/cmd/esg-kpi/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
