package main

import (
	"fmt"
	"os"

	"github.com/getcharzp/go-kittentts/cmd/kittentts/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
