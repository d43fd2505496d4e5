package main

import (
	"fmt"
	"os"

	"github.com/benvon/goalquest/cmd/goalctl/commands"
)

func main() {
	if err := commands.NewRootCmd(commands.NewApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
