package main

import (
	"os"

	"github.com/slopilot/slopilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
