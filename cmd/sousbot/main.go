package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sousbot/sousbot/pkg/cli"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	// Local .env is optional; missing files are fine.
	_ = godotenv.Load()

	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
