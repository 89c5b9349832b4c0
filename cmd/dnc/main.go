package main

import (
	"os"

	"github.com/unixpickle/dnc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
