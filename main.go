package main

import (
	"os"

	"github.com/example/dojang/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
