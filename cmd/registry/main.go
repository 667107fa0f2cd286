package main

import (
	"os"

	"github.com/masumi-network/registry-service/internal/cli"
)

func main() {
	if err := cli.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
