// Package main is the entry point for the trino-cli binary.
package main

import (
	"os"

	"github.com/ethanyzhang/trino-go/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
