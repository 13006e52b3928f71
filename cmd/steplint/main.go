// Package main provides the steplint CLI.
package main

import (
	"os"

	"github.com/steplint-dev/steplint/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
