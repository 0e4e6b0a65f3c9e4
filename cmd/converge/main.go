// Package main is the converge binary: a CLI for checking, resolving
// and continuously converging a fleet of SQL stores.
package main

import (
	"os"

	"github.com/sylvanix/converge/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
