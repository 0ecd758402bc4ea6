// Package main is the entry point for the genie-copilot CLI binary.
package main

import (
	"os"

	cli "genie-copilot/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
