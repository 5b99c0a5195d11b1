// Package main provides the entry point for the trialkit CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gxo-labs/trialkit/internal/cli"
)

func main() {
	app := cli.New()
	if err := app.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
