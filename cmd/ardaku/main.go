// Command ardaku runs a single Wasm guest against a console-backed System:
// the guest's Log portal traffic is printed through logrus and its Prompt
// portal reads lines from stdin.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ardaku/ardaku"
	"github.com/ardaku/ardaku/consolesystem"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ardaku <wasm-file>",
		Short: "Run a capability-oriented Wasm guest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at debug severity")
	return cmd
}

func run(ctx context.Context, path string, verbose bool) error {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	logger := logrus.StandardLogger()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	sys := consolesystem.New(logger, os.Stdin)

	if err := ardaku.Run(ctx, wasmBytes, sys, ardaku.WithLogger(logger)); err != nil {
		return fmt.Errorf("running %s: %w", path, err)
	}
	return nil
}
