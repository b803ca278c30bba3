// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/probsplit/internal/worker"
)

// workerCmd is the entry point parallel extraction re-executes. It reads
// one JSON job on stdin and writes one JSON result on stdout.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Extract a single group from a private duplicate (internal)",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return worker.Serve(os.Stdin, os.Stdout, defaultRegistry())
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
