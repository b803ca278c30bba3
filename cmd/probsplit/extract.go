// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/probsplit/internal/extract"
	"github.com/pdiddy/probsplit/internal/ledger"
	"github.com/pdiddy/probsplit/internal/scan"
	"github.com/pdiddy/probsplit/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract <document>...",
	Short: "Split documents into one file per problem",
	Long: `Extract scans each document for footnote and endnote markers, cuts the
content into blocks at the markers, groups the blocks, and writes one file
per group into the output directory.

With more than one document each input writes into its own subdirectory
named after the file. With --parallel every group is extracted by a
separate worker process working on a private copy of the document.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := extractionConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &extract.Runner{
		Engines: defaultRegistry(),
		Scans:   scan.NewCache(10*time.Minute, time.Minute),
	}
	if path := viper.GetString("ledger"); path != "" {
		l, err := ledger.Open(path)
		if err != nil {
			return err
		}
		defer l.Close()
		runner.Ledger = l
	}

	var failed int
	for _, c := range extract.InputConfigs(cfg, args) {
		if len(args) > 1 {
			fmt.Fprintf(os.Stdout, "\n== %s\n", c.InputPath)
		}
		res, err := runner.Run(ctx, c, os.Stdout)
		if err != nil {
			return err
		}
		failed += res.Failed
		if res.Canceled {
			return types.ErrCanceled
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d group(s) failed extraction", failed)
	}
	return nil
}

func init() {
	addExtractionFlags(extractCmd)
	addParallelFlags(extractCmd)

	rootCmd.AddCommand(extractCmd)
}
