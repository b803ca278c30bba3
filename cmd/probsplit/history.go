// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/probsplit/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded extraction runs",
	Long: `History lists the most recent runs recorded in the ledger, newest first.
Given a run ID it prints that run's per-group outcomes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	path := viper.GetString("ledger")
	if path == "" {
		return fmt.Errorf("no ledger configured (set --ledger or PROBSPLIT_LEDGER)")
	}
	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx := context.Background()
	if len(args) == 1 {
		run, err := l.Get(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  %s  %d/%d succeeded\n", run.ID, run.Input, run.Grouping, run.Succeeded, run.Total)
		for _, o := range run.Outcomes {
			if o.Success {
				fmt.Printf("  group %3d  ok      %s\n", o.Group, filepath.Base(o.OutputPath))
			} else {
				fmt.Printf("  group %3d  failed  %s\n", o.Group, o.Err)
			}
		}
		return nil
	}

	runs, err := l.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, r := range runs {
		mode := "seq"
		if r.Parallel {
			mode = "par"
		}
		status := ""
		if r.Canceled {
			status = " (canceled)"
		}
		fmt.Printf("%s  %s  %s  %3d ok %3d failed  %s%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), mode, r.Succeeded, r.Failed, r.Input, status)
	}
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", ledger.DefaultLimit, "maximum number of runs to list")

	rootCmd.AddCommand(historyCmd)
}
