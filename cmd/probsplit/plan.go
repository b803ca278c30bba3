// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/probsplit/internal/extract"
)

var planCmd = &cobra.Command{
	Use:   "plan <document>...",
	Short: "Show the groups and filenames extract would produce",
	Long: `Plan opens each document, discovers markers, blocks and groups exactly as
extract does, and prints every group's block span and target file without
writing anything.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	asYAML, _ := cmd.Flags().GetBool("yaml")

	cfg, err := extractionConfig()
	if err != nil {
		return err
	}

	runner := &extract.Runner{Engines: defaultRegistry()}
	var plans []extract.Plan
	for _, c := range extract.InputConfigs(cfg, args) {
		p, err := runner.Plan(context.Background(), c, os.Stderr)
		if err != nil {
			return err
		}
		plans = append(plans, p)
	}

	if asYAML {
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(plans)
	}
	for _, p := range plans {
		p.Summary(os.Stdout)
	}
	return nil
}

func init() {
	addExtractionFlags(planCmd)
	planCmd.Flags().Bool("yaml", false, "print the plan as YAML")

	rootCmd.AddCommand(planCmd)
}
