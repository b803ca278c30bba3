// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/probsplit/internal/engine"
	"github.com/pdiddy/probsplit/internal/engine/docx"
	"github.com/pdiddy/probsplit/internal/engine/markdown"
	"github.com/pdiddy/probsplit/pkg/types"
)

// defaultRegistry returns the engines compiled into the binary.
func defaultRegistry() *engine.Registry {
	return engine.NewRegistry(docx.New(), markdown.New())
}

// addExtractionFlags registers the flags shared by extract, plan and config.
func addExtractionFlags(cmd *cobra.Command) {
	d := types.DefaultExtractionConfig()
	cmd.Flags().StringP("output-dir", "o", "problems", "directory receiving the split files")
	cmd.Flags().String("engine", "", "document engine: docx or markdown (default: by input extension)")
	cmd.Flags().String("grouping", string(types.GroupOnePerFile), "grouping: one-per-file, by-count, or by-range")
	cmd.Flags().Int("group-size", 1, "blocks per group for by-count grouping")
	cmd.Flags().String("ranges", "", `block ranges for by-range grouping, e.g. "1-5,8-10"`)
	cmd.Flags().String("naming", string(types.NamingAuto), "naming: auto or prefix")
	cmd.Flags().String("prefix", "", "filename prefix (implies --naming prefix)")
	cmd.Flags().Bool("include-leading-block", d.LeadingBlockIncluded(), "treat the content before the first marker as problem 1")
	cmd.Flags().String("format", string(d.Format), "output format: native or markup")
	cmd.Flags().Int64("min-output-bytes", 0, "smallest plausible artifact size (0 = engine default)")
}

// addParallelFlags registers the flags that only matter for extract.
func addParallelFlags(cmd *cobra.Command) {
	d := types.DefaultExtractionConfig()
	cmd.Flags().Bool("parallel", false, "extract groups in isolated worker processes")
	cmd.Flags().Int("max-workers", d.MaxWorkers, "maximum concurrent workers and batch size")
	cmd.Flags().Duration("worker-timeout", d.WorkerTimeout, "per-worker time limit")
	cmd.Flags().Duration("batch-pause", d.BatchPause, "pause between worker batches")
	cmd.Flags().Float64("spawn-rate", 0, "maximum worker spawns per second (0 = unlimited)")
}

// extractionConfig builds the run configuration from viper. Flags win over
// environment, environment over the config file, and the file over
// defaults.
func extractionConfig() (types.ExtractionConfig, error) {
	cfg := types.DefaultExtractionConfig()
	cfg.OutputDir = viper.GetString("output_dir")
	cfg.Engine = viper.GetString("engine")
	cfg.Verbose = viper.GetBool("verbose")
	if viper.IsSet("include_leading_block") {
		cfg.IncludeLeadingBlock = types.Bool(viper.GetBool("include_leading_block"))
	}
	cfg.Parallel = viper.GetBool("parallel")
	if n := viper.GetInt("max_workers"); n != 0 {
		cfg.MaxWorkers = n
	}
	if f := viper.GetString("format"); f != "" {
		cfg.Format = types.OutputFormat(f)
	}
	if d := viper.GetDuration("worker_timeout"); d != 0 {
		cfg.WorkerTimeout = d
	}
	if viper.IsSet("batch_pause") {
		cfg.BatchPause = viper.GetDuration("batch_pause")
	}
	cfg.SpawnRate = viper.GetFloat64("spawn_rate")
	cfg.MinOutputBytes = viper.GetInt64("min_output_bytes")

	switch kind := types.GroupingKind(viper.GetString("grouping")); kind {
	case "", types.GroupOnePerFile:
		cfg.Grouping = types.OnePerFile()
	case types.GroupByCount:
		cfg.Grouping = types.ByCount(viper.GetInt("group_size"))
	case types.GroupByRange:
		spans, err := types.ParseRanges(viper.GetString("ranges"))
		if err != nil {
			return cfg, err
		}
		cfg.Grouping = types.ByRange(spans...)
	default:
		return cfg, fmt.Errorf("%w: unknown grouping %q", types.ErrInvalidConfig, kind)
	}

	prefix := viper.GetString("prefix")
	switch naming := types.NamingKind(viper.GetString("naming")); {
	case prefix != "" || naming == types.NamingPrefix:
		cfg.Naming = types.CustomPrefix(prefix)
	case naming == "" || naming == types.NamingAuto:
		cfg.Naming = types.AutoNumbered()
	default:
		return cfg, fmt.Errorf("%w: unknown naming %q", types.ErrInvalidConfig, naming)
	}
	return cfg, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective extraction configuration as YAML",
	Long: `Config resolves flags, PROBSPLIT_* environment variables and the config
file exactly as extract would, and prints the result.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := extractionConfig()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

func init() {
	addExtractionFlags(configCmd)
	addParallelFlags(configCmd)

	rootCmd.AddCommand(configCmd)
}
