// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the probsplit CLI.
// See docs/ARCHITECTURE § Command Line, § Configuration.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the probsplit CLI.
var rootCmd = &cobra.Command{
	Use:   "probsplit",
	Short: "Split footnote-delimited documents into one file per problem",
	Long: `probsplit splits a document whose problems are delimited by footnote or
endnote markers into separate output files. The content between two
consecutive markers is a block; blocks are grouped one per file, in runs of
a fixed count, or by explicit block ranges, and every group is written as a
new document.

Large documents can be split in parallel: each worker process gets a private
copy of the source so no document handle is ever shared.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./probsplit.yaml or ~/.config/probsplit/probsplit.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print per-batch and per-worker progress")
	rootCmd.PersistentFlags().String("ledger", "", "SQLite file recording run history (empty disables)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("probsplit")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "probsplit"))
		}
	}

	viper.SetEnvPrefix("PROBSPLIT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags binds every flag of the running command to the viper key of
// the same name with dashes as underscores. Binding at run time keeps
// flags shared by several commands from overriding each other.
func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "help" {
			return
		}
		_ = viper.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
