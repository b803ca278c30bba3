//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main contains Mage build targets for probsplit developer tooling.
// Implements: docs/ARCHITECTURE § Developer Tooling.
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "probsplit"
	cmdPkg  = "./cmd/probsplit"
)

// starterConfig is written by Init when no probsplit.yaml exists.
const starterConfig = `# probsplit configuration; flags and PROBSPLIT_* variables override these.
output_dir: problems
grouping: one-per-file
naming: auto
include_leading_block: true
format: native
parallel: false
max_workers: 5
worker_timeout: 2m
batch_pause: 500ms
ledger: .probsplit/history.db
`

// Init writes a starter probsplit.yaml and creates the output directory.
func Init() error {
	if _, err := os.Stat("probsplit.yaml"); os.IsNotExist(err) {
		if err := os.WriteFile("probsplit.yaml", []byte(starterConfig), 0o644); err != nil {
			return fmt.Errorf("writing probsplit.yaml: %w", err)
		}
		fmt.Println("   probsplit.yaml")
	}
	if err := os.MkdirAll("problems", 0o755); err != nil {
		return fmt.Errorf("creating problems: %w", err)
	}
	fmt.Println("   problems")
	fmt.Println("Project initialized.")
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet over every package.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Check lints and tests.
func Check() {
	mg.SerialDeps(Lint, Test)
}

// Clean removes build output and the sample workspace.
func Clean() error {
	for _, dir := range []string{binDir, sampleDir} {
		if err := sh.Rm(dir); err != nil {
			return err
		}
	}
	return nil
}

// Stats prints Go line counts per package and the documentation word
// count.
func Stats() error {
	counts, err := countGoLines(".")
	if err != nil {
		return err
	}
	docWords, err := countDocWords(".")
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(counts))
	for dir := range counts {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var prod, test int
	for _, dir := range dirs {
		c := counts[dir]
		fmt.Printf("  %-40s %6d prod %6d test\n", dir, c.prod, c.test)
		prod += c.prod
		test += c.test
	}
	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", test)
	fmt.Printf("Words (documentation):           %d\n", docWords)
	return nil
}

type lineCount struct{ prod, test int }

// skipDir reports whether a directory is outside the module's own code:
// hidden directories, underscore-prefixed reference trees and build output.
func skipDir(path string, d fs.DirEntry) bool {
	name := d.Name()
	if path == "." {
		return false
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
		name == binDir || name == sampleDir || name == "testdata"
}

// countGoLines counts non-blank lines of Go source per directory.
func countGoLines(root string) (map[string]lineCount, error) {
	counts := map[string]lineCount{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(path, d) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		for line := range bytes.Lines(data) {
			if len(bytes.TrimSpace(line)) > 0 {
				n++
			}
		}
		dir := filepath.Dir(path)
		c := counts[dir]
		if strings.HasSuffix(path, "_test.go") {
			c.test += n
		} else {
			c.prod += n
		}
		counts[dir] = c
		return nil
	})
	return counts, err
}

// countDocWords counts words in the module's Markdown files.
func countDocWords(root string) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(path, d) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		total += len(bytes.Fields(data))
		return nil
	})
	return total, err
}
