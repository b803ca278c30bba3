//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	"github.com/pdiddy/probsplit/internal/engine/docx/docxtest"
)

// sampleDir holds the generated sample exam and its split output.
const sampleDir = "sample"

const sampleProblems = 12

// Sample writes a sample exam with one footnote per problem.
func Sample() error {
	if err := os.MkdirAll(sampleDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", sampleDir, err)
	}
	path := filepath.Join(sampleDir, "exam.docx")
	if err := docxtest.WriteFile(path, docxtest.Exam(sampleProblems)); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d problems)\n", path, sampleProblems)
	return nil
}

// Split builds the binary and splits the sample exam sequentially and in
// parallel.
func Split() error {
	mg.Deps(Build, Sample)
	bin := filepath.Join(binDir, binName)
	exam := filepath.Join(sampleDir, "exam.docx")
	if err := sh.RunV(bin, "extract", exam, "-o", filepath.Join(sampleDir, "sequential")); err != nil {
		return err
	}
	return sh.RunV(bin, "extract", exam, "--parallel", "--max-workers", "3",
		"-o", filepath.Join(sampleDir, "parallel"))
}
