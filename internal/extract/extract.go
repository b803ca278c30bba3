// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract runs the split pipeline for one input document: scan
// markers, discover blocks, group them, and write one artifact per group
// either in this process or through isolated worker processes.
// Implements: docs/ARCHITECTURE § Extraction Pipeline.
package extract

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/pdiddy/probsplit/internal/engine"
	"github.com/pdiddy/probsplit/internal/ledger"
	"github.com/pdiddy/probsplit/internal/parallel"
	"github.com/pdiddy/probsplit/internal/scan"
	"github.com/pdiddy/probsplit/internal/worker"
	"github.com/pdiddy/probsplit/pkg/types"
)

// Runner wires the engines and optional collaborators for extraction runs.
type Runner struct {
	Engines *engine.Registry

	// Launcher runs parallel jobs. Nil means re-executing this binary's
	// worker subcommand.
	Launcher worker.Launcher

	// Copy overrides duplicate creation for parallel runs.
	Copy parallel.CopyFunc

	// Ledger, when set, records every run.
	Ledger *ledger.Ledger

	// Scans, when set, memoizes marker scans by document content.
	Scans *scan.Cache
}

// Plan resolves cfg without writing any artifact.
func (r *Runner) Plan(ctx context.Context, cfg types.ExtractionConfig, w io.Writer) (Plan, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Plan{}, err
	}
	p, doc, err := r.prepare(cfg, w)
	if err != nil {
		return Plan{}, err
	}
	if err := doc.Close(); err != nil {
		return Plan{}, fmt.Errorf("closing %s: %w", cfg.InputPath, err)
	}
	return p, nil
}

// Run extracts every group of cfg's input. It returns an error only for an
// invalid configuration, a failed capability negotiation, or a source
// document that cannot be opened; every per-group failure is recorded in
// the result instead.
func (r *Runner) Run(ctx context.Context, cfg types.ExtractionConfig, w io.Writer) (types.BatchResult, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return types.Summarize(nil), err
	}

	started := time.Now()
	runID := ledger.NewRunID()

	p, doc, err := r.prepare(cfg, w)
	if err != nil {
		return types.Summarize(nil), err
	}

	var res types.BatchResult
	if cfg.Parallel && len(p.Groups) > 0 {
		// Workers only ever touch duplicates; release the original first.
		if err := doc.Close(); err != nil {
			fmt.Fprintf(w, "  warning: closing %s: %v\n", filepath.Base(cfg.InputPath), err)
		}
		res = r.runParallel(ctx, cfg, p, runID, w)
	} else {
		res = Sequential(ctx, doc, p, cfg.Verbose, w)
		if err := doc.Close(); err != nil {
			fmt.Fprintf(w, "  warning: closing %s: %v\n", filepath.Base(cfg.InputPath), err)
		}
	}

	if res.Canceled {
		fmt.Fprintf(w, "run canceled after %d of %d groups\n", res.Attempted(), res.Total)
	}
	fmt.Fprintf(w, "\nBatch summary: %d succeeded, %d failed (total: %d)\n",
		res.Succeeded, res.Failed, res.Total)

	r.record(ctx, ledger.Run{
		ID:         runID,
		Input:      cfg.InputPath,
		Engine:     p.Engine,
		Grouping:   cfg.Grouping.String(),
		Parallel:   cfg.Parallel,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}.FromResult(res), w)

	return res, nil
}

func (r *Runner) runParallel(ctx context.Context, cfg types.ExtractionConfig, p Plan, runID string, w io.Writer) types.BatchResult {
	launcher := r.Launcher
	if launcher == nil {
		cmd, err := worker.SelfCommand()
		if err != nil {
			outcomes := make([]types.ExtractionOutcome, len(p.Groups))
			for i, pg := range p.Groups {
				outcomes[i] = types.Failed(pg.Group.Number, fmt.Errorf("%w: %w", types.ErrWorker, err))
			}
			return types.Summarize(outcomes)
		}
		launcher = worker.NewProcessLauncher(cmd, cfg.WorkerTimeout)
	}

	c := &parallel.Coordinator{
		Launcher:   launcher,
		Copy:       r.Copy,
		MaxWorkers: cfg.MaxWorkers,
		BatchPause: cfg.BatchPause,
		SpawnRate:  cfg.SpawnRate,
		Verbose:    cfg.Verbose,
	}
	req := parallel.Request{
		Source:    cfg.InputPath,
		Engine:    p.Engine,
		Format:    p.Format,
		MinBytes:  p.MinBytes,
		OutputDir: cfg.OutputDir,
		RunID:     runID,
	}
	for _, pg := range p.Groups {
		req.Tasks = append(req.Tasks, parallel.Task{
			Group:      pg.Group,
			Blocks:     pg.Blocks,
			OutputPath: pg.OutputPath,
		})
	}
	return c.Run(ctx, req, w)
}

func (r *Runner) record(ctx context.Context, run ledger.Run, w io.Writer) {
	if r.Ledger == nil {
		return
	}
	// A canceled run is still worth recording.
	if err := r.Ledger.Record(context.WithoutCancel(ctx), run); err != nil {
		fmt.Fprintf(w, "  warning: recording run: %v\n", err)
	}
}

// Sequential writes every planned group from the single open doc in group
// order. A failed group is recorded and the loop moves on; ctx is checked
// between groups.
func Sequential(ctx context.Context, doc engine.Document, p Plan, verbose bool, w io.Writer) types.BatchResult {
	outcomes := make([]types.ExtractionOutcome, 0, len(p.Groups))
	canceled := false
	for i, pg := range p.Groups {
		if ctx.Err() != nil {
			for _, rest := range p.Groups[i:] {
				outcomes = append(outcomes, types.CanceledOutcome(rest.Group.Number))
			}
			canceled = true
			break
		}

		start := time.Now()
		err := engine.PersistRange(doc, pg.rng, pg.OutputPath, p.negotiated)
		o := types.ExtractionOutcome{Group: pg.Group.Number, Duration: time.Since(start)}
		if err != nil {
			o.Err = err.Error()
			fmt.Fprintf(w, "failed:  group %d (%v)\n", pg.Group.Number, err)
		} else {
			o.Success = true
			o.OutputPath = pg.OutputPath
			fmt.Fprintf(w, "extracted: %s\n", filepath.Base(pg.OutputPath))
		}
		if verbose {
			fmt.Fprintf(w, "  group %d: blocks %s %s (%s)\n",
				pg.Group.Number, blockSpan(pg.Group), pg.rng, o.Duration.Round(time.Millisecond))
		}
		outcomes = append(outcomes, o)
	}

	res := types.Summarize(outcomes)
	res.Canceled = canceled
	return res
}
