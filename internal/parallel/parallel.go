// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parallel runs extraction groups in isolated worker processes.
// Groups are processed in batches no larger than the worker limit. Each
// group in a batch gets a private duplicate of the source document, the
// batch's workers run concurrently, and every duplicate is removed before
// the next batch starts.
// Implements: docs/ARCHITECTURE § Parallel Coordination.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/probsplit/internal/duplicate"
	"github.com/pdiddy/probsplit/internal/engine"
	"github.com/pdiddy/probsplit/internal/worker"
	"github.com/pdiddy/probsplit/pkg/types"
)

// ScratchDirName is the directory under the output tree that holds
// duplicates while a run is in progress.
const ScratchDirName = ".scratch"

// CopyFunc duplicates src to dst.
type CopyFunc func(ctx context.Context, src, dst string) error

// Task is one group ready for dispatch.
type Task struct {
	Group      types.Group
	Blocks     []types.RangeSpec
	OutputPath string
}

// Request describes one parallel run.
type Request struct {
	// Source is the original document; it is only ever read.
	Source string

	// Engine names the engine the workers open duplicates with.
	Engine string

	Format   types.OutputFormat
	MinBytes int64

	// OutputDir hosts the scratch directory.
	OutputDir string

	// RunID keys this run's scratch subdirectory.
	RunID string

	Tasks []Task
}

// Coordinator batches, duplicates, dispatches, collects and cleans up.
type Coordinator struct {
	Launcher worker.Launcher

	// Copy defaults to duplicate.Copy with its default poll budget.
	Copy CopyFunc

	MaxWorkers int
	BatchPause time.Duration

	// SpawnRate limits process spawns per second; zero is unlimited.
	SpawnRate float64

	Verbose bool

	mu sync.Mutex // serializes progress lines
}

// Batches partitions tasks into consecutive runs of at most size,
// preserving order.
func Batches(tasks []Task, size int) [][]Task {
	if size < 1 {
		size = 1
	}
	var out [][]Task
	for lo := 0; lo < len(tasks); lo += size {
		out = append(out, tasks[lo:min(lo+size, len(tasks))])
	}
	return out
}

// ScratchPath returns the duplicate path for a batch slot. Paths are
// unique per (run, batch, slot).
func ScratchPath(runDir string, batch, slot int, ext string) string {
	return filepath.Join(runDir, fmt.Sprintf("dup-b%d-s%d%s", batch, slot, ext))
}

// Run processes every task and returns the aggregated result in group
// order. Per-group failures never abort the run. When ctx is canceled the
// in-flight workers are killed, their duplicates are still removed, and
// the groups that never ran are recorded as failed.
func (c *Coordinator) Run(ctx context.Context, req Request, w io.Writer) types.BatchResult {
	runDir := filepath.Join(req.OutputDir, ScratchDirName, req.RunID)
	batches := Batches(req.Tasks, c.MaxWorkers)

	var limiter *rate.Limiter
	if c.SpawnRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.SpawnRate), 1)
	}

	outcomes := make([]types.ExtractionOutcome, 0, len(req.Tasks))
	for bi, batch := range batches {
		if bi > 0 && c.BatchPause > 0 {
			pause(ctx, c.BatchPause)
		}
		if ctx.Err() != nil {
			for _, rest := range batches[bi:] {
				for _, t := range rest {
					outcomes = append(outcomes, types.CanceledOutcome(t.Group.Number))
				}
			}
			break
		}
		c.tracef(w, "batch %d/%d: groups %d-%d\n", bi+1, len(batches),
			batch[0].Group.Number, batch[len(batch)-1].Group.Number)
		outcomes = append(outcomes, c.runBatch(ctx, req, runDir, bi, batch, limiter, w)...)
	}

	// The scratch root stays; the run's own directory goes once empty.
	if err := os.Remove(runDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.tracef(w, "  warning: scratch directory not removed: %v\n", err)
	}

	res := types.Summarize(outcomes)
	res.Canceled = ctx.Err() != nil
	return res
}

func (c *Coordinator) runBatch(ctx context.Context, req Request, runDir string, bi int, batch []Task, limiter *rate.Limiter, w io.Writer) []types.ExtractionOutcome {
	outs := make([]types.ExtractionOutcome, len(batch))
	dups := make([]string, len(batch))
	defer c.cleanup(dups, w)

	ext := filepath.Ext(req.Source)
	ready := make([]bool, len(batch))
	for slot, t := range batch {
		dup := ScratchPath(runDir, bi, slot, ext)
		dups[slot] = dup
		if err := c.duplicate(ctx, req.Source, dup); err != nil {
			outs[slot] = types.Failed(t.Group.Number, err)
			c.report(w, outs[slot])
			continue
		}
		ready[slot] = true
	}

	var g errgroup.Group
	g.SetLimit(max(c.MaxWorkers, 1))
	for slot, t := range batch {
		if !ready[slot] {
			continue
		}
		g.Go(func() error {
			outs[slot] = c.dispatch(ctx, req, t, dups[slot], limiter)
			c.tracef(w, "  worker: group %d on %s (%s)\n",
				t.Group.Number, filepath.Base(dups[slot]), outs[slot].Duration.Round(time.Millisecond))
			c.report(w, outs[slot])
			return nil
		})
	}
	g.Wait()
	c.sweepTemps(batch, outs, w)
	return outs
}

func (c *Coordinator) dispatch(ctx context.Context, req Request, t Task, dup string, limiter *rate.Limiter) types.ExtractionOutcome {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return types.CanceledOutcome(t.Group.Number)
		}
	}
	job := worker.Job{
		Group:      t.Group.Number,
		Engine:     req.Engine,
		Duplicate:  dup,
		Blocks:     t.Blocks,
		OutputPath: t.OutputPath,
		Format:     req.Format,
		MinBytes:   req.MinBytes,
	}

	start := time.Now()
	res, err := c.Launcher.Launch(ctx, job)
	if err != nil {
		o := types.Failed(t.Group.Number, err)
		o.Duration = time.Since(start)
		return o
	}
	if res.Success {
		// Trust the job's own path over whatever the worker echoed.
		res.OutputPath = t.OutputPath
	} else {
		res.OutputPath = ""
	}
	return res.Outcome(time.Since(start))
}

func (c *Coordinator) duplicate(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: creating scratch directory: %w", types.ErrDuplication, err)
	}
	if c.Copy != nil {
		return c.Copy(ctx, src, dst)
	}
	return duplicate.Copy(ctx, src, dst, 0)
}

// cleanup removes every duplicate and any lock file a crashed worker left
// behind.
func (c *Coordinator) cleanup(dups []string, w io.Writer) {
	for _, dup := range dups {
		if dup == "" {
			continue
		}
		for _, p := range []string{dup, dup + engine.LockSuffix} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(w, "  warning: removing %s: %v\n", filepath.Base(p), err)
			}
		}
	}
}

// sweepTemps removes partial artifacts that a killed worker left in the
// output directory for the groups that failed.
func (c *Coordinator) sweepTemps(batch []Task, outs []types.ExtractionOutcome, w io.Writer) {
	for slot, t := range batch {
		if outs[slot].Success {
			continue
		}
		if err := engine.RemoveStaleTemps(t.OutputPath); err != nil {
			fmt.Fprintf(w, "  warning: group %d: %v\n", t.Group.Number, err)
		}
	}
}

func (c *Coordinator) report(w io.Writer, o types.ExtractionOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o.Success {
		fmt.Fprintf(w, "extracted: %s\n", filepath.Base(o.OutputPath))
		return
	}
	fmt.Fprintf(w, "failed:  group %d (%s)\n", o.Group, o.Err)
}

func (c *Coordinator) tracef(w io.Writer, format string, args ...any) {
	if !c.Verbose {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(w, format, args...)
}

func pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
