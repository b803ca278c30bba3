// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package worker extracts one group from a private duplicate of the source
// document. A worker runs in its own process: it reads a JSON Job on stdin,
// writes a JSON Result on stdout, and touches nothing but its duplicate
// and its output path.
// Implements: docs/ARCHITECTURE § Worker Processes.
package worker

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/probsplit/internal/engine"
	"github.com/pdiddy/probsplit/pkg/types"
)

// Job is the complete instruction for one worker.
type Job struct {
	// Group is the group number the job extracts.
	Group int `json:"group"`

	// Engine names the engine that opens Duplicate.
	Engine string `json:"engine"`

	// Duplicate is the worker's private copy of the source document.
	Duplicate string `json:"duplicate"`

	// Blocks are the group's constituent block ranges in order.
	Blocks []types.RangeSpec `json:"blocks"`

	// OutputPath is where the artifact is written.
	OutputPath string `json:"output_path"`

	// Format and MinBytes come from the coordinator's negotiation.
	Format   types.OutputFormat `json:"format"`
	MinBytes int64              `json:"min_bytes"`
}

// Result is what a worker reports for its job.
type Result struct {
	Group      int    `json:"group"`
	Success    bool   `json:"success"`
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Outcome converts r into an extraction outcome.
func (r Result) Outcome(d time.Duration) types.ExtractionOutcome {
	return types.ExtractionOutcome{
		Group:      r.Group,
		Success:    r.Success,
		OutputPath: r.OutputPath,
		Err:        r.Error,
		Duration:   d,
	}
}

// Execute opens the job's duplicate, persists the merged range of its
// blocks, and closes the duplicate again.
func Execute(job Job, reg *engine.Registry) Result {
	res := Result{Group: job.Group}
	if err := execute(job, reg); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.OutputPath = job.OutputPath
	return res
}

func execute(job Job, reg *engine.Registry) (err error) {
	if len(job.Blocks) == 0 {
		return fmt.Errorf("group %d: no blocks", job.Group)
	}
	first, err := job.Blocks[0].Range()
	if err != nil {
		return fmt.Errorf("group %d: %w", job.Group, err)
	}
	last, err := job.Blocks[len(job.Blocks)-1].Range()
	if err != nil {
		return fmt.Errorf("group %d: %w", job.Group, err)
	}
	merged, err := first.Through(last)
	if err != nil {
		return fmt.Errorf("group %d: %w", job.Group, err)
	}

	e, err := reg.Get(job.Engine)
	if err != nil {
		return err
	}
	doc, err := e.Open(job.Duplicate)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrDocumentOpen, err)
	}
	defer func() {
		if closeErr := doc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	n := engine.Negotiated{Engine: e, Format: job.Format, MinBytes: job.MinBytes}
	return engine.PersistRange(doc, merged, job.OutputPath, n)
}

// Serve runs one job read from r and writes its result to w. Engine
// failures are reported in the result; only malformed input or an
// unwritable w return an error. A panic inside the engine becomes a
// failed result.
func Serve(r io.Reader, w io.Writer, reg *engine.Registry) error {
	var job Job
	if err := json.NewDecoder(r).Decode(&job); err != nil {
		return fmt.Errorf("decoding job: %w", err)
	}

	res := func() (res Result) {
		defer func() {
			if p := recover(); p != nil {
				res = Result{Group: job.Group, Error: fmt.Sprintf("worker panic: %v", p)}
			}
		}()
		return Execute(job, reg)
	}()

	if err := json.NewEncoder(w).Encode(res); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}
