// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"cmp"
	"slices"
	"time"
)

// ExtractionOutcome is the result of extracting one group.
type ExtractionOutcome struct {
	Group   int  `json:"group" yaml:"group"`
	Success bool `json:"success" yaml:"success"`

	// OutputPath is empty when no artifact was produced.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`

	// Err describes the failure; empty on success.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`

	// Canceled marks a group that was never attempted because the run was
	// canceled first.
	Canceled bool `json:"canceled,omitempty" yaml:"canceled,omitempty"`
}

// Failed builds a failed outcome for group from err.
func Failed(group int, err error) ExtractionOutcome {
	o := ExtractionOutcome{Group: group}
	if err != nil {
		o.Err = err.Error()
	}
	return o
}

// CanceledOutcome records group as skipped by a canceled run.
func CanceledOutcome(group int) ExtractionOutcome {
	o := Failed(group, ErrCanceled)
	o.Canceled = true
	return o
}

// Attempted counts the outcomes of groups that actually ran.
func (r BatchResult) Attempted() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Canceled {
			n++
		}
	}
	return n
}

// BatchResult summarizes a whole run. Outcomes and OutputPaths are in
// group order regardless of completion order.
type BatchResult struct {
	Total       int                 `json:"total" yaml:"total"`
	Succeeded   int                 `json:"succeeded" yaml:"succeeded"`
	Failed      int                 `json:"failed" yaml:"failed"`
	OutputPaths []string            `json:"output_paths" yaml:"output_paths"`
	Outcomes    []ExtractionOutcome `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`

	// Canceled is set when the caller canceled the run before every group
	// was attempted.
	Canceled bool `json:"canceled,omitempty" yaml:"canceled,omitempty"`
}

// HasFailures reports whether any group failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Summarize orders outcomes by group number and counts them.
func Summarize(outcomes []ExtractionOutcome) BatchResult {
	sorted := slices.Clone(outcomes)
	slices.SortStableFunc(sorted, func(a, b ExtractionOutcome) int {
		return cmp.Compare(a.Group, b.Group)
	})

	r := BatchResult{
		Total:       len(sorted),
		OutputPaths: []string{},
		Outcomes:    sorted,
	}
	for _, o := range sorted {
		if o.Success {
			r.Succeeded++
			if o.OutputPath != "" {
				r.OutputPaths = append(r.OutputPaths, o.OutputPath)
			}
		} else {
			r.Failed++
		}
	}
	return r
}
