// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan reads a document's markers in document order and assigns
// their 1-based sequence numbers.
// Implements: docs/ARCHITECTURE § Marker Scanning.
package scan

import (
	"fmt"
	"io"
	"slices"

	"github.com/pdiddy/probsplit/internal/engine"
	"github.com/pdiddy/probsplit/pkg/types"
)

// Markers returns the markers of doc ordered by anchor position and
// numbered 1..N. It never fails: an unusable handle, an engine error or
// anchors that cannot be ordered yield an empty list, with a warning
// written to w. Markers sharing an anchor keep the engine's order.
func Markers(doc engine.Document, w io.Writer) []types.Marker {
	if doc == nil {
		fmt.Fprintln(w, "warning: no document handle to scan")
		return nil
	}
	raw, err := doc.Markers()
	if err != nil {
		fmt.Fprintf(w, "warning: scanning markers: %v\n", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	markers := slices.Clone(raw)
	var orderErr error
	slices.SortStableFunc(markers, func(a, b types.Marker) int {
		c, err := a.Anchor.Compare(b.Anchor)
		if err != nil && orderErr == nil {
			orderErr = err
		}
		return c
	})
	if orderErr != nil {
		fmt.Fprintf(w, "warning: scanning markers: %v\n", orderErr)
		return nil
	}

	for i := range markers {
		markers[i].Seq = i + 1
	}
	return markers
}
