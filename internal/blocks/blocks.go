// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package blocks turns an ordered marker list into content ranges.
//
// Discover makes no judgment about which ranges are real output units;
// Usable applies the leading-block policy chosen by the caller.
// Implements: docs/ARCHITECTURE § Block Discovery.
package blocks

import (
	"fmt"

	"github.com/pdiddy/probsplit/pkg/types"
)

// Discover returns N+1 blocks for N markers: document start to the first
// anchor, one block between each pair of consecutive anchors, and a
// trailing block from the last anchor to document end. Markers must be in
// ascending anchor order, all within [start, end].
func Discover(markers []types.Marker, start, end types.Position) ([]types.Block, error) {
	blocks := make([]types.Block, 0, len(markers)+1)
	cursor := start
	for _, m := range markers {
		r, err := types.NewRange(cursor, m.Anchor)
		if err != nil {
			return nil, fmt.Errorf("marker %d: %w", m.Seq, err)
		}
		blocks = append(blocks, types.Block{Index: len(blocks), Range: r})
		cursor = m.Anchor
	}
	r, err := types.NewRange(cursor, end)
	if err != nil {
		return nil, fmt.Errorf("trailing block: %w", err)
	}
	return append(blocks, types.Block{Index: len(blocks), Range: r}), nil
}

// Usable selects the blocks that are real output units.
//
// With includeLeading, markers end problems: blocks[0..N-1] are kept and
// the trailing block after the last marker is dropped. Without it, markers
// start problems: the leading front matter is dropped and blocks[1..N] are
// kept. Either way N markers give N usable blocks, and a document without
// markers has none.
func Usable(all []types.Block, includeLeading bool) []types.Block {
	if len(all) < 2 {
		return nil
	}
	if includeLeading {
		return all[:len(all)-1]
	}
	return all[1:]
}
