// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package group folds usable blocks into output groups and names them.
// Implements: docs/ARCHITECTURE § Grouping and Naming.
package group

import (
	"fmt"

	"github.com/pdiddy/probsplit/pkg/types"
)

// Build folds usable blocks into groups under strategy. Block numbers in
// the returned groups are 1-based positions in usable; groups are
// numbered 1..G in emission order. No blocks yields no groups.
func Build(strategy types.GroupingStrategy, usable []types.Block) ([]types.Group, error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	m := len(usable)
	if m == 0 {
		return nil, nil
	}

	var groups []types.Group
	emit := func(lo, hi int) {
		nums := make([]int, 0, hi-lo+1)
		for n := lo; n <= hi; n++ {
			nums = append(nums, n)
		}
		groups = append(groups, types.Group{Number: len(groups) + 1, Blocks: nums})
	}

	switch strategy.Kind {
	case types.GroupOnePerFile:
		for n := 1; n <= m; n++ {
			emit(n, n)
		}
	case types.GroupByCount:
		for lo := 1; lo <= m; lo += strategy.Count {
			emit(lo, min(lo+strategy.Count-1, m))
		}
	case types.GroupByRange:
		for _, span := range strategy.Ranges {
			hi := min(span.Hi, m)
			if span.Lo > hi {
				continue
			}
			emit(span.Lo, hi)
		}
	default:
		return nil, fmt.Errorf("%w: unknown grouping %q", types.ErrInvalidConfig, strategy.Kind)
	}
	return groups, nil
}
