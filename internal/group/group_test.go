// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package group

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/probsplit/pkg/types"
)

func usableBlocks(m int) []types.Block {
	bs := make([]types.Block, m)
	for i := range bs {
		bs[i] = types.Block{Index: i, Range: types.Range{Start: types.Index(i), End: types.Index(i + 1)}}
	}
	return bs
}

func sizes(groups []types.Group) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = g.Size()
	}
	return out
}

func TestBuild_OnePerFile(t *testing.T) {
	for _, m := range []int{1, 2, 7, 30} {
		groups, err := Build(types.OnePerFile(), usableBlocks(m))
		require.NoError(t, err)
		require.Len(t, groups, m)
		for i, g := range groups {
			assert.Equal(t, i+1, g.Number)
			assert.Equal(t, []int{i + 1}, g.Blocks)
		}
	}
}

func TestBuild_ByCount(t *testing.T) {
	for m := 1; m <= 20; m++ {
		for n := 1; n <= 6; n++ {
			groups, err := Build(types.ByCount(n), usableBlocks(m))
			require.NoError(t, err)

			assert.Len(t, groups, (m+n-1)/n, "ceil(%d/%d)", m, n)
			var all []int
			for i, g := range groups {
				if i < len(groups)-1 {
					assert.Equal(t, n, g.Size())
				}
				assert.LessOrEqual(t, g.Size(), n)
				all = append(all, g.Blocks...)
			}
			want := make([]int, m)
			for i := range want {
				want[i] = i + 1
			}
			assert.Equal(t, want, all, "groups reproduce the block sequence without gaps or overlaps")
		}
	}
}

func TestBuild_ByCountTenBlocks(t *testing.T) {
	groups, err := Build(types.ByCount(3), usableBlocks(10))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 3, 1}, sizes(groups))
}

func TestBuild_ByRange(t *testing.T) {
	groups, err := Build(types.ByRange(types.BlockSpan{Lo: 1, Hi: 5}, types.BlockSpan{Lo: 8, Hi: 10}), usableBlocks(10))
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []int{5, 3}, sizes(groups))
	assert.Equal(t, []int{8, 9, 10}, groups[1].Blocks)
	assert.Equal(t, 2, groups[1].Number)
	for _, g := range groups {
		assert.NotContains(t, g.Blocks, 6)
		assert.NotContains(t, g.Blocks, 7)
	}
}

func TestBuild_ByRangeClampsAndSkips(t *testing.T) {
	groups, err := Build(types.ByRange(
		types.BlockSpan{Lo: 12, Hi: 15},
		types.BlockSpan{Lo: 3, Hi: 99},
		types.BlockSpan{Lo: 2, Hi: 2},
	), usableBlocks(4))
	require.NoError(t, err)
	require.Len(t, groups, 2, "a range selecting nothing is skipped")
	assert.Equal(t, types.Group{Number: 1, Blocks: []int{3, 4}}, groups[0])
	assert.Equal(t, types.Group{Number: 2, Blocks: []int{2}}, groups[1])
}

func TestBuild_Empty(t *testing.T) {
	for _, s := range []types.GroupingStrategy{types.OnePerFile(), types.ByCount(3), types.ByRange(types.BlockSpan{Lo: 1, Hi: 2})} {
		groups, err := Build(s, nil)
		require.NoError(t, err)
		assert.Empty(t, groups)
	}
}

func TestBuild_InvalidStrategy(t *testing.T) {
	_, err := Build(types.ByCount(0), usableBlocks(3))
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}
