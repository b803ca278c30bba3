// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_OrdersByGroup(t *testing.T) {
	outcomes := []ExtractionOutcome{
		{Group: 3, Success: true, OutputPath: "out/problem_003.docx"},
		{Group: 1, Success: true, OutputPath: "out/problem_001.docx"},
		Failed(2, errors.New("worker crashed")),
	}

	r := Summarize(outcomes)

	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 2, r.Succeeded)
	assert.Equal(t, 1, r.Failed)
	assert.True(t, r.HasFailures())
	assert.Equal(t, []string{"out/problem_001.docx", "out/problem_003.docx"}, r.OutputPaths)
	assert.Equal(t, []int{1, 2, 3}, []int{r.Outcomes[0].Group, r.Outcomes[1].Group, r.Outcomes[2].Group})
	assert.Equal(t, "worker crashed", r.Outcomes[1].Err)
}

func TestSummarize_Empty(t *testing.T) {
	r := Summarize(nil)
	assert.Equal(t, 0, r.Total)
	assert.Equal(t, 0, r.Succeeded)
	assert.Equal(t, 0, r.Failed)
	assert.NotNil(t, r.OutputPaths)
	assert.Empty(t, r.OutputPaths)
}
