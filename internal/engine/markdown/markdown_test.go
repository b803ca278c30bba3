// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markdown

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/probsplit/internal/engine"
	"github.com/pdiddy/probsplit/pkg/types"
)

const sample = `# Quiz

1. What is 2+2? Four.[^1]
2. Name a prime. Seven.[^2]
Closing remarks.

[^1]: Arithmetic.
[^2]: Number theory.
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quiz.md")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestMarkersAndBounds(t *testing.T) {
	doc, err := New().Open(writeSample(t))
	require.NoError(t, err)
	defer doc.Close()

	markers, err := doc.Markers()
	require.NoError(t, err)
	require.Len(t, markers, 2)
	assert.Equal(t, types.Cursor{Block: 2, Offset: len("1. What is 2+2? Four.[^1]")}, markers[0].Anchor)
	assert.Equal(t, "1", markers[0].Label)
	assert.Equal(t, "Arithmetic.", markers[0].Note)
	assert.Equal(t, "Number theory.", markers[1].Note)

	bounds, err := doc.Bounds()
	require.NoError(t, err)
	assert.Equal(t, types.Cursor{}, bounds.Start)
	assert.Equal(t, types.Cursor{Block: 6}, bounds.End, "body ends at the first definition")
}

func TestPersistSelection(t *testing.T) {
	doc, err := New().Open(writeSample(t))
	require.NoError(t, err)
	defer doc.Close()

	markers, err := doc.Markers()
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "problem_002.md")
	require.NoError(t, doc.Select(markers[0].Anchor, markers[1].Anchor))
	require.NoError(t, doc.PersistSelection(out, types.FormatNative))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "\n2. Name a prime. Seven.[^2]\n\n[^2]: Number theory.\n", string(data))
}

func TestPersistSelection_MarkupUnsupported(t *testing.T) {
	doc, err := New().Open(writeSample(t))
	require.NoError(t, err)
	defer doc.Close()

	require.NoError(t, doc.Select(types.Cursor{}, types.Cursor{Block: 1}))
	err = doc.PersistSelection(filepath.Join(t.TempDir(), "x.md"), types.FormatMarkup)
	assert.ErrorIs(t, err, types.ErrUnsupportedFormat)

	_, err = engine.Negotiate(New(), types.FormatMarkup, 0)
	assert.ErrorIs(t, err, types.ErrUnsupportedFormat)
}

func TestSelect_Invalid(t *testing.T) {
	doc, err := New().Open(writeSample(t))
	require.NoError(t, err)
	defer doc.Close()

	assert.ErrorIs(t, doc.Select(types.Index(0), types.Cursor{}), types.ErrInvalidRange)
	assert.ErrorIs(t, doc.Select(types.Cursor{Block: 2}, types.Cursor{Block: 1}), types.ErrInvalidRange)
	assert.ErrorIs(t, doc.Select(types.Cursor{}, types.Cursor{Block: 7}), types.ErrInvalidRange)
	assert.ErrorIs(t, doc.Select(types.Cursor{}, types.Cursor{Block: 6, Offset: 3}), types.ErrInvalidRange)
	assert.ErrorIs(t, doc.Select(types.Cursor{Container: 1}, types.Cursor{Block: 1}), types.ErrInvalidRange)
}

func TestRegistryForPath(t *testing.T) {
	reg := engine.NewRegistry(New())
	e, err := reg.ForPath("notes/Quiz.MD")
	require.NoError(t, err)
	assert.Equal(t, Name, e.Name())

	_, err = reg.ForPath("quiz.txt")
	assert.Error(t, err)

	_, err = reg.Get("docx")
	assert.Error(t, err)
}
