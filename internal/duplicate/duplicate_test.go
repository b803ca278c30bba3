// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package duplicate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/probsplit/pkg/types"
)

func init() {
	PollInterval = time.Millisecond
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "exam.docx")
	payload := make([]byte, 64*1024)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	dst := filepath.Join(dir, "dup-b0-s0.docx")
	require.NoError(t, Copy(context.Background(), src, dst, 0))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestCopy_RefusesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("in use"), 0o644))

	err := Copy(context.Background(), src, dst, 0)
	assert.ErrorIs(t, err, types.ErrDuplication)

	data, readErr := os.ReadFile(dst)
	require.NoError(t, readErr)
	assert.Equal(t, "in use", string(data), "existing duplicate is left untouched")
}

func TestCopy_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := Copy(context.Background(), filepath.Join(dir, "nope"), filepath.Join(dir, "dst"), 0)
	assert.ErrorIs(t, err, types.ErrDuplication)
}

func TestWaitForSize_GrowsIntoPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "growing")
	require.NoError(t, os.WriteFile(path, []byte("ab"), 0o644))

	go func() {
		time.Sleep(5 * time.Millisecond)
		os.WriteFile(path, []byte("abcd"), 0o644)
	}()

	assert.NoError(t, WaitForSize(context.Background(), path, 4, 2000))
}

func TestWaitForSize_GivesUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short")
	require.NoError(t, os.WriteFile(path, []byte("ab"), 0o644))

	err := WaitForSize(context.Background(), path, 10, 3)
	assert.ErrorIs(t, err, types.ErrDuplication)
	assert.ErrorContains(t, err, "after 3 polls")
}

func TestWaitForSize_Canceled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short")
	require.NoError(t, os.WriteFile(path, []byte("ab"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForSize(ctx, path, 10, 1000)
	assert.ErrorIs(t, err, types.ErrDuplication)
	assert.ErrorIs(t, err, context.Canceled)
}
