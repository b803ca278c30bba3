// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package duplicate makes private, disposable byte-for-byte copies of a
// source document and confirms each copy is complete before it is used.
// Implements: docs/ARCHITECTURE § Parallel Coordination.
package duplicate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pdiddy/probsplit/pkg/types"
)

// PollInterval is the delay between size checks on a fresh copy. Tests
// override this to avoid real sleeps.
var PollInterval = 50 * time.Millisecond

const defaultMaxPolls = 20

// Copy writes a duplicate of src at dst, which must not exist yet, and
// waits until dst reports the same size as src. All failures wrap
// types.ErrDuplication; a partially written dst is removed.
//
// When maxPolls is 0 the default (20) is used.
func Copy(ctx context.Context, src, dst string, maxPolls int) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrDuplication, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrDuplication, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrDuplication, err)
	}
	_, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(dst)
		return fmt.Errorf("%w: copying to %s: %w", types.ErrDuplication, dst, err)
	}

	if err := WaitForSize(ctx, dst, info.Size(), maxPolls); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

// WaitForSize polls path until its size equals want. The first check is
// immediate; afterwards it sleeps PollInterval between checks, up to
// maxPolls retries. A canceled context stops the wait early.
func WaitForSize(ctx context.Context, path string, want int64, maxPolls int) error {
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}

	var got int64 = -1
	for attempt := 0; ; attempt++ {
		if info, err := os.Stat(path); err == nil {
			got = info.Size()
			if got == want {
				return nil
			}
		}

		if attempt >= maxPolls {
			return fmt.Errorf("%w: %s is %d bytes after %d polls, want %d",
				types.ErrDuplication, path, got, maxPolls, want)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", types.ErrDuplication, ctx.Err())
		case <-time.After(PollInterval):
		}
	}
}
