// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/probsplit/pkg/types"
)

// PersistRange selects rng in doc and writes it to path in the negotiated
// format. An artifact smaller than the negotiated minimum is removed and
// reported as ErrImplausibleOutput even though the engine succeeded.
func PersistRange(doc Document, rng types.Range, path string, n Negotiated) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := doc.Select(rng.Start, rng.End); err != nil {
		return fmt.Errorf("selecting %s: %w", rng, err)
	}
	if err := doc.PersistSelection(path, n.Format); err != nil {
		return fmt.Errorf("persisting %s: %w", filepath.Base(path), err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking %s: %w", filepath.Base(path), err)
	}
	if info.Size() < n.MinBytes {
		os.Remove(path)
		return fmt.Errorf("%w: %s is %d bytes (minimum %d)",
			types.ErrImplausibleOutput, filepath.Base(path), info.Size(), n.MinBytes)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file beside path and renames
// it into place, so readers never observe a partial artifact.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), tempPrefix(path)+"*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing artifact: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// tempPrefix is the name prefix of WriteFileAtomic's temp files for path.
func tempPrefix(path string) string {
	return "." + filepath.Base(path) + ".persist-"
}

// RemoveStaleTemps deletes temp files that an interrupted WriteFileAtomic
// of path left beside it. Temp files of other artifacts are untouched.
func RemoveStaleTemps(path string) error {
	entries, err := os.ReadDir(filepath.Dir(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("listing %s: %w", filepath.Dir(path), err)
	}

	prefix := tempPrefix(path)
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".tmp") {
			continue
		}
		if err := os.Remove(filepath.Join(filepath.Dir(path), name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
