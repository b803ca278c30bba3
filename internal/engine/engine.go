// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine defines the document-automation contract consumed by the
// extraction pipeline, a registry of engines, and per-run capability
// negotiation.
//
// A Document handle is exclusive: it must not be used from more than one
// goroutine or process at a time. Concurrency is achieved by opening
// separate duplicates of the file, never by sharing a handle.
// Implements: docs/ARCHITECTURE § Document Engines.
package engine

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pdiddy/probsplit/pkg/types"
)

// Engine opens documents of one family (e.g. .docx packages).
type Engine interface {
	// Name identifies the engine in configs and worker jobs.
	Name() string

	// Capabilities describes what the engine can do. It is consulted once
	// per run through Negotiate, never per call.
	Capabilities() Capabilities

	// Open acquires exclusive access to the document at path.
	Open(path string) (Document, error)
}

// Document is an open, single-owner document handle.
type Document interface {
	// Markers returns the document's markers in any order; the scanner
	// orders and numbers them.
	Markers() ([]types.Marker, error)

	// Bounds returns the range covering the document's main content.
	Bounds() (types.Range, error)

	// Select makes [start, end) the current selection.
	Select(start, end types.Position) error

	// PersistSelection writes the current selection as a new artifact.
	PersistSelection(path string, format types.OutputFormat) error

	// Close releases the handle and its exclusive-access lock.
	Close() error
}

// Capabilities is an engine's static feature description.
type Capabilities struct {
	// Formats maps each supported output format to its file extension.
	Formats map[types.OutputFormat]string

	// MinArtifactBytes is the smallest plausible artifact per format.
	MinArtifactBytes map[types.OutputFormat]int64

	// Positions is the kind of position the engine produces.
	Positions types.PositionKind

	// Extensions lists the input extensions the engine opens (".docx").
	Extensions []string
}

// Negotiated is the outcome of capability negotiation for one run.
type Negotiated struct {
	Engine    Engine
	Format    types.OutputFormat
	Extension string
	MinBytes  int64
}

// Negotiate resolves the output format against the engine's capabilities.
// A positive minBytes overrides the engine's plausibility threshold.
func Negotiate(e Engine, format types.OutputFormat, minBytes int64) (Negotiated, error) {
	caps := e.Capabilities()
	ext, ok := caps.Formats[format]
	if !ok {
		return Negotiated{}, fmt.Errorf("%w: engine %s cannot write %q", types.ErrUnsupportedFormat, e.Name(), format)
	}
	n := Negotiated{
		Engine:    e,
		Format:    format,
		Extension: ext,
		MinBytes:  caps.MinArtifactBytes[format],
	}
	if minBytes > 0 {
		n.MinBytes = minBytes
	}
	return n, nil
}

// Registry holds the engines available to a process.
type Registry struct {
	engines map[string]Engine
	order   []string
}

// NewRegistry returns a registry holding the given engines.
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine)}
	for _, e := range engines {
		r.Register(e)
	}
	return r
}

// Register adds e, replacing any engine with the same name.
func (r *Registry) Register(e Engine) {
	if _, exists := r.engines[e.Name()]; !exists {
		r.order = append(r.order, e.Name())
	}
	r.engines[e.Name()] = e
}

// Names lists registered engine names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Get returns the engine registered under name.
func (r *Registry) Get(name string) (Engine, error) {
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (available: %s)", name, strings.Join(r.order, ", "))
	}
	return e, nil
}

// ForPath returns the first engine that opens files with path's extension.
func (r *Registry) ForPath(path string) (Engine, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, name := range r.order {
		e := r.engines[name]
		if slices.Contains(e.Capabilities().Extensions, ext) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no engine handles %q files", ext)
}

// Resolve picks the named engine, or the engine for path when name is empty.
func (r *Registry) Resolve(name, path string) (Engine, error) {
	if name != "" {
		return r.Get(name)
	}
	return r.ForPath(path)
}
