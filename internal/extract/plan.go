// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pdiddy/probsplit/internal/blocks"
	"github.com/pdiddy/probsplit/internal/engine"
	"github.com/pdiddy/probsplit/internal/group"
	"github.com/pdiddy/probsplit/internal/scan"
	"github.com/pdiddy/probsplit/pkg/types"
)

// Plan is the fully resolved work for one input document.
type Plan struct {
	Input    string             `json:"input" yaml:"input"`
	Engine   string             `json:"engine" yaml:"engine"`
	Format   types.OutputFormat `json:"format" yaml:"format"`
	MinBytes int64              `json:"min_bytes" yaml:"min_bytes"`
	Markers  int                `json:"markers" yaml:"markers"`
	Usable   int                `json:"usable_blocks" yaml:"usable_blocks"`
	Groups   []PlannedGroup     `json:"groups" yaml:"groups"`

	negotiated engine.Negotiated
}

// PlannedGroup is one group with its resolved range and target file.
type PlannedGroup struct {
	Group      types.Group       `json:"group" yaml:"group"`
	Range      types.RangeSpec   `json:"range" yaml:"range"`
	Blocks     []types.RangeSpec `json:"-" yaml:"-"`
	OutputPath string            `json:"output_path" yaml:"output_path"`

	rng types.Range
}

// Summary renders the plan as one line per group.
func (p Plan) Summary(w io.Writer) {
	fmt.Fprintf(w, "%s: engine %s, %d markers, %d usable blocks, %d groups\n",
		p.Input, p.Engine, p.Markers, p.Usable, len(p.Groups))
	for _, pg := range p.Groups {
		fmt.Fprintf(w, "  group %3d  blocks %-9s %s\n", pg.Group.Number, blockSpan(pg.Group), filepath.Base(pg.OutputPath))
	}
}

func blockSpan(g types.Group) string {
	if g.Size() == 1 {
		return fmt.Sprint(g.First())
	}
	return fmt.Sprintf("%d-%d", g.First(), g.Last())
}

// prepare opens the source and resolves markers, blocks and groups. The
// returned document is open; the caller closes it. Only a failure to open
// the original source is returned as an error alongside an unusable
// document; a document with no usable structure yields an empty plan.
func (r *Runner) prepare(cfg types.ExtractionConfig, w io.Writer) (Plan, engine.Document, error) {
	e, err := r.Engines.Resolve(cfg.Engine, cfg.InputPath)
	if err != nil {
		return Plan{}, nil, fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}
	n, err := engine.Negotiate(e, cfg.Format, cfg.MinOutputBytes)
	if err != nil {
		return Plan{}, nil, err
	}

	doc, err := e.Open(cfg.InputPath)
	if err != nil {
		if errors.Is(err, types.ErrDocumentOpen) {
			return Plan{}, nil, err
		}
		return Plan{}, nil, fmt.Errorf("%w: %w", types.ErrDocumentOpen, err)
	}

	p := Plan{
		Input:      cfg.InputPath,
		Engine:     e.Name(),
		Format:     n.Format,
		MinBytes:   n.MinBytes,
		Groups:     []PlannedGroup{},
		negotiated: n,
	}

	markers := r.scan(e.Name(), cfg.InputPath, doc, w)
	p.Markers = len(markers)
	if len(markers) == 0 {
		fmt.Fprintf(w, "  warning: %s: %v\n", filepath.Base(cfg.InputPath), types.ErrNoMarkers)
		return p, doc, nil
	}

	bounds, err := doc.Bounds()
	if err != nil {
		fmt.Fprintf(w, "  warning: %s: reading bounds: %v\n", filepath.Base(cfg.InputPath), err)
		return p, doc, nil
	}
	all, err := blocks.Discover(markers, bounds.Start, bounds.End)
	if err != nil {
		fmt.Fprintf(w, "  warning: %s: %v\n", filepath.Base(cfg.InputPath), err)
		return p, doc, nil
	}
	usable := blocks.Usable(all, cfg.LeadingBlockIncluded())
	p.Usable = len(usable)

	groups, err := group.Build(cfg.Grouping, usable)
	if err != nil {
		doc.Close()
		return Plan{}, nil, err
	}
	for _, g := range groups {
		rng, err := g.EffectiveRange(usable)
		if err != nil {
			doc.Close()
			return Plan{}, nil, err
		}
		pg := PlannedGroup{
			Group:      g,
			Range:      rng.Spec(),
			OutputPath: filepath.Join(cfg.OutputDir, group.FileName(g, cfg.Naming, n.Extension)),
			rng:        rng,
		}
		for _, b := range g.Blocks {
			pg.Blocks = append(pg.Blocks, usable[b-1].Spec())
		}
		p.Groups = append(p.Groups, pg)
	}
	return p, doc, nil
}

func (r *Runner) scan(engineName, path string, doc engine.Document, w io.Writer) []types.Marker {
	if r.Scans == nil {
		return scan.Markers(doc, w)
	}
	key, err := scan.Key(engineName, path)
	if err != nil {
		fmt.Fprintf(w, "  warning: %v\n", err)
	}
	return r.Scans.Markers(key, doc, w)
}

// InputConfigs expands cfg into one config per input. With more than one
// input each document writes into its own subdirectory named after the
// input's stem.
func InputConfigs(cfg types.ExtractionConfig, inputs []string) []types.ExtractionConfig {
	out := make([]types.ExtractionConfig, 0, len(inputs))
	for _, in := range inputs {
		c := cfg
		c.InputPath = in
		if len(inputs) > 1 {
			stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
			c.OutputDir = filepath.Join(cfg.OutputDir, stem)
		}
		out = append(out, c)
	}
	return out
}
