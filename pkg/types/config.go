// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GroupingKind selects how usable blocks are folded into output groups.
type GroupingKind string

const (
	GroupOnePerFile GroupingKind = "one-per-file"
	GroupByCount    GroupingKind = "by-count"
	GroupByRange    GroupingKind = "by-range"
)

// BlockSpan is an inclusive interval of 1-based usable block numbers.
type BlockSpan struct {
	Lo int `json:"lo" yaml:"lo"`
	Hi int `json:"hi" yaml:"hi"`
}

func (s BlockSpan) String() string {
	if s.Lo == s.Hi {
		return strconv.Itoa(s.Lo)
	}
	return fmt.Sprintf("%d-%d", s.Lo, s.Hi)
}

// GroupingStrategy is a tagged union; Kind decides which of Count or
// Ranges is meaningful.
type GroupingStrategy struct {
	Kind GroupingKind `json:"kind" yaml:"kind"`

	// Count is the maximum run length for GroupByCount.
	Count int `json:"count,omitempty" yaml:"count,omitempty"`

	// Ranges lists the explicit block intervals for GroupByRange.
	Ranges []BlockSpan `json:"ranges,omitempty" yaml:"ranges,omitempty"`
}

// OnePerFile puts every usable block in its own group.
func OnePerFile() GroupingStrategy {
	return GroupingStrategy{Kind: GroupOnePerFile}
}

// ByCount groups consecutive runs of at most n blocks.
func ByCount(n int) GroupingStrategy {
	return GroupingStrategy{Kind: GroupByCount, Count: n}
}

// ByRange groups the given explicit block intervals.
func ByRange(spans ...BlockSpan) GroupingStrategy {
	return GroupingStrategy{Kind: GroupByRange, Ranges: spans}
}

// Validate checks that the active variant is well formed.
func (g GroupingStrategy) Validate() error {
	switch g.Kind {
	case GroupOnePerFile:
		return nil
	case GroupByCount:
		if g.Count < 1 {
			return fmt.Errorf("%w: group size must be at least 1, got %d", ErrInvalidConfig, g.Count)
		}
		return nil
	case GroupByRange:
		if len(g.Ranges) == 0 {
			return fmt.Errorf("%w: by-range grouping needs at least one range", ErrInvalidConfig)
		}
		for _, r := range g.Ranges {
			if r.Lo < 1 || r.Hi < r.Lo {
				return fmt.Errorf("%w: bad block range %d-%d", ErrInvalidConfig, r.Lo, r.Hi)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown grouping %q", ErrInvalidConfig, g.Kind)
	}
}

func (g GroupingStrategy) String() string {
	switch g.Kind {
	case GroupByCount:
		return fmt.Sprintf("%s(%d)", g.Kind, g.Count)
	case GroupByRange:
		parts := make([]string, len(g.Ranges))
		for i, r := range g.Ranges {
			parts[i] = r.String()
		}
		return fmt.Sprintf("%s(%s)", g.Kind, strings.Join(parts, ","))
	default:
		return string(g.Kind)
	}
}

// ParseRanges parses a comma-separated list of block numbers and
// inclusive intervals, e.g. "1-5,8-10,12".
func ParseRanges(s string) ([]BlockSpan, error) {
	var spans []BlockSpan
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		loStr, hiStr, isInterval := strings.Cut(part, "-")
		lo, err := strconv.Atoi(strings.TrimSpace(loStr))
		if err != nil {
			return nil, fmt.Errorf("%w: bad range %q", ErrInvalidConfig, part)
		}
		hi := lo
		if isInterval {
			hi, err = strconv.Atoi(strings.TrimSpace(hiStr))
			if err != nil {
				return nil, fmt.Errorf("%w: bad range %q", ErrInvalidConfig, part)
			}
		}
		if lo < 1 || hi < lo {
			return nil, fmt.Errorf("%w: bad range %q", ErrInvalidConfig, part)
		}
		spans = append(spans, BlockSpan{Lo: lo, Hi: hi})
	}
	if len(spans) == 0 {
		return nil, fmt.Errorf("%w: empty range list", ErrInvalidConfig)
	}
	return spans, nil
}

// NamingKind selects how output filenames are derived.
type NamingKind string

const (
	NamingAuto   NamingKind = "auto"
	NamingPrefix NamingKind = "prefix"
)

// NamingRule maps group identity to a filename stem.
type NamingRule struct {
	Kind   NamingKind `json:"kind" yaml:"kind"`
	Prefix string     `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// AutoNumbered names files problem_001, problem_002, ...
func AutoNumbered() NamingRule { return NamingRule{Kind: NamingAuto} }

// CustomPrefix names files <p>001, <p>002, ...
func CustomPrefix(p string) NamingRule { return NamingRule{Kind: NamingPrefix, Prefix: p} }

// OutputFormat selects the artifact format written for each group.
type OutputFormat string

const (
	// FormatNative writes the engine's own document format (e.g. .docx).
	FormatNative OutputFormat = "native"
	// FormatMarkup writes a text markup rendition (Markdown).
	FormatMarkup OutputFormat = "markup"
)

const (
	DefaultMaxWorkers    = 5
	DefaultWorkerTimeout = 2 * time.Minute
	DefaultBatchPause    = 500 * time.Millisecond
)

// ExtractionConfig is the immutable configuration of one extraction run.
type ExtractionConfig struct {
	// InputPath is the source document.
	InputPath string `json:"input_path" yaml:"input_path"`

	// OutputDir receives the artifacts and the .scratch directory.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Engine names the document engine; empty selects by input extension.
	Engine string `json:"engine,omitempty" yaml:"engine,omitempty"`

	Grouping GroupingStrategy `json:"grouping" yaml:"grouping"`
	Naming   NamingRule       `json:"naming" yaml:"naming"`

	// IncludeLeadingBlock treats document-start..first-marker as problem 1
	// (markers end problems). When false that block is front matter and the
	// trailing block is the last problem (markers start problems). Nil
	// means true.
	IncludeLeadingBlock *bool `json:"include_leading_block,omitempty" yaml:"include_leading_block,omitempty"`

	// Parallel dispatches groups to isolated worker processes.
	Parallel bool `json:"parallel" yaml:"parallel"`

	// MaxWorkers bounds concurrent worker processes and the batch size.
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`

	Format  OutputFormat `json:"format" yaml:"format"`
	Verbose bool         `json:"verbose" yaml:"verbose"`

	// WorkerTimeout bounds each worker process.
	WorkerTimeout time.Duration `json:"worker_timeout" yaml:"worker_timeout"`

	// BatchPause is the fixed pause between batches.
	BatchPause time.Duration `json:"batch_pause" yaml:"batch_pause"`

	// SpawnRate limits worker process spawns per second (0 = unlimited).
	SpawnRate float64 `json:"spawn_rate,omitempty" yaml:"spawn_rate,omitempty"`

	// MinOutputBytes overrides the engine's minimum plausible artifact size.
	MinOutputBytes int64 `json:"min_output_bytes,omitempty" yaml:"min_output_bytes,omitempty"`
}

// DefaultExtractionConfig returns a config with every default applied.
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		Grouping:            OnePerFile(),
		Naming:              AutoNumbered(),
		IncludeLeadingBlock: Bool(true),
		MaxWorkers:          DefaultMaxWorkers,
		Format:              FormatNative,
		WorkerTimeout:       DefaultWorkerTimeout,
		BatchPause:          DefaultBatchPause,
	}
}

// WithDefaults fills zero-valued tunables with their defaults.
func (c ExtractionConfig) WithDefaults() ExtractionConfig {
	if c.Grouping.Kind == "" {
		c.Grouping = OnePerFile()
	}
	if c.Naming.Kind == "" {
		c.Naming = AutoNumbered()
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.Format == "" {
		c.Format = FormatNative
	}
	if c.WorkerTimeout == 0 {
		c.WorkerTimeout = DefaultWorkerTimeout
	}
	if c.IncludeLeadingBlock == nil {
		c.IncludeLeadingBlock = Bool(true)
	}
	return c
}

// LeadingBlockIncluded reports the effective IncludeLeadingBlock policy.
func (c ExtractionConfig) LeadingBlockIncluded() bool {
	return c.IncludeLeadingBlock == nil || *c.IncludeLeadingBlock
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// Validate reports the first problem that would make the run meaningless.
func (c ExtractionConfig) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("%w: input path is required", ErrInvalidConfig)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalidConfig)
	}
	if err := c.Grouping.Validate(); err != nil {
		return err
	}
	switch c.Naming.Kind {
	case NamingAuto:
	case NamingPrefix:
		if strings.TrimSpace(c.Naming.Prefix) == "" {
			return fmt.Errorf("%w: prefix naming needs a non-empty prefix", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown naming %q", ErrInvalidConfig, c.Naming.Kind)
	}
	switch c.Format {
	case FormatNative, FormatMarkup:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("%w: max workers must be at least 1, got %d", ErrInvalidConfig, c.MaxWorkers)
	}
	if c.WorkerTimeout < 0 || c.BatchPause < 0 || c.SpawnRate < 0 || c.MinOutputBytes < 0 {
		return fmt.Errorf("%w: negative timing or size setting", ErrInvalidConfig)
	}
	return nil
}
