// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markdown is a cursor-based engine for Markdown documents that use
// footnote references ("[^label]"). Positions are (container, line, byte
// offset) cursors into the main body, which ends at the first footnote
// definition. A marker's anchor is the cursor just past its reference.
// Implements: docs/ARCHITECTURE § Document Engines, § Markdown.
package markdown

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pdiddy/probsplit/internal/engine"
	"github.com/pdiddy/probsplit/pkg/types"
)

// Name is the registry name of the engine.
const Name = "markdown"

var (
	definitionRe = regexp.MustCompile(`^\[\^([^\]\s]+)\]:\s?(.*)$`)
	referenceRe  = regexp.MustCompile(`\[\^([^\]\s]+)\]`)
)

// Engine opens Markdown files.
type Engine struct{}

// New returns the markdown engine.
func New() *Engine { return &Engine{} }

func (*Engine) Name() string { return Name }

func (*Engine) Capabilities() engine.Capabilities {
	return engine.Capabilities{
		Formats:          map[types.OutputFormat]string{types.FormatNative: ".md"},
		MinArtifactBytes: map[types.OutputFormat]int64{types.FormatNative: 1},
		Positions:        types.PositionCursor,
		Extensions:       []string{".md", ".markdown"},
	}
}

func (*Engine) Open(path string) (engine.Document, error) {
	release, err := engine.Lock(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		release()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	doc := parse(string(data))
	doc.release = release
	return doc, nil
}

type document struct {
	lines     []string // each line keeps its trailing newline
	lineStart []int    // byte offset of each line; len(lines)+1 entries
	bodyEnd   int      // index of the first definition line
	defs      map[string]string
	release   func() error

	selected   bool
	start, end int // absolute byte offsets
	content    string
}

func parse(content string) *document {
	d := &document{
		content: content,
		lines:   strings.SplitAfter(content, "\n"),
		defs:    make(map[string]string),
	}
	d.lineStart = make([]int, len(d.lines)+1)
	for i, l := range d.lines {
		d.lineStart[i+1] = d.lineStart[i] + len(l)
	}
	d.bodyEnd = len(d.lines)
	for i, l := range d.lines {
		m := definitionRe.FindStringSubmatch(strings.TrimRight(l, "\r\n"))
		if m == nil {
			continue
		}
		if i < d.bodyEnd {
			d.bodyEnd = i
		}
		d.defs[m[1]] = m[2]
	}
	return d
}

func (d *document) Markers() ([]types.Marker, error) {
	var markers []types.Marker
	for i := 0; i < d.bodyEnd; i++ {
		for _, loc := range referenceRe.FindAllStringSubmatchIndex(d.lines[i], -1) {
			label := d.lines[i][loc[2]:loc[3]]
			markers = append(markers, types.Marker{
				Anchor: types.Cursor{Block: i, Offset: loc[1]},
				Label:  label,
				Note:   d.defs[label],
			})
		}
	}
	return markers, nil
}

func (d *document) Bounds() (types.Range, error) {
	return types.NewRange(types.Cursor{}, types.Cursor{Block: d.bodyEnd})
}

// offset converts a body cursor into an absolute byte offset.
func (d *document) offset(p types.Position) (int, error) {
	c, ok := p.(types.Cursor)
	if !ok {
		return 0, fmt.Errorf("%w: markdown selections use cursors", types.ErrInvalidRange)
	}
	if c.Container != 0 || c.Block < 0 || c.Block > d.bodyEnd || c.Offset < 0 {
		return 0, fmt.Errorf("%w: cursor %s outside body", types.ErrInvalidRange, c)
	}
	if c.Block == d.bodyEnd {
		if c.Offset != 0 {
			return 0, fmt.Errorf("%w: cursor %s past body end", types.ErrInvalidRange, c)
		}
		return d.lineStart[c.Block], nil
	}
	if c.Offset > len(d.lines[c.Block]) {
		return 0, fmt.Errorf("%w: cursor %s past end of line", types.ErrInvalidRange, c)
	}
	return d.lineStart[c.Block] + c.Offset, nil
}

func (d *document) Select(start, end types.Position) error {
	s, err := d.offset(start)
	if err != nil {
		return err
	}
	e, err := d.offset(end)
	if err != nil {
		return err
	}
	if e < s {
		return fmt.Errorf("%w: %s after %s", types.ErrInvalidRange, start, end)
	}
	d.selected, d.start, d.end = true, s, e
	return nil
}

// PersistSelection writes the selected text followed by the definitions of
// the footnotes it references.
func (d *document) PersistSelection(path string, format types.OutputFormat) error {
	if !d.selected {
		return fmt.Errorf("nothing selected")
	}
	if format != types.FormatNative {
		return fmt.Errorf("%w: markdown engine writes native only, not %q", types.ErrUnsupportedFormat, format)
	}

	text := d.content[d.start:d.end]
	var out strings.Builder
	out.WriteString(text)

	seen := make(map[string]bool)
	var defs []string
	for _, m := range referenceRe.FindAllStringSubmatch(text, -1) {
		label := m[1]
		if seen[label] {
			continue
		}
		seen[label] = true
		if def, ok := d.defs[label]; ok {
			defs = append(defs, fmt.Sprintf("[^%s]: %s\n", label, def))
		}
	}
	if len(defs) > 0 {
		if !strings.HasSuffix(text, "\n") {
			out.WriteString("\n")
		}
		out.WriteString("\n")
		out.WriteString(strings.Join(defs, ""))
	}
	return engine.WriteFileAtomic(path, []byte(out.String()))
}

func (d *document) Close() error {
	if d.release == nil {
		return nil
	}
	return d.release()
}
