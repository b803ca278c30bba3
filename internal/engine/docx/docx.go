// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docx is a static-structure engine for WordprocessingML (.docx)
// packages. Positions are flattened indices over the top-level elements of
// the main story; markers are footnote and endnote references, anchored at
// the element boundary immediately after the referencing element.
// Implements: docs/ARCHITECTURE § Document Engines, § WordprocessingML.
package docx

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/probsplit/internal/engine"
	"github.com/pdiddy/probsplit/pkg/types"
)

// Name is the registry name of the engine.
const Name = "docx"

// minNativeBytes is well below the size of any package holding the
// mandatory parts; anything smaller is a truncated write.
const minNativeBytes = 256

// Engine opens .docx packages.
type Engine struct{}

// New returns the docx engine.
func New() *Engine { return &Engine{} }

func (*Engine) Name() string { return Name }

func (*Engine) Capabilities() engine.Capabilities {
	return engine.Capabilities{
		Formats: map[types.OutputFormat]string{
			types.FormatNative: ".docx",
			types.FormatMarkup: ".md",
		},
		MinArtifactBytes: map[types.OutputFormat]int64{
			types.FormatNative: minNativeBytes,
			types.FormatMarkup: 1,
		},
		Positions:  types.PositionIndex,
		Extensions: []string{".docx"},
	}
}

// Open locks path and loads the package into memory.
func (*Engine) Open(path string) (engine.Document, error) {
	release, err := engine.Lock(path)
	if err != nil {
		return nil, err
	}
	doc, err := load(path)
	if err != nil {
		release()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	doc.release = release
	return doc, nil
}

type document struct {
	path    string
	parts   []part
	body    *body
	notes   map[string]string
	release func() error

	selected bool
	from, to int
}

func load(path string) (*document, error) {
	parts, err := readParts(path)
	if err != nil {
		return nil, err
	}
	doc := &document{path: path, parts: parts, notes: make(map[string]string)}
	for _, p := range parts {
		switch p.name {
		case documentPart:
			if doc.body, err = parseBody(p.data); err != nil {
				return nil, err
			}
		case footnotesPart, endnotesPart:
			kind := "fn"
			if p.name == endnotesPart {
				kind = "en"
			}
			notes, err := parseNotes(p.data, kind)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", p.name, err)
			}
			for k, v := range notes {
				doc.notes[k] = v
			}
		}
	}
	if doc.body == nil {
		return nil, fmt.Errorf("package has no %s", documentPart)
	}
	return doc, nil
}

func (d *document) Markers() ([]types.Marker, error) {
	var markers []types.Marker
	for i, el := range d.body.elements {
		for _, ref := range el.notes {
			markers = append(markers, types.Marker{
				Anchor: types.Index(i + 1),
				Label:  ref.label(),
				Note:   d.notes[ref.label()],
			})
		}
	}
	return markers, nil
}

func (d *document) Bounds() (types.Range, error) {
	return types.NewRange(types.Index(0), types.Index(len(d.body.elements)))
}

func (d *document) Select(start, end types.Position) error {
	s, ok1 := start.(types.Index)
	e, ok2 := end.(types.Index)
	if !ok1 || !ok2 {
		return fmt.Errorf("%w: docx selections use element indices", types.ErrInvalidRange)
	}
	if s < 0 || e < s || int(e) > len(d.body.elements) {
		return fmt.Errorf("%w: [%d, %d) outside %d elements", types.ErrInvalidRange, s, e, len(d.body.elements))
	}
	d.selected, d.from, d.to = true, int(s), int(e)
	return nil
}

func (d *document) PersistSelection(path string, format types.OutputFormat) error {
	if !d.selected {
		return fmt.Errorf("nothing selected")
	}
	var (
		data []byte
		err  error
	)
	switch format {
	case types.FormatNative:
		data, err = writePackage(d.parts, d.body.assemble(d.from, d.to))
	case types.FormatMarkup:
		data, err = d.markdown()
	default:
		return fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return err
	}
	return engine.WriteFileAtomic(path, data)
}

func (d *document) Close() error {
	if d.release == nil {
		return nil
	}
	return d.release()
}

// frontmatter heads a markup rendition of a selection.
type frontmatter struct {
	Source   string   `yaml:"source"`
	Elements string   `yaml:"elements"`
	Markers  []string `yaml:"markers,omitempty"`
}

// markdown renders the selection as paragraphs with footnote definitions.
func (d *document) markdown() ([]byte, error) {
	fm := frontmatter{
		Source:   filepath.Base(d.path),
		Elements: fmt.Sprintf("%d-%d", d.from, d.to),
	}
	var body strings.Builder
	for _, el := range d.body.elements[d.from:d.to] {
		if el.text != "" {
			body.WriteString(el.text)
			body.WriteString("\n\n")
		}
		for _, ref := range el.notes {
			fm.Markers = append(fm.Markers, ref.label())
		}
	}
	for _, label := range fm.Markers {
		fmt.Fprintf(&body, "[^%s]: %s\n", label, d.notes[label])
	}

	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	var out strings.Builder
	out.WriteString("---\n")
	out.Write(head)
	out.WriteString("---\n\n")
	out.WriteString(body.String())
	return []byte(out.String()), nil
}
