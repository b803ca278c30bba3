// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	documentPart  = "word/document.xml"
	footnotesPart = "word/footnotes.xml"
	endnotesPart  = "word/endnotes.xml"
)

// part is one zip entry of a WordprocessingML package, held in memory.
type part struct {
	name     string
	method   uint16
	modified time.Time
	data     []byte
}

// element is one top-level child of <w:body>, addressed by byte offsets
// into document.xml so it can be copied out verbatim.
type element struct {
	start, end int
	kind       string
	text       string
	notes      []noteRef
}

type noteRef struct {
	kind string // "fn" or "en"
	id   string
}

func (n noteRef) label() string { return n.kind + n.id }

// body is the parsed main story of document.xml.
type body struct {
	raw      []byte
	headEnd  int // offset just past the <w:body> start tag
	tailFrom int // offset of the </w:body> end tag
	elements []element
	sectPr   []byte
}

// readParts loads every entry of the package at path.
func readParts(path string) ([]part, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("reading package: %w", err)
	}
	defer zr.Close()

	parts := make([]part, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading part %s: %w", f.Name, err)
		}
		parts = append(parts, part{
			name:     f.Name,
			method:   f.Method,
			modified: f.Modified,
			data:     data,
		})
	}
	return parts, nil
}

// parseBody walks document.xml with the raw tokenizer and records the byte
// span, text and note references of each top-level body element.
func parseBody(data []byte) (*body, error) {
	b := &body{raw: data}
	d := xml.NewDecoder(bytes.NewReader(data))

	var (
		depth     int
		bodyDepth = -1
		cur       *element
		text      strings.Builder
		inText    bool
	)
	for {
		off := int(d.InputOffset())
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if bodyDepth < 0 {
				if t.Name.Local == "body" {
					bodyDepth = depth
					b.headEnd = int(d.InputOffset())
				}
				continue
			}
			if depth == bodyDepth+1 {
				cur = &element{start: off, kind: t.Name.Local}
				text.Reset()
			}
			if cur == nil {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				text.WriteByte('\t')
			case "br", "cr":
				text.WriteByte('\n')
			case "footnoteReference", "endnoteReference":
				ref := noteRef{kind: "fn", id: attr(t, "id")}
				if t.Name.Local == "endnoteReference" {
					ref.kind = "en"
				}
				cur.notes = append(cur.notes, ref)
				fmt.Fprintf(&text, "[^%s]", ref.label())
			}

		case xml.EndElement:
			switch {
			case bodyDepth > 0 && depth == bodyDepth && t.Name.Local == "body":
				b.tailFrom = off
				bodyDepth = 0
			case cur != nil && depth == bodyDepth+1:
				cur.end = int(d.InputOffset())
				if cur.kind == "sectPr" {
					b.sectPr = data[cur.start:cur.end]
				} else {
					cur.text = strings.TrimSpace(text.String())
					b.elements = append(b.elements, *cur)
				}
				cur = nil
			case cur != nil:
				switch t.Name.Local {
				case "t":
					inText = false
				case "p":
					text.WriteByte('\n')
				case "tc":
					text.WriteString(" | ")
				}
			}
			depth--

		case xml.CharData:
			if cur != nil && inText {
				text.Write(t)
			}
		}
	}

	if bodyDepth < 0 || b.tailFrom == 0 {
		return nil, fmt.Errorf("parsing %s: no w:body element", documentPart)
	}
	return b, nil
}

// parseNotes collects the plain text of each footnote or endnote by id.
func parseNotes(data []byte, kind string) (map[string]string, error) {
	notes := make(map[string]string)
	d := xml.NewDecoder(bytes.NewReader(data))

	var (
		id     string
		text   strings.Builder
		inText bool
	)
	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing notes: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "footnote", "endnote":
				id = attr(t, "id")
				text.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "footnote", "endnote":
				notes[kind+id] = strings.TrimSpace(text.String())
				id = ""
			case "t":
				inText = false
			}
		case xml.CharData:
			if id != "" && inText {
				text.Write(t)
			}
		}
	}
	return notes, nil
}

// attr returns the value of the attribute with the given local name.
func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// assemble rebuilds document.xml keeping only elements[from:to].
func (b *body) assemble(from, to int) []byte {
	var out bytes.Buffer
	out.Write(b.raw[:b.headEnd])
	for _, el := range b.elements[from:to] {
		out.Write(b.raw[el.start:el.end])
	}
	out.Write(b.sectPr)
	out.Write(b.raw[b.tailFrom:])
	return out.Bytes()
}

// writePackage writes parts to a new zip, substituting document.xml.
func writePackage(parts []part, document []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		data := p.data
		if p.name == documentPart {
			data = document
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   p.method,
			Modified: p.modified,
		})
		if err != nil {
			return nil, fmt.Errorf("adding part %s: %w", p.name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("writing part %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finishing package: %w", err)
	}
	return buf.Bytes(), nil
}
