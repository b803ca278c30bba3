// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docxtest builds small but well-formed .docx packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"
)

// Paragraph is one body paragraph. A positive Footnote appends a footnote
// reference with that id at the end of the paragraph.
type Paragraph struct {
	Text     string
	Footnote int
}

// Exam returns n problems, each a statement paragraph followed by an
// answer paragraph that carries footnote i, then one closing paragraph.
func Exam(n int) []Paragraph {
	paras := make([]Paragraph, 0, 2*n+1)
	for i := 1; i <= n; i++ {
		paras = append(paras,
			Paragraph{Text: fmt.Sprintf("Problem %d statement", i)},
			Paragraph{Text: fmt.Sprintf("Answer %d", i), Footnote: i},
		)
	}
	return append(paras, Paragraph{Text: "End of exam"})
}

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/><Override PartName="/word/footnotes.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footnotes+xml"/></Types>`

const rootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const ns = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// Build returns the bytes of a .docx package holding paras.
func Build(paras []Paragraph) ([]byte, error) {
	var doc, notes strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	doc.WriteString(`<w:document ` + ns + `><w:body>`)
	notes.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	notes.WriteString(`<w:footnotes ` + ns + `>`)
	notes.WriteString(`<w:footnote w:type="separator" w:id="-1"><w:p><w:r><w:separator/></w:r></w:p></w:footnote>`)

	for _, p := range paras {
		doc.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		xml.EscapeText(&doc, []byte(p.Text))
		doc.WriteString(`</w:t></w:r>`)
		if p.Footnote > 0 {
			fmt.Fprintf(&doc, `<w:r><w:footnoteReference w:id="%d"/></w:r>`, p.Footnote)
			fmt.Fprintf(&notes, `<w:footnote w:id="%d"><w:p><w:r><w:t>Note %d</w:t></w:r></w:p></w:footnote>`, p.Footnote, p.Footnote)
		}
		doc.WriteString(`</w:p>`)
	}
	doc.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`)
	notes.WriteString(`</w:footnotes>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, part := range []struct{ name, data string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", rootRels},
		{"word/document.xml", doc.String()},
		{"word/footnotes.xml", notes.String()},
	} {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: part.name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.data)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes a .docx package holding paras to path.
func WriteFile(path string, paras []Paragraph) error {
	data, err := Build(paras)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
