// Package ooxml gives structured, mutation-safe access to the text of a DOCX
// file.
//
// A DOCX file is a ZIP archive of XML parts. The text an operator can see
// lives in word/document.xml and in the word/header*.xml / word/footer*.xml
// parts; everything else (styles, fonts, numbering, relationships, media) is
// carried through byte-for-byte. Within a parsed part, only the inner text of
// w:t elements can be rewritten — saving splices the new text into the
// original bytes rather than re-serialising the XML, so formatting survives
// by construction.
package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rgoodwin/reportanon/internal/walk"
)

const documentPart = "word/document.xml"

// Document is one loaded DOCX file. It is mutated in place through the walk
// interfaces and persisted with SaveAs; the source file is never modified.
type Document struct {
	raw      []byte
	zr       *zip.Reader
	parts    map[string]*part
	body     *Container
	sections []*Section
}

// Open loads the DOCX file at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := OpenBytes(data)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return doc, nil
}

// OpenBytes loads a DOCX file already held in memory.
func OpenBytes(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	doc := &Document{
		raw:   data,
		zr:    zr,
		parts: map[string]*part{},
	}

	for _, f := range zr.File {
		if !isTextPart(f.Name) {
			continue
		}
		content, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		p, err := parsePart(f.Name, content)
		if err != nil {
			return nil, err
		}
		doc.parts[f.Name] = p
	}

	main, ok := doc.parts[documentPart]
	if !ok {
		return nil, fmt.Errorf("open archive: missing %s", documentPart)
	}
	doc.body = main.root
	doc.sections = buildSections(doc.parts)

	return doc, nil
}

// Body returns the document body as a walker container.
func (d *Document) Body() walk.Container { return d.body }

// Sections returns one section per discovered header/footer part pair,
// in sorted part-name order. Headers and footers with matching numbers are
// paired; an unmatched part yields a section with the other side absent.
func (d *Document) Sections() []walk.Section {
	out := make([]walk.Section, len(d.sections))
	for i, s := range d.sections {
		out[i] = s
	}
	return out
}

// SaveTo writes the (possibly mutated) document as a complete DOCX archive.
// Entries whose parts were not rewritten are copied with their original
// compressed bytes.
func (d *Document) SaveTo(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, f := range d.zr.File {
		p := d.parts[f.Name]
		if p == nil || !p.dirty() {
			if err := copyEntryRaw(zw, f); err != nil {
				return err
			}
			continue
		}
		header := f.FileHeader
		header.CRC32 = 0
		header.CompressedSize64 = 0
		header.UncompressedSize64 = 0
		ew, err := zw.CreateHeader(&header)
		if err != nil {
			return fmt.Errorf("write %s: %w", f.Name, err)
		}
		if _, err := ew.Write(p.render()); err != nil {
			return fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// SaveAs persists the document to a new file at path.
func (d *Document) SaveAs(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := d.SaveTo(out); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// isTextPart reports whether a ZIP entry holds operator-visible document text.
func isTextPart(name string) bool {
	if name == documentPart {
		return true
	}
	if !strings.HasPrefix(name, "word/") || !strings.HasSuffix(name, ".xml") {
		return false
	}
	base := strings.TrimSuffix(strings.TrimPrefix(name, "word/"), ".xml")
	for _, kind := range []string{"header", "footer"} {
		// header1.xml, footer2.xml; some producers emit an unnumbered
		// header.xml.
		if n, ok := strings.CutPrefix(base, kind); ok && allDigits(n) {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// buildSections pairs header and footer parts positionally after sorting each
// side by part name. Word numbers these parts per section reference, so sorted
// order matches the section order for every document Word itself produces.
func buildSections(parts map[string]*part) []*Section {
	var headers, footers []string
	for name := range parts {
		base := strings.TrimPrefix(name, "word/")
		switch {
		case strings.HasPrefix(base, "header"):
			headers = append(headers, name)
		case strings.HasPrefix(base, "footer"):
			footers = append(footers, name)
		}
	}
	sort.Strings(headers)
	sort.Strings(footers)

	n := len(headers)
	if len(footers) > n {
		n = len(footers)
	}
	sections := make([]*Section, 0, n)
	for i := 0; i < n; i++ {
		s := &Section{}
		if i < len(headers) {
			s.header = parts[headers[i]].root
		}
		if i < len(footers) {
			s.footer = parts[footers[i]].root
		}
		sections = append(sections, s)
	}
	return sections
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

func copyEntryRaw(zw *zip.Writer, f *zip.File) error {
	rc, err := f.OpenRaw()
	if err != nil {
		return fmt.Errorf("copy %s: %w", f.Name, err)
	}
	header := f.FileHeader
	ew, err := zw.CreateRaw(&header)
	if err != nil {
		return fmt.Errorf("copy %s: %w", f.Name, err)
	}
	if _, err := io.Copy(ew, rc); err != nil {
		return fmt.Errorf("copy %s: %w", f.Name, err)
	}
	return nil
}
