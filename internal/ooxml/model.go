package ooxml

import "github.com/rgoodwin/reportanon/internal/walk"

// The model mirrors the WordprocessingML containment shape: a body, header or
// footer holds paragraphs and tables; a table holds rows of cells; a cell is
// itself a paragraph-and-table container, which is where nested tables come
// from. Only the pieces the walker needs are modelled — everything else stays
// as untouched bytes in the source part.

// textNode is one w:t element: its decoded text plus the byte range of the
// raw inner text within the part, so a rewrite can be spliced back without
// re-serialising anything around it.
type textNode struct {
	start int64
	end   int64
	orig  string
	val   string
}

func (t *textNode) dirty() bool { return t.val != t.orig }

// Run is the smallest addressable text unit: a single w:t element. Formatting
// lives on the enclosing w:r, which is never parsed, never touched.
type Run struct {
	text *textNode
}

func (r *Run) Text() string     { return r.text.val }
func (r *Run) SetText(s string) { r.text.val = s }

// Paragraph is a w:p element's runs, in document order.
type Paragraph struct {
	runs []*Run
}

func (p *Paragraph) Runs() []walk.Run {
	out := make([]walk.Run, len(p.runs))
	for i, r := range p.runs {
		out[i] = r
	}
	return out
}

// Container holds ordered paragraphs and tables. It backs the document body,
// table cells, headers and footers alike.
type Container struct {
	paragraphs []*Paragraph
	tables     []*Table
}

func (c *Container) Paragraphs() []walk.Paragraph {
	out := make([]walk.Paragraph, len(c.paragraphs))
	for i, p := range c.paragraphs {
		out[i] = p
	}
	return out
}

func (c *Container) Tables() []walk.Table {
	out := make([]walk.Table, len(c.tables))
	for i, t := range c.tables {
		out[i] = t
	}
	return out
}

// Table is a w:tbl element.
type Table struct {
	rows []*Row
}

func (t *Table) Rows() []walk.Row {
	out := make([]walk.Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = r
	}
	return out
}

// Row is a w:tr element; its cells are containers.
type Row struct {
	cells []*Container
}

func (r *Row) Cells() []walk.Container {
	out := make([]walk.Container, len(r.cells))
	for i, c := range r.cells {
		out[i] = c
	}
	return out
}

// Section pairs one header part with one footer part. Either may be absent.
type Section struct {
	header *Container
	footer *Container
}

func (s *Section) Header() walk.Container {
	if s.header == nil {
		return nil
	}
	return s.header
}

func (s *Section) Footer() walk.Container {
	if s.footer == nil {
		return nil
	}
	return s.footer
}
