// Package walk rewrites every text run reachable in a document tree.
//
// It knows nothing about the on-disk document format: the traversal runs over
// the small adapter interfaces below, which internal/ooxml implements for real
// DOCX files and which tests implement with in-memory fakes. The interfaces
// deliberately expose no formatting accessors — the walker cannot touch
// formatting because it cannot see it.
package walk

// Rewriter maps a run's current text to its replacement text.
type Rewriter func(string) string

// Run is the smallest unit carrying both text and independent formatting.
// It is the sole mutation target.
type Run interface {
	Text() string
	SetText(string)
}

// Paragraph is an ordered sequence of runs.
type Paragraph interface {
	Runs() []Run
}

// Container is anything holding paragraphs and tables: the document body,
// a table cell, a header or a footer.
type Container interface {
	Paragraphs() []Paragraph
	Tables() []Table
}

// Table is an ordered grid of rows; each cell is itself a Container, which is
// what makes nested tables recurse for free.
type Table interface {
	Rows() []Row
}

type Row interface {
	Cells() []Container
}

// Section carries one header and one footer.
type Section interface {
	Header() Container
	Footer() Container
}

// Document is one loaded report.
type Document interface {
	Body() Container
	Sections() []Section
}

// Apply rewrites the text of every run reachable from doc's body, its tables
// (to unbounded nesting depth) and every section's header and footer, in
// reading order. Runs with empty text are left alone. Formatting, run count
// and run order are untouched.
func Apply(doc Document, rw Rewriter) {
	applyContainer(doc.Body(), rw)
	for _, sec := range doc.Sections() {
		applyContainer(sec.Header(), rw)
		applyContainer(sec.Footer(), rw)
	}
}

// applyContainer processes a container's paragraphs first, then recurses into
// its tables, mirroring the document's reading order.
func applyContainer(c Container, rw Rewriter) {
	if c == nil {
		return
	}
	for _, p := range c.Paragraphs() {
		applyParagraph(p, rw)
	}
	for _, t := range c.Tables() {
		applyTable(t, rw)
	}
}

func applyParagraph(p Paragraph, rw Rewriter) {
	for _, r := range p.Runs() {
		text := r.Text()
		if text == "" {
			continue
		}
		if rewritten := rw(text); rewritten != text {
			r.SetText(rewritten)
		}
	}
}

func applyTable(t Table, rw Rewriter) {
	for _, row := range t.Rows() {
		for _, cell := range row.Cells() {
			applyContainer(cell, rw)
		}
	}
}
