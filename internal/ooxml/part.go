package ooxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// wordML is the main WordprocessingML namespace. Element matching is done on
// resolved namespace + local name, so the producer's prefix choice is
// irrelevant.
const wordML = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// part is one text-bearing XML part of the archive (word/document.xml or a
// header/footer part), parsed into the container model with every w:t text
// range recorded against the raw bytes.
type part struct {
	name  string
	data  []byte
	root  *Container
	texts []*textNode
}

// parsePart builds the container tree for one XML part. The decoder walks the
// full token stream; only w:p, w:tbl/w:tr/w:tc and w:t shape the tree, and
// byte offsets around each w:t's inner text are captured for later splicing.
// Text boxes (w:txbxContent) are skipped entirely: anonymising drawing content
// is out of scope, and their nested paragraphs must not leak into the body
// model.
func parsePart(name string, data []byte) (*part, error) {
	p := &part{name: name, data: data, root: &Container{}}

	dec := xml.NewDecoder(bytes.NewReader(data))

	containers := []*Container{p.root}
	var tables []*Table
	var rows []*Row
	var para *Paragraph

	var textBuf strings.Builder
	var textStart int64
	inText := false
	skipDepth := 0

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if skipDepth > 0 {
				skipDepth++
				continue
			}
			if t.Name.Space != wordML {
				continue
			}
			switch t.Name.Local {
			case "txbxContent":
				skipDepth = 1
			case "p":
				para = &Paragraph{}
				top := containers[len(containers)-1]
				top.paragraphs = append(top.paragraphs, para)
			case "tbl":
				tbl := &Table{}
				top := containers[len(containers)-1]
				top.tables = append(top.tables, tbl)
				tables = append(tables, tbl)
			case "tr":
				if len(tables) == 0 {
					continue
				}
				row := &Row{}
				tbl := tables[len(tables)-1]
				tbl.rows = append(tbl.rows, row)
				rows = append(rows, row)
			case "tc":
				if len(rows) == 0 {
					continue
				}
				cell := &Container{}
				row := rows[len(rows)-1]
				row.cells = append(row.cells, cell)
				containers = append(containers, cell)
			case "t":
				inText = true
				textBuf.Reset()
				textStart = dec.InputOffset()
			}

		case xml.EndElement:
			if skipDepth > 0 {
				skipDepth--
				continue
			}
			if t.Name.Space != wordML {
				continue
			}
			switch t.Name.Local {
			case "p":
				para = nil
			case "tbl":
				if len(tables) > 0 {
					tables = tables[:len(tables)-1]
				}
			case "tr":
				if len(rows) > 0 {
					rows = rows[:len(rows)-1]
				}
			case "tc":
				if len(containers) > 1 {
					containers = containers[:len(containers)-1]
				}
			case "t":
				if !inText {
					continue
				}
				inText = false
				// offset was taken before this token was read, i.e. right
				// after the inner text and before the closing tag.
				node := &textNode{
					start: textStart,
					end:   offset,
					orig:  textBuf.String(),
					val:   textBuf.String(),
				}
				p.texts = append(p.texts, node)
				if para != nil {
					para.runs = append(para.runs, &Run{text: node})
				}
			}

		case xml.CharData:
			if inText && skipDepth == 0 {
				textBuf.Write(t)
			}
		}
	}

	if inText || skipDepth > 0 || len(containers) != 1 {
		return nil, fmt.Errorf("parse %s: %w", name, errUnbalanced)
	}
	return p, nil
}

var errUnbalanced = errors.New("unbalanced document structure")

// dirty reports whether any text node was rewritten since parsing.
func (p *part) dirty() bool {
	for _, t := range p.texts {
		if t.dirty() {
			return true
		}
	}
	return false
}

// render reproduces the part bytes, splicing rewritten text (XML-escaped)
// into each dirty w:t's inner range. Untouched nodes keep their original
// bytes, entities and all, so an unchanged part round-trips byte-identical.
func (p *part) render() []byte {
	var buf bytes.Buffer
	var last int64
	for _, t := range p.texts {
		if !t.dirty() {
			continue
		}
		buf.Write(p.data[last:t.start])
		xml.EscapeText(&buf, []byte(t.val))
		last = t.end
	}
	buf.Write(p.data[last:])
	return buf.Bytes()
}
