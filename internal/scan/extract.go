// Package scan previews what the anonymiser would mask, without writing
// anything.
//
// Extraction is per-format: each Extractor flattens a file into a section
// tree (internal/doctree), and the scanner reports the masker's findings per
// section. For DOCX this covers body paragraphs under their headings; the
// redaction pass itself reaches further (tables, headers, footers), so a
// clean scan is a preview, not a guarantee.
package scan

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rgoodwin/reportanon/internal/doctree"
)

// Extractor converts raw document bytes into a DocTree.
type Extractor interface {
	Extract(r io.Reader, filename string) (*doctree.DocTree, error)
}

// SupportedExtensions lists file extensions scan mode can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate extractor for a filename.
func ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".pdf":
		return &PDFExtractor{FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}
