package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rgoodwin/reportanon/internal/batch"
	"github.com/rgoodwin/reportanon/internal/doctree"
	"github.com/rgoodwin/reportanon/internal/mask"
)

// Section is the findings within one document section, located by its
// heading breadcrumb (or page, for paged formats).
type Section struct {
	Breadcrumb []string       `json:"breadcrumb,omitempty"`
	Page       int            `json:"page,omitempty"`
	Findings   []mask.Finding `json:"findings"`
}

// FileReport is the scan outcome for one file.
type FileReport struct {
	File     string    `json:"file"`
	Error    string    `json:"error,omitempty"`
	Sections []Section `json:"sections,omitempty"`
	Matches  int       `json:"matches"`
}

// Scanner extracts text from supported files and reports what the masker
// would redact.
type Scanner struct {
	masker *mask.Masker

	// PDFFallback allows shelling out to pdftotext when the PDF library
	// cannot extract text.
	PDFFallback bool
}

func NewScanner(m *mask.Masker) *Scanner {
	return &Scanner{masker: m, PDFFallback: true}
}

// ScanFile extracts path and reports its findings. Extraction failures are
// returned as an error; the caller decides whether they end the run.
func (s *Scanner) ScanFile(path string) (*FileReport, error) {
	ext, err := ForFile(path)
	if err != nil {
		return nil, err
	}
	if pe, ok := ext.(*PDFExtractor); ok {
		pe.FallbackPdftotext = s.PDFFallback
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	tree, err := ext.Extract(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	return s.ScanTree(filepath.Base(path), tree), nil
}

// ScanTree walks an extracted document tree and collects findings per
// section. Section headings are scanned along with their body text — a
// finding title like "Compromise of db01.internal.example.com" is exactly the
// kind of thing that must not leak.
func (s *Scanner) ScanTree(file string, tree *doctree.DocTree) *FileReport {
	rep := &FileReport{File: file}
	for _, child := range tree.Children {
		s.scanNode(child, nil, rep)
	}
	return rep
}

func (s *Scanner) scanNode(n *doctree.DocNode, crumb []string, rep *FileReport) {
	if n.Title != "" {
		crumb = append(crumb[:len(crumb):len(crumb)], n.Title)
	}

	text := n.Text
	if n.Title != "" {
		text = n.Title + "\n" + text
	}
	if findings := s.masker.Findings(text); len(findings) > 0 {
		sec := Section{Breadcrumb: crumb, Page: n.Page, Findings: findings}
		for _, f := range findings {
			rep.Matches += len(f.Matches)
		}
		rep.Sections = append(rep.Sections, sec)
	}

	for _, child := range n.Children {
		s.scanNode(child, crumb, rep)
	}
}

// ScanDir scans every supported file directly inside dir, sorted by name.
// Per-file extraction failures are contained in that file's report.
func (s *Scanner) ScanDir(dir string) ([]*FileReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsSupportedExtension(e.Name()) {
			continue
		}
		if strings.HasPrefix(e.Name(), batch.OutputPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	reports := make([]*FileReport, 0, len(names))
	for _, name := range names {
		rep, err := s.ScanFile(filepath.Join(dir, name))
		if err != nil {
			rep = &FileReport{File: name, Error: err.Error()}
		}
		reports = append(reports, rep)
	}
	return reports, nil
}
