// Package batch runs the anonymiser over every eligible report in a folder.
//
// Files are processed strictly one at a time. A failure on one file becomes a
// skipped result with its reason; it never aborts the rest of the batch.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rgoodwin/reportanon/internal/mask"
	"github.com/rgoodwin/reportanon/internal/ooxml"
	"github.com/rgoodwin/reportanon/internal/walk"
)

// OutputPrefix marks output files, and excludes them from later runs over the
// same folder.
const OutputPrefix = "Anonymised_"

// Status is the outcome of one file.
type Status int

const (
	StatusDone Status = iota
	StatusSkipped
)

// Result is the per-file outcome reported up to the caller.
type Result struct {
	File   string // base name of the input file
	Status Status
	Output string // path of the written copy, when done
	Err    error  // reason, when skipped
}

// Progress is called before each file is processed. index is 1-based.
type Progress func(index, total int, file string)

// Runner processes folders of DOCX reports.
type Runner struct {
	masker *mask.Masker
}

func NewRunner(m *mask.Masker) *Runner {
	return &Runner{masker: m}
}

// Discover lists the eligible files in dir, sorted by name: regular files
// with a .docx extension (case-insensitive) that do not already carry the
// output prefix. The folder is not descended into.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".docx") {
			continue
		}
		if strings.HasPrefix(name, OutputPrefix) {
			continue
		}
		files = append(files, name)
	}
	return files, nil
}

// Process anonymises a single file, writing the copy beside it. Any failure
// while loading, rewriting or saving is contained in the result.
func (r *Runner) Process(path string) Result {
	res := Result{File: filepath.Base(path)}

	doc, err := ooxml.Open(path)
	if err != nil {
		res.Status = StatusSkipped
		res.Err = err
		return res
	}

	walk.Apply(doc, r.masker.Anonymise)

	out := filepath.Join(filepath.Dir(path), OutputPrefix+res.File)
	if err := doc.SaveAs(out); err != nil {
		res.Status = StatusSkipped
		res.Err = err
		return res
	}

	res.Status = StatusDone
	res.Output = out
	return res
}

// Run processes every eligible file in dir in sorted order. An interrupt via
// ctx stops the loop between files; results for files already handled are
// returned along with ctx's error.
func (r *Runner) Run(ctx context.Context, dir string, progress Progress) ([]Result, error) {
	files, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	return r.RunFiles(ctx, dir, files, progress)
}

// RunFiles processes the given file names (relative to dir) in order.
func (r *Runner) RunFiles(ctx context.Context, dir string, files []string, progress Progress) ([]Result, error) {
	var results []Result
	for i, name := range files {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		if progress != nil {
			progress(i+1, len(files), name)
		}
		results = append(results, r.Process(filepath.Join(dir, name)))
	}
	return results, nil
}
