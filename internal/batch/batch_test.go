package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rgoodwin/reportanon/internal/mask"
)

// minimalDocx builds a one-paragraph DOCX archive with the given run text.
func minimalDocx(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entries := []struct{ name, data string }{
		{"[Content_Types].xml", `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
			`<w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`},
	}
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("create %s: %v", e.name, err)
		}
		if _, err := w.Write([]byte(e.data)); err != nil {
			t.Fatalf("write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func docxText(t *testing.T, path string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open part: %v", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		return string(data)
	}
	t.Fatalf("%s has no word/document.xml", path)
	return ""
}

func TestDiscover_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zeta.docx"), []byte("z"))
	writeFile(t, filepath.Join(dir, "alpha.DOCX"), []byte("a"))
	writeFile(t, filepath.Join(dir, "Anonymised_report.docx"), []byte("done"))
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("n"))
	if err := os.Mkdir(filepath.Join(dir, "folder.docx"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"alpha.DOCX", "zeta.docx"}
	if len(files) != len(want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("file %d: expected %q, got %q", i, want[i], files[i])
		}
	}
}

func TestDiscover_MissingFolder(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing folder")
	}
}

func TestProcess_WritesAnonymisedCopy(t *testing.T) {
	dir := t.TempDir()
	original := minimalDocx(t, "Server at 192.168.1.10 is vulnerable to CVE-2023-44487.")
	in := filepath.Join(dir, "report.docx")
	writeFile(t, in, original)

	res := NewRunner(mask.New()).Process(in)
	if res.Status != StatusDone {
		t.Fatalf("expected done, got skipped: %v", res.Err)
	}
	if res.Output != filepath.Join(dir, "Anonymised_report.docx") {
		t.Errorf("unexpected output path %q", res.Output)
	}

	out := docxText(t, res.Output)
	if !strings.Contains(out, "Server at "+strings.Repeat("x", len("192.168.1.10"))) {
		t.Errorf("output not masked: %q", out)
	}
	if !strings.Contains(out, "CVE-2023-44487") {
		t.Errorf("CVE identifier lost: %q", out)
	}

	// The original is never modified.
	after, err := os.ReadFile(in)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}
	if !bytes.Equal(after, original) {
		t.Error("original file changed")
	}
}

func TestProcess_CorruptFileSkipped(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "broken.docx")
	writeFile(t, in, []byte("not really a docx"))

	res := NewRunner(mask.New()).Process(in)
	if res.Status != StatusSkipped {
		t.Fatal("expected skipped result")
	}
	if res.Err == nil {
		t.Fatal("skipped result must carry a reason")
	}
	if _, err := os.Stat(filepath.Join(dir, "Anonymised_broken.docx")); !os.IsNotExist(err) {
		t.Error("no output should exist for a skipped file")
	}
}

func TestRun_BadFileDoesNotAbortBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.docx"), []byte("corrupt"))
	writeFile(t, filepath.Join(dir, "b.docx"), minimalDocx(t, "host db01.internal.example.com"))

	results, err := NewRunner(mask.New()).Run(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusSkipped {
		t.Errorf("a.docx should be skipped")
	}
	if results[1].Status != StatusDone {
		t.Errorf("b.docx should be done: %v", results[1].Err)
	}
}

func TestRun_FolderScenario(t *testing.T) {
	// report.docx is processed once, Anonymised_report.docx is not
	// reprocessed, notes.txt is ignored.
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "report.docx"), minimalDocx(t, "port 8443 open"))
	writeFile(t, filepath.Join(dir, "Anonymised_report.docx"), []byte("stale output"))
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("10.0.0.1"))

	var seen []string
	progress := func(i, n int, file string) { seen = append(seen, file) }

	results, err := NewRunner(mask.New()).Run(context.Background(), dir, progress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].File != "report.docx" {
		t.Fatalf("expected exactly report.docx, got %+v", results)
	}
	if len(seen) != 1 || seen[0] != "report.docx" {
		t.Errorf("progress saw %v", seen)
	}
	if results[0].Status != StatusDone {
		t.Fatalf("expected done: %v", results[0].Err)
	}

	// notes.txt untouched, and no extra outputs appeared.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 files in folder, got %d", len(entries))
	}
}

func TestRun_InterruptStopsBetweenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.docx"), minimalDocx(t, "10.0.0.1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewRunner(mask.New()).Run(ctx, dir, nil)
	if err == nil {
		t.Fatal("expected context error")
	}
	if len(results) != 0 {
		t.Errorf("expected no results after immediate cancel, got %d", len(results))
	}
}
