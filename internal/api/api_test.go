package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rgoodwin/reportanon/internal/config"
	"github.com/rgoodwin/reportanon/internal/mask"
)

func testServer(apiKey string) *Server {
	cfg := config.Config{
		Port:           "0",
		APIKey:         apiKey,
		MaxUploadBytes: 1 << 20,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(mask.New(), log, cfg)
}

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

func uploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	srv := testServer("")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestAnonymise_ReturnsRedactedCopy(t *testing.T) {
	srv := testServer("")
	req := uploadRequest(t, "/api/anonymise", "report.docx",
		minimalDocx(t, "Server at 192.168.1.10 is vulnerable to CVE-2023-44487."))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Anonymised_report.docx") {
		t.Errorf("unexpected disposition %q", cd)
	}

	out := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("response is not a DOCX archive: %v", err)
	}
	var main string
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("open part: %v", err)
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatalf("read part: %v", err)
			}
			main = string(data)
		}
	}
	if !strings.Contains(main, "Server at "+strings.Repeat("x", len("192.168.1.10"))) {
		t.Errorf("response not masked: %q", main)
	}
	if !strings.Contains(main, "CVE-2023-44487") {
		t.Errorf("CVE identifier lost: %q", main)
	}
}

func TestAnonymise_RejectsNonDocx(t *testing.T) {
	srv := testServer("")
	req := uploadRequest(t, "/api/anonymise", "notes.txt", []byte("10.0.0.1"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnonymise_RejectsCorruptDocx(t *testing.T) {
	srv := testServer("")
	req := uploadRequest(t, "/api/anonymise", "report.docx", []byte("not a zip"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestScanEndpoint_ReportsFindings(t *testing.T) {
	srv := testServer("")
	req := uploadRequest(t, "/api/scan", "notes.txt",
		[]byte("Reached 10.0.0.5 over port 443."))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var rep struct {
		File    string `json:"file"`
		Matches int    `json:"matches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rep.File != "notes.txt" {
		t.Errorf("file: got %q", rep.File)
	}
	if rep.Matches != 2 {
		t.Errorf("expected 2 matches, got %d", rep.Matches)
	}
}

func TestAuth_RequiredWhenKeyConfigured(t *testing.T) {
	srv := testServer("sekrit")

	req := uploadRequest(t, "/api/scan", "notes.txt", []byte("x"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = uploadRequest(t, "/api/scan", "notes.txt", []byte("x"))
	req.Header.Set("Authorization", "Bearer sekrit")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}

	// Health stays public.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health should not require auth, got %d", rec.Code)
	}
}
