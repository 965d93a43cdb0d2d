package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rgoodwin/reportanon/internal/batch"
	"github.com/rgoodwin/reportanon/internal/ooxml"
	"github.com/rgoodwin/reportanon/internal/scan"
	"github.com/rgoodwin/reportanon/internal/walk"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// handleAnonymise accepts a multipart DOCX upload and streams back the
// redacted copy. The upload is never written to disk.
func (s *Server) handleAnonymise(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	if !strings.EqualFold(filepath.Ext(filename), ".docx") {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	doc, err := ooxml.OpenBytes(data)
	if err != nil {
		s.log.Error("open upload", "file", filename, "error", err)
		jsonError(w, "could not open document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	walk.Apply(doc, s.masker.Anonymise)

	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", batch.OutputPrefix+filename))
	if err := doc.SaveTo(w); err != nil {
		// Headers are gone; all we can do is log.
		s.log.Error("write response", "file", filename, "error", err)
	}
}

// handleScan accepts any supported upload and returns the findings report as
// JSON.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	ext, err := scan.ForFile(filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if pe, ok := ext.(*scan.PDFExtractor); ok {
		pe.FallbackPdftotext = s.cfg.PDFFallbackPdftotext
	}

	tree, err := ext.Extract(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Error("extract upload", "file", filename, "error", err)
		jsonError(w, "could not extract document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	rep := s.scanner.ScanTree(filename, tree)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}

// readUpload pulls the "file" field out of a multipart form, enforcing the
// configured size limit. On failure it writes the error response and returns
// ok=false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	// Limit total request size, with headroom for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return "", nil, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return "", nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return "", nil, false
	}

	return sanitizeFilename(header.Filename), data, true
}

// sanitizeFilename strips any path components a client smuggles into the
// upload filename.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
