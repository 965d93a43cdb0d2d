package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the serve-mode settings. The CLI batch path takes no
// configuration at all: one folder argument, nothing else.
type Config struct {
	Port string

	// Auth. Empty means the API is open; set a key to require bearer auth.
	APIKey string

	// Upload limits
	MaxUploadBytes int64

	// PDF scan extraction
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port:                 envOr("PORT", "8090"),
		APIKey:               os.Getenv("REPORTANON_API_KEY"),
		MaxUploadBytes:       envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}

	return cfg
}

func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
