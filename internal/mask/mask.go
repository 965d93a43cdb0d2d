// Package mask classifies and redacts infrastructure identifiers in free text.
//
// The pattern set is deliberately small: IPv4 addresses, URLs, email
// addresses, MAC addresses, "port NNNN" references and hostnames. CVE
// identifiers are intentionally not covered and must survive unchanged —
// a report with its CVE numbers scrubbed is useless to the recipient.
package mask

import (
	"regexp"
	"strings"
)

// Pattern is one ordered recognition rule. Order is significant: patterns run
// sequentially over the current (possibly already partially masked) text, so a
// later pattern never re-matches digits inside an earlier pattern's mask.
type Pattern struct {
	Name string
	re   *regexp.Regexp
}

// Patterns returns the rule set in application order.
//
// None of these can match a CVE identifier: the numeric patterns require dots
// or colons that CVE-YYYY-NNNN lacks, and the hostname pattern requires a
// dot-separated alphabetic suffix.
func Patterns() []Pattern {
	return []Pattern{
		// Four dot-separated 1-3 digit groups. No octet range check;
		// 999.999.999.999 is masked too — over-masking is the safe direction.
		{Name: "ipv4", re: regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
		// Greedy to the next whitespace.
		{Name: "url", re: regexp.MustCompile(`\bhttps?://\S+`)},
		{Name: "email", re: regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)},
		{Name: "mac", re: regexp.MustCompile(`\b(?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}\b`)},
		// The literal word "port" is part of the match so the number cannot be
		// re-associated with the surrounding sentence.
		{Name: "port", re: regexp.MustCompile(`(?i)\bport\s+\d{1,5}\b`)},
		// Must run last: on raw text it would also match the host part of URLs
		// and emails already handled above.
		{Name: "hostname", re: regexp.MustCompile(`\b(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}\b`)},
	}
}

// Masker applies the pattern set to text. The zero value is not usable;
// construct with New so the patterns compile once per process, not per call.
type Masker struct {
	patterns []Pattern
}

func New() *Masker {
	return &Masker{patterns: Patterns()}
}

// Anonymise replaces every match of every pattern, in order, with a run of 'x'
// characters of the same length. Length-preserving replacement keeps column
// alignment in monospaced report tables intact.
func (m *Masker) Anonymise(text string) string {
	for _, p := range m.patterns {
		text = p.re.ReplaceAllStringFunc(text, maskMatch)
	}
	return text
}

// Finding is one pattern class's matches within a piece of text, as reported
// by scan mode. Matches are collected with the same sequential semantics as
// Anonymise, so a span consumed by an earlier pattern is not re-reported.
type Finding struct {
	Pattern string   `json:"pattern"`
	Matches []string `json:"matches"`
}

// Findings reports what Anonymise would mask in text, per pattern, without
// altering the caller's copy.
func (m *Masker) Findings(text string) []Finding {
	var out []Finding
	for _, p := range m.patterns {
		matches := p.re.FindAllString(text, -1)
		if len(matches) > 0 {
			out = append(out, Finding{Pattern: p.Name, Matches: matches})
		}
		text = p.re.ReplaceAllStringFunc(text, maskMatch)
	}
	return out
}

func maskMatch(match string) string {
	return strings.Repeat("x", len(match))
}
