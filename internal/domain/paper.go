// Package domain defines the core entities and errors shared across the
// digest pipeline.
package domain

import (
	"regexp"
	"strings"
)

// versionSuffix matches a trailing arXiv version marker such as "v2".
var versionSuffix = regexp.MustCompile(`v\d+$`)

// NormalizeArxivID strips the version suffix from an arXiv identifier.
// "2301.12345v3" becomes "2301.12345"; unversioned ids pass through.
func NormalizeArxivID(id string) string {
	return versionSuffix.ReplaceAllString(strings.TrimSpace(id), "")
}

// Author represents a paper author.
type Author struct {
	Name string `json:"name"`
}

// String returns the author's display name.
func (a Author) String() string {
	return a.Name
}

// SourceRecord is the immutable paper metadata supplied by the feed step.
// It is constructed once and never mutated by the enrichment core.
type SourceRecord struct {
	// ArxivID is the unversioned arXiv identifier, e.g. "2301.12345".
	ArxivID string
	// Title is the paper title with collapsed whitespace.
	Title string
	// Authors is the ordered author list as published.
	Authors []Author
	// Abstract is the original abstract text.
	Abstract string
	// AbsURL is the landing page, e.g. "https://arxiv.org/abs/2301.12345".
	AbsURL string
	// PDFURL is the direct PDF link reported by the feed, if any.
	PDFURL string
}

// PDFLink returns the best-known PDF location for the record. When the feed
// did not report one, the link is derived from the landing URL or, failing
// that, from the arXiv id.
func (r *SourceRecord) PDFLink() string {
	if r.PDFURL != "" {
		return r.PDFURL
	}
	if strings.Contains(r.AbsURL, "/abs/") {
		return strings.Replace(r.AbsURL, "/abs/", "/pdf/", 1)
	}
	return "https://arxiv.org/pdf/" + r.ArxivID + ".pdf"
}

// AuthorNames returns the ordered list of author display names.
func (r *SourceRecord) AuthorNames() []string {
	names := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		names = append(names, a.Name)
	}
	return names
}
