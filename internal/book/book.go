// Package book loads audiobook source texts and carries the chunk plan
// shared between pipeline stages. EPUB, plain-text, and Markdown inputs
// all load into the same chapter structure, with body text normalized to
// NFC and paragraph breaks preserved as blank lines.
package book

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Book is the parsed source text for one audiobook. Series fields are
// populated when the source carries calibre-style collection metadata.
type Book struct {
	Title       string
	Author      string
	Language    string
	Series      string
	SeriesIndex float64
	Chapters    []Chapter
}

// Chapter holds one chapter's display title and narration text. The text
// includes the chapter heading so the narrator announces it; Title exists
// for container chapter markers and library naming.
type Chapter struct {
	Title string
	Text  string
}

// Load reads a book from disk, dispatching on the file extension.
func Load(name string) (*Book, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".epub":
		return LoadEPUB(name)
	case ".txt", ".text", ".md", ".markdown":
		return LoadText(name)
	default:
		return nil, fmt.Errorf("unsupported book format %q", filepath.Ext(name))
	}
}

// SupportedExtension reports whether name has a loadable book extension.
func SupportedExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".epub", ".txt", ".text", ".md", ".markdown":
		return true
	}
	return false
}

var errNoChapters = errors.New("book contains no readable text")

// fallbackTitle derives a display title from the source filename.
func fallbackTitle(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	return collapseSpace(base)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeText rebuilds extracted text as NFC paragraphs separated by
// blank lines. Line breaks inside a paragraph collapse to single spaces,
// which also unwraps hard-wrapped plain-text sources.
func normalizeText(s string) string {
	var paragraphs []string
	for _, p := range strings.Split(s, "\n\n") {
		p = collapseSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return norm.NFC.String(strings.Join(paragraphs, "\n\n"))
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
