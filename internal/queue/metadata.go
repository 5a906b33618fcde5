package queue

import (
	"encoding/json"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// UnknownAuthor is the library folder used when a book carries no author metadata.
const UnknownAuthor = "Unknown Author"

// Metadata describes how a finished audiobook should be shelved and labeled.
// It travels with the queue item as JSON and is enriched as stages learn more
// about the book (author from the EPUB, narrator from the voice preset).
type Metadata struct {
	TitleValue    string  `json:"title"`
	AuthorValue   string  `json:"author,omitempty"`
	SeriesTitle   string  `json:"series,omitempty"`
	SeriesIndex   float64 `json:"series_index,omitempty"`
	Narrator      string  `json:"narrator,omitempty"`
	Language      string  `json:"language,omitempty"`
	LibraryPath   string  `json:"library_path,omitempty"`
	FilenameValue string  `json:"filename,omitempty"`
}

// MetadataFromJSON builds metadata from stored JSON, falling back to basic inference.
func MetadataFromJSON(data, fallbackTitle string) Metadata {
	meta := Metadata{TitleValue: fallbackTitle, FilenameValue: fallbackTitle}
	_ = json.Unmarshal([]byte(data), &meta)
	return meta
}

// NewBookMetadata constructs a metadata record for a standalone book.
func NewBookMetadata(title, author string) Metadata {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled Book"
	}
	return Metadata{
		TitleValue:  title,
		AuthorValue: strings.TrimSpace(author),
	}
}

// NewSeriesMetadata constructs a metadata record for a book within a series.
// The index orders books on disk; fractional indices cover interstitial
// novellas (1.5 and friends).
func NewSeriesMetadata(author, series string, index float64, title string) Metadata {
	meta := NewBookMetadata(title, author)
	meta.SeriesTitle = strings.TrimSpace(series)
	meta.SeriesIndex = index
	return meta
}

// GetLibraryPath returns the directory the finished audiobook belongs in.
// An explicit LibraryPath overrides the derived author/series hierarchy.
func (m Metadata) GetLibraryPath(root, audiobooksDir string) string {
	if m.LibraryPath != "" {
		return m.LibraryPath
	}
	author := sanitizeFilename(m.AuthorValue)
	if author == "" {
		author = UnknownAuthor
	}
	parts := []string{root, audiobooksDir, author}
	if series := sanitizeFilename(m.SeriesTitle); series != "" {
		parts = append(parts, series)
	}
	return filepath.Join(parts...)
}

// GetFilename returns the output filename stem. Books in a series gain a
// sortable index prefix; all editions of a title share the base name.
func (m Metadata) GetFilename() string {
	base := m.GetBaseFilename()
	if m.SeriesTitle != "" && m.SeriesIndex > 0 {
		return formatSeriesIndex(m.SeriesIndex) + " - " + base
	}
	return base
}

// GetBaseFilename returns the filename stem without any series prefix.
func (m Metadata) GetBaseFilename() string {
	if name := sanitizeFilename(m.FilenameValue); name != "" {
		return name
	}
	if name := sanitizeFilename(m.TitleValue); name != "" {
		return name
	}
	return "untitled"
}

// Title returns the display title for the book.
func (m Metadata) Title() string { return m.TitleValue }

// Author returns the display author for the book.
func (m Metadata) Author() string { return m.AuthorValue }

// formatSeriesIndex renders a series position as a sortable prefix: whole
// numbers become two digits ("03"), fractional positions keep their fraction
// ("1.5").
func formatSeriesIndex(index float64) string {
	if index == math.Trunc(index) {
		return twoDigit(int(index))
	}
	return strconv.FormatFloat(index, 'f', -1, 64)
}

func twoDigit(n int) string {
	if n < 10 && n >= 0 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// sanitizeFilename makes a string safe for use as a file or directory name.
// Colons become " -" so titles like "Dune: Messiah" stay readable.
func sanitizeFilename(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		":", " -",
		"/", "-",
		"\\", "-",
		"*", "-",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
		"\n", " ",
		"\t", " ",
	)
	cleaned := replacer.Replace(value)
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, " ")
}
