package api

import (
	"encoding/json"
	"strconv"
)

// MetadataField extracts a string field from metadata JSON.
func MetadataField(metadataJSON, field, fallback string) string {
	if metadataJSON == "" {
		return fallback
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
		return fallback
	}
	value, ok := metadata[field].(string)
	if !ok || value == "" {
		return fallback
	}
	return value
}

// MetadataTitle extracts title from metadata JSON.
func MetadataTitle(metadataJSON string) string {
	return MetadataField(metadataJSON, "title", "Unknown")
}

// MetadataAuthor extracts author from metadata JSON.
func MetadataAuthor(metadataJSON string) string {
	return MetadataField(metadataJSON, "author", "Unknown")
}

// MetadataNarrator extracts the narrator voice from metadata JSON.
func MetadataNarrator(metadataJSON string) string {
	return MetadataField(metadataJSON, "narrator", "")
}

// MetadataFilename extracts filename from metadata JSON.
func MetadataFilename(metadataJSON string) string {
	return MetadataField(metadataJSON, "filename", "")
}

// metadataFields holds all commonly extracted metadata fields from a single JSON parse.
type metadataFields struct {
	title    string
	author   string
	series   string
	narrator string
	filename string
}

// parseMetadataFields extracts all common metadata fields with a single JSON parse.
// The series label folds in the numeric index when present ("Saga #2").
func parseMetadataFields(metadataJSON string) metadataFields {
	if metadataJSON == "" {
		return metadataFields{title: "Unknown", author: "Unknown"}
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(metadataJSON), &raw); err != nil {
		return metadataFields{title: "Unknown", author: "Unknown"}
	}

	str := func(key, fallback string) string {
		if v, ok := raw[key].(string); ok && v != "" {
			return v
		}
		return fallback
	}

	series := str("series", "")
	if series != "" {
		if idx, ok := raw["series_index"].(float64); ok && idx > 0 {
			series += " #" + strconv.FormatFloat(idx, 'f', -1, 64)
		}
	}

	return metadataFields{
		title:    str("title", "Unknown"),
		author:   str("author", "Unknown"),
		series:   series,
		narrator: str("narrator", ""),
		filename: str("filename", ""),
	}
}
