package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an output format of a report.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// HTML is a side-by-side table.
	HTML
	// Text is a side-by-side terminal view.
	Text
	// JSON is the report structure as indented JSON.
	JSON
	// YAML is the report structure as YAML.
	YAML
)

// String returns the lowercase name of the format.
func (f Format) String() string {
	switch f {
	case HTML:
		return "html"
	case Text:
		return "text"
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case HTML:
		return ".html"
	case Text:
		return ".txt"
	case JSON:
		return ".json"
	case YAML:
		return ".yaml"
	default:
		return ""
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case HTML:
		return "text/html; charset=utf-8"
	case Text:
		return "text/plain; charset=utf-8"
	case JSON:
		return "application/json"
	case YAML:
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat parses a format name such as "html" or "yml".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "html", "htm":
		return HTML, nil
	case "text", "txt":
		return Text, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return Unknown, fmt.Errorf("unknown report format %q", name)
	}
}

// Detect determines the format from a filename extension.
func Detect(filename string) Format {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return Unknown
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return Unknown
	}
	return f
}

// Write renders the report in the given format.
func Write(w io.Writer, rep *Report, f Format, opts Options) error {
	switch f {
	case HTML:
		return WriteHTML(w, rep, opts)
	case Text:
		return WriteText(w, rep, opts)
	case JSON:
		return WriteJSON(w, rep)
	case YAML:
		return WriteYAML(w, rep)
	default:
		return fmt.Errorf("unknown report format %d", int(f))
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteYAML writes the report as YAML.
func WriteYAML(w io.Writer, rep *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}
