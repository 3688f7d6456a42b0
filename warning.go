package pdfcompare

import (
	"fmt"
	"strings"
)

// WarningCode identifies the type of warning encountered during a comparison.
type WarningCode int

const (
	// WarningRemoteFallback indicates that the extraction service failed and
	// the report text of a document came from local extraction.
	WarningRemoteFallback WarningCode = iota

	// WarningOCRFallback indicates that OCR was used to extract text from a
	// page with no usable text layer. Its highlights are only as accurate as
	// the recognized word boxes.
	WarningOCRFallback

	// WarningOCRFailed indicates that OCR of a page failed and the page kept
	// only its text layer.
	WarningOCRFailed

	// WarningEncodingSubstitution indicates that a legend character could
	// not be drawn with the standard font and was replaced.
	WarningEncodingSubstitution
)

var warningCodeNames = [...]string{
	"remote_fallback",
	"ocr_fallback",
	"ocr_failed",
	"encoding_substitution",
}

// String returns the snake_case name of the code.
func (c WarningCode) String() string {
	if c < 0 || int(c) >= len(warningCodeNames) {
		return fmt.Sprintf("WarningCode(%d)", int(c))
	}
	return warningCodeNames[c]
}

// MarshalText encodes the code by name.
func (c WarningCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Warning represents a non-fatal issue encountered during a comparison.
// Unlike errors, warnings indicate that the comparison succeeded but the
// results may be imperfect or require attention.
type Warning struct {
	Code    WarningCode `json:"code" yaml:"code"`
	Message string      `json:"message" yaml:"message"`
}

// String returns the warning message.
func (w Warning) String() string {
	return w.Message
}

// FormatWarnings returns a human-readable string of all warnings.
// Returns empty string if there are no warnings.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(warnings))
	for _, w := range warnings {
		msgs = append(msgs, w.Message)
	}
	return strings.Join(msgs, "; ")
}
