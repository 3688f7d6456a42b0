package extract

import "fmt"

// Config holds the tunables of the local extractor. It is passed explicitly
// to NewLocal; there is no package-level state.
type Config struct {
	// MergeGap is the largest horizontal gap, as a fraction of the font size,
	// between two fragments on one line that are still joined into one word.
	MergeGap float64

	// LineTolerance is the largest vertical distance, as a fraction of the
	// run height, between two runs on the same line.
	LineTolerance float64

	// DescentRatio estimates the glyph descent below the baseline as a
	// fraction of the font size.
	DescentRatio float64

	// MinDirectTextChars is the length a page's trimmed text must exceed
	// before its text layer is considered complete. Spaces between words and
	// line breaks count.
	MinDirectTextChars int

	// OCRSupplement enables OCR of images on pages that also have a text
	// layer. Requires a Recognizer.
	OCRSupplement bool
}

// DefaultConfig returns the default extraction configuration.
func DefaultConfig() Config {
	return Config{
		MergeGap:           0.15,
		LineTolerance:      0.5,
		DescentRatio:       0.2,
		MinDirectTextChars: 50,
		OCRSupplement:      true,
	}
}

// Validate checks that the configuration values are in range.
func (c Config) Validate() error {
	if c.MergeGap < 0 || c.MergeGap > 2 {
		return fmt.Errorf("merge gap %.2f out of range [0, 2]", c.MergeGap)
	}
	if c.LineTolerance <= 0 || c.LineTolerance > 2 {
		return fmt.Errorf("line tolerance %.2f out of range (0, 2]", c.LineTolerance)
	}
	if c.DescentRatio < 0 || c.DescentRatio > 1 {
		return fmt.Errorf("descent ratio %.2f out of range [0, 1]", c.DescentRatio)
	}
	if c.MinDirectTextChars < 0 {
		return fmt.Errorf("min direct text chars must not be negative")
	}
	return nil
}
