package pdfcompare

import (
	"github.com/rs/zerolog"

	"github.com/tsawler/pdfcompare/annotate"
	"github.com/tsawler/pdfcompare/extract"
	"github.com/tsawler/pdfcompare/highlight"
	"github.com/tsawler/pdfcompare/remote"
)

// CompareOptions holds the configuration of one comparison.
type CompareOptions struct {
	extract    extract.Config
	recognizer extract.Recognizer

	// remote, when set, provides the report texts; the local extraction is
	// its fallback and always provides the layout.
	remote *remote.Client

	heightFactor float64
	annotate     annotate.Options
	annotateOff  bool

	logger zerolog.Logger
}

// defaultOptions returns the default comparison options.
func defaultOptions() CompareOptions {
	return CompareOptions{
		extract:      extract.DefaultConfig(),
		heightFactor: highlight.DefaultHeightFactor,
		annotate:     annotate.DefaultOptions(),
		logger:       zerolog.Nop(),
	}
}

// clone creates a copy of CompareOptions that shares no mutable state.
func (o CompareOptions) clone() CompareOptions {
	return o
}
