//go:build ocr

// Package ocr recognizes words on rendered PDF pages for documents, or
// parts of documents, that have no text layer.
//
// Pages are rasterized with MuPDF (go-fitz) and recognized with Tesseract
// through gosseract. Tesseract must be installed on the system. On macOS:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr libtesseract-dev
package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Enabled reports whether Tesseract support is compiled in.
const Enabled = true

// Client wraps Tesseract for word recognition. It is not safe for
// concurrent use.
type Client struct {
	client *gosseract.Client
}

// New creates a new OCR client.
// The client should be closed when no longer needed to release resources.
func New() (*Client, error) {
	return &Client{client: gosseract.NewClient()}, nil
}

// Close releases OCR resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// SetLanguage sets the recognition languages, e.g. "eng", "fra".
func (c *Client) SetLanguage(langs ...string) error {
	return c.client.SetLanguage(langs...)
}

// RecognizeWords finds the words of an encoded image (PNG, TIFF, JPEG).
func (c *Client) RecognizeWords(imageData []byte) ([]WordBox, error) {
	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := c.client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	words := make([]WordBox, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, WordBox{
			Text:       b.Word,
			Box:        b.Box,
			Confidence: b.Confidence,
			Block:      b.BlockNum,
			Par:        b.ParNum,
			Line:       b.LineNum,
		})
	}
	return words, nil
}
