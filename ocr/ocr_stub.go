//go:build !ocr

// Package ocr recognizes words on rendered PDF pages for documents, or
// parts of documents, that have no text layer.
//
// This is the build without Tesseract. Page rendering works; recognition
// returns ErrOCRNotEnabled. To enable it, rebuild with the "ocr" tag:
//
//	go build -tags ocr
package ocr

import "errors"

// ErrOCRNotEnabled is returned when recognition is requested but Tesseract
// support was not compiled in.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Enabled reports whether Tesseract support is compiled in.
const Enabled = false

// Client is a stub OCR client.
type Client struct{}

// New returns ErrOCRNotEnabled.
func New() (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op. It is safe to call on a nil client.
func (c *Client) Close() error {
	return nil
}

// SetLanguage returns ErrOCRNotEnabled.
func (c *Client) SetLanguage(langs ...string) error {
	return ErrOCRNotEnabled
}

// RecognizeWords returns ErrOCRNotEnabled.
func (c *Client) RecognizeWords(imageData []byte) ([]WordBox, error) {
	return nil, ErrOCRNotEnabled
}
