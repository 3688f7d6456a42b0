// Package remote is a client for the PDF extraction service, the HTTP API
// served by cmd/pdfcompare serve and by the original comparator backend.
//
// Basic usage:
//
//	client, err := remote.NewClient(remote.Config{BaseURL: "http://localhost:8000"}, logger)
//	resp, err := client.Extract(ctx, "contract.pdf", data)
//	doc := resp.Document()
//
// Every failure is returned as a *ServiceError so callers can fall back to
// local extraction.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsawler/pdfcompare/extract"
)

// DefaultTimeout bounds one request to the service.
const DefaultTimeout = 60 * time.Second

// maxResponseBytes caps the size of a service response.
const maxResponseBytes = 64 << 20

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the extraction service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewClient creates a client for the service at cfg.BaseURL.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("remote base URL is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("remote base URL %q must use http or https", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		BaseURL:    base,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}, nil
}

type upload struct {
	field    string
	filename string
	data     []byte
}

// Extract sends one PDF to POST /api/extract.
func (c *Client) Extract(ctx context.Context, filename string, data []byte) (*ExtractResponse, error) {
	var resp ExtractResponse
	if err := c.post(ctx, "extract", "/api/extract", &resp, upload{"file", filename, data}); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &ServiceError{Op: "extract", StatusCode: http.StatusOK, Err: errors.New("service reported failure")}
	}
	return &resp, nil
}

// Compare sends two PDFs to POST /api/compare.
func (c *Client) Compare(ctx context.Context, filename1 string, data1 []byte, filename2 string, data2 []byte) (*CompareResponse, error) {
	var resp CompareResponse
	err := c.post(ctx, "compare", "/api/compare", &resp,
		upload{"file1", filename1, data1},
		upload{"file2", filename2, data2},
	)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &ServiceError{Op: "compare", StatusCode: http.StatusOK, Err: errors.New("service reported failure")}
	}
	return &resp, nil
}

// Health calls GET /health and fails unless the service reports healthy.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return nil, &ServiceError{Op: "health", Err: err}
	}

	var resp HealthResponse
	if err := c.do("health", req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "healthy" {
		return nil, &ServiceError{Op: "health", StatusCode: http.StatusOK, Err: fmt.Errorf("service status %q", resp.Status)}
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, op, path string, out any, files ...upload) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			return &ServiceError{Op: op, Err: fmt.Errorf("create form file: %w", err)}
		}
		if _, err := part.Write(f.data); err != nil {
			return &ServiceError{Op: op, Err: fmt.Errorf("write form file: %w", err)}
		}
	}
	if err := mw.Close(); err != nil {
		return &ServiceError{Op: op, Err: fmt.Errorf("close form: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &body)
	if err != nil {
		return &ServiceError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out any) error {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	start := time.Now()
	c.Logger.Debug().
		Str("op", op).
		Str("url", req.URL.String()).
		Int64("bytes", req.ContentLength).
		Msg("remote request")

	resp, err := httpClient.Do(req)
	if err != nil {
		return &ServiceError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	c.Logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("remote response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
			return &ServiceError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(errResp.Detail)}
		}
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", snippet(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}

// Strategy returns an extraction strategy backed by the service. The
// filename is sent with every upload; the service requires a .pdf suffix.
func (c *Client) Strategy(filename string) extract.Strategy {
	if filename == "" {
		filename = "document.pdf"
	}
	return extract.StrategyFunc(func(ctx context.Context, data []byte) (*extract.Document, error) {
		resp, err := c.Extract(ctx, filename, data)
		if err != nil {
			return nil, err
		}
		return resp.Document(), nil
	})
}
