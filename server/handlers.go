package server

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/tsawler/pdfcompare"
	"github.com/tsawler/pdfcompare/diff"
	"github.com/tsawler/pdfcompare/extract"
	"github.com/tsawler/pdfcompare/highlight"
	"github.com/tsawler/pdfcompare/remote"
	"github.com/tsawler/pdfcompare/report"
)

// RootResponse is the body of GET /.
type RootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// DiffResponse is the body of POST /api/diff. AnnotatedPDF is base64
// encoded in JSON.
type DiffResponse struct {
	Success      bool                 `json:"success"`
	File1        string               `json:"file1"`
	File2        string               `json:"file2"`
	Rows         []diff.LineRow       `json:"rows"`
	Segments     []diff.Segment       `json:"segments"`
	Regions      []highlight.Region   `json:"regions"`
	Summary      report.Summary       `json:"summary"`
	Warnings     []pdfcompare.Warning `json:"warnings"`
	AnnotatedPDF []byte               `json:"annotated_pdf"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message: "PDF Comparator API",
		Version: s.opts.Version,
		Endpoints: map[string]string{
			"/api/extract": "POST - Extract text from a single PDF",
			"/api/compare": "POST - Compare two PDFs and return differences",
			"/api/diff":    "POST - Compare two PDFs and return highlights and the annotated PDF",
			"/api/render":  "POST - Render one page of a PDF as PNG",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, remote.HealthResponse{Status: "healthy", Service: ServiceName})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	uploads, ok := s.readUploads(w, r, "file")
	if !ok {
		return
	}
	file := uploads[0]

	opts := []extract.LocalOption{extract.WithLogger(*s.reqLogger(r))}
	if s.opts.Recognizer != nil {
		opts = append(opts, extract.WithRecognizer(s.opts.Recognizer))
	}
	doc, err := extract.NewLocal(s.opts.Extract, opts...).ExtractDocument(r.Context(), file.data)
	if err != nil {
		s.fail(w, r, "Error processing PDF", err)
		return
	}

	writeJSON(w, http.StatusOK, remote.ExtractResponse{
		Success:        true,
		DocumentResult: remote.NewDocumentResult(file.name, doc),
	})
}

// handleCompare returns both extractions and the side-by-side line diff as
// an HTML table. ?changes_only=true hides unchanged lines beyond three
// lines of context.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	uploads, ok := s.readUploads(w, r, "file1", "file2")
	if !ok {
		return
	}

	res, _, err := s.comparer(r, uploads[0], uploads[1]).SkipAnnotation().Compare(r.Context())
	if err != nil {
		s.fail(w, r, "Error comparing PDFs", err)
		return
	}

	opts := report.Options{}
	if changesOnly, _ := strconv.ParseBool(r.URL.Query().Get("changes_only")); changesOnly {
		opts.ChangesOnly = true
		opts.Context = 3
	}
	var buf bytes.Buffer
	if err := report.WriteHTML(&buf, res.Report(), opts); err != nil {
		s.fail(w, r, "Error rendering report", err)
		return
	}

	writeJSON(w, http.StatusOK, remote.CompareResponse{
		Success:  true,
		File1:    remote.NewDocumentResult(res.Name1, res.Doc1),
		File2:    remote.NewDocumentResult(res.Name2, res.Doc2),
		HTMLDiff: buf.String(),
	})
}

// handleDiff runs the full pipeline. ?legend=caption draws the color key
// and caption on highlighted pages.
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	uploads, ok := s.readUploads(w, r, "file1", "file2")
	if !ok {
		return
	}

	c := s.comparer(r, uploads[0], uploads[1])
	if q := r.URL.Query(); q.Has("legend") {
		c = c.Legend(q.Get("legend"))
	}
	res, warnings, err := c.Compare(r.Context())
	if err != nil {
		s.fail(w, r, "Error comparing PDFs", err)
		return
	}

	writeJSON(w, http.StatusOK, DiffResponse{
		Success:      true,
		File1:        res.Name1,
		File2:        res.Name2,
		Rows:         res.Rows,
		Segments:     res.Segments,
		Regions:      res.Regions,
		Summary:      res.Summary,
		Warnings:     warnings,
		AnnotatedPDF: res.Annotated,
	})
}

func (s *Server) comparer(r *http.Request, a, b upload) *pdfcompare.Comparer {
	c := pdfcompare.FromBytes(a.data, b.data).
		Names(a.name, b.name).
		Config(s.opts.Extract).
		Annotation(s.opts.Annotate).
		HeightFactor(s.opts.HeightFactor).
		Logger(*s.reqLogger(r))
	if s.opts.Recognizer != nil {
		c = c.Recognizer(s.opts.Recognizer)
	}
	return c
}
