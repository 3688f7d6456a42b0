package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tsawler/pdfcompare/remote"
)

// StatusClientClosedRequest is the nginx convention for a request whose
// client stopped waiting. It is also used for superseded renders.
const StatusClientClosedRequest = 499

// maxMemory is the part of a multipart form kept in memory; the rest spills
// to temporary files.
const maxMemory = 32 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a body in the same shape the remote client decodes.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, remote.ErrorResponse{Detail: detail})
}

// fail reports a pipeline error. Deadline errors are left to the Timeout
// middleware, which answers 504.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded) && r.Context().Err() != nil:
		return
	case errors.Is(err, context.Canceled):
		w.WriteHeader(StatusClientClosedRequest)
		return
	}
	s.reqLogger(r).Error().Err(err).Msg(prefix)
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", prefix, err))
}

// reqLogger returns the server logger tagged with the request ID.
func (s *Server) reqLogger(r *http.Request) *zerolog.Logger {
	l := s.logger.With().Str("request_id", chimiddleware.GetReqID(r.Context())).Logger()
	return &l
}

type upload struct {
	name string
	data []byte
}

// readUploads reads the named multipart file fields. On failure the error
// response has been written and ok is false.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request, fields ...string) (uploads []upload, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds the limit of %d bytes", tooLarge.Limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid multipart form: %v", err))
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	for _, field := range fields {
		f, hdr, err := r.FormFile(field)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Missing file field %q", field))
			return nil, false
		}
		if !strings.EqualFold(filepath.Ext(hdr.Filename), ".pdf") {
			f.Close()
			writeError(w, http.StatusBadRequest, "Only PDF files are allowed")
			return nil, false
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read %s: %v", hdr.Filename, err))
			return nil, false
		}
		uploads = append(uploads, upload{name: filepath.Base(hdr.Filename), data: data})
	}
	return uploads, true
}
