package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/tsawler/pdfcompare/ocr"
)

// ClientIDHeader identifies a page viewer. A render request cancels the
// viewer's previous render if it is still running.
const ClientIDHeader = "X-Client-ID"

const maxRenderDPI = 300

var errSuperseded = errors.New("superseded by a newer render")

type renderSlot struct {
	id     uint64
	cancel context.CancelCauseFunc
}

// renderRegistry tracks the running render of each client.
type renderRegistry struct {
	mu     sync.Mutex
	next   uint64
	active map[string]renderSlot
}

func newRenderRegistry() *renderRegistry {
	return &renderRegistry{active: make(map[string]renderSlot)}
}

// start cancels the client's running render and registers a new one. The
// returned function must be called when the render ends.
func (g *renderRegistry) start(parent context.Context, client string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)

	g.mu.Lock()
	if prev, ok := g.active[client]; ok {
		prev.cancel(errSuperseded)
	}
	g.next++
	id := g.next
	g.active[client] = renderSlot{id: id, cancel: cancel}
	g.mu.Unlock()

	return ctx, func() {
		g.mu.Lock()
		if slot, ok := g.active[client]; ok && slot.id == id {
			delete(g.active, client)
		}
		g.mu.Unlock()
		cancel(nil)
	}
}

// running returns the number of registered renders.
func (g *renderRegistry) running() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}

// handleRender rasterizes one page. Query parameters: page (1-based,
// default 1) and dpi (default Options.RenderDPI, at most 300).
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid page %q", v))
			return
		}
		page = n
	}
	dpi := s.opts.RenderDPI
	if v := q.Get("dpi"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d <= 0 || d > maxRenderDPI {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid dpi %q", v))
			return
		}
		dpi = d
	}

	uploads, ok := s.readUploads(w, r, "file")
	if !ok {
		return
	}

	ctx := r.Context()
	if client := r.Header.Get(ClientIDHeader); client != "" {
		var done func()
		ctx, done = s.renders.start(ctx, client)
		defer done()
	}

	png, err := s.renderer.RenderPNG(ctx, uploads[0].data, page-1, dpi)
	if err != nil {
		switch {
		case errors.Is(err, ocr.ErrRenderCancelled):
			s.reqLogger(r).Debug().
				Int("page", page).
				Str("client", r.Header.Get(ClientIDHeader)).
				AnErr("cause", context.Cause(ctx)).
				Msg("render cancelled")
			if errors.Is(context.Cause(ctx), context.DeadlineExceeded) {
				return
			}
			w.WriteHeader(StatusClientClosedRequest)
		case errors.Is(err, ocr.ErrPageOutOfRange):
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Page %d does not exist", page))
		default:
			s.fail(w, r, "Error rendering page", err)
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
