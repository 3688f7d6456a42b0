package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
)

// ErrRenderCancelled is returned when a page render is abandoned because its
// context was cancelled, usually by a newer request for the same viewer.
var ErrRenderCancelled = errors.New("page render cancelled")

// ErrPageOutOfRange is returned for a page index the document does not have.
var ErrPageOutOfRange = errors.New("page out of range")

// Renderer rasterizes PDF pages with MuPDF.
type Renderer struct {
	// MaxPixels caps the size of a rendered image. Larger renders are
	// downscaled. Zero means no limit.
	MaxPixels int
}

// RenderImage rasterizes one page at dpi. MuPDF calls cannot be
// interrupted, so a cancelled render returns ErrRenderCancelled at once and
// the abandoned work finishes in the background.
func (r Renderer) RenderImage(ctx context.Context, data []byte, page int, dpi float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderCancelled, err)
	}
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid render resolution %.1f dpi", dpi)
	}

	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := renderPage(data, page, dpi)
		done <- result{img: img, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrRenderCancelled, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		img, _ := Downscale(res.img, r.MaxPixels)
		return img, nil
	}
}

// RenderPNG rasterizes one page at dpi and encodes it as PNG.
func (r Renderer) RenderPNG(ctx context.Context, data []byte, page int, dpi float64) ([]byte, error) {
	img, err := r.RenderImage(ctx, data, page, dpi)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", page+1, err)
	}
	return buf.Bytes(), nil
}

func renderPage(data []byte, page int, dpi float64) (*image.RGBA, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	if n := doc.NumPage(); page < 0 || page >= n {
		return nil, fmt.Errorf("%w: page %d, document has %d pages", ErrPageOutOfRange, page+1, n)
	}
	img, err := doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page+1, err)
	}
	return img, nil
}

// Downscale shrinks img so that it has at most maxPixels pixels, keeping
// the aspect ratio. It returns img itself when no scaling is needed.
func Downscale(img image.Image, maxPixels int) (image.Image, bool) {
	b := img.Bounds()
	pixels := b.Dx() * b.Dy()
	if maxPixels <= 0 || pixels <= maxPixels {
		return img, false
	}

	scale := math.Sqrt(float64(maxPixels) / float64(pixels))
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, true
}
