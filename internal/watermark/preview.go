package watermark

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gen2brain/go-fitz"
)

const PreviewContentType = "image/jpeg"

// Renderer produces a raster preview of the first selected page with the watermark applied.
type Renderer struct {
	engine   *Engine
	dpi      float64
	maxWidth int
}

func NewRenderer(engine *Engine, dpi float64, maxWidth int) *Renderer {
	if dpi <= 0 {
		dpi = 72
	}
	return &Renderer{engine: engine, dpi: dpi, maxWidth: maxWidth}
}

// Render stamps only the preview page, rasterizes it and returns JPEG bytes.
func (r *Renderer) Render(ctx context.Context, pdf []byte, s Settings) ([]byte, error) {
	ranges, err := ParsePages(s.Pages)
	if err != nil {
		return nil, err
	}
	page := FirstPage(ranges)

	single := s
	single.Pages = strconv.Itoa(page)
	stamped, err := r.engine.Apply(ctx, pdf, single)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	png, err := rasterize(stamped, page-1, r.dpi)
	if err != nil {
		return nil, err
	}
	return downscaleJPEG(png, r.maxWidth)
}

func rasterize(pdf []byte, index int, dpi float64) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: open for preview: %v", ErrRenderFailed, err)
	}
	defer doc.Close()

	if index < 0 || index >= doc.NumPage() {
		return nil, invalid("pages", "document has %d pages", doc.NumPage())
	}
	png, err := doc.ImagePNG(index, dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: rasterize page %d: %v", ErrRenderFailed, index+1, err)
	}
	return png, nil
}
