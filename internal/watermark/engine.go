package watermark

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const textFont = "Helvetica"

// Engine stamps watermarks onto PDFs held in memory.
type Engine struct {
	conf *model.Configuration
}

func NewEngine() *Engine {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Engine{conf: conf}
}

// PageCount reads pdf and returns its number of pages. Unreadable input is ErrRenderFailed.
func (e *Engine) PageCount(pdf []byte) (n int, err error) {
	defer recoverRender(&err)
	n, err = api.PageCount(bytes.NewReader(pdf), e.conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return n, nil
}

// Apply returns a copy of pdf with s stamped onto the selected pages. The input slice is not modified.
// s must already be normalized.
func (e *Engine) Apply(ctx context.Context, pdf []byte, s Settings) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ranges, err := ParsePages(s.Pages)
	if err != nil {
		return nil, err
	}
	pageCount, err := e.PageCount(pdf)
	if err != nil {
		return nil, err
	}
	if first := FirstPage(ranges); first > pageCount {
		return nil, invalid("pages", "document has %d pages", pageCount)
	}

	wm, err := e.build(s)
	if err != nil {
		return nil, err
	}
	return e.stamp(pdf, selection(ranges), wm)
}

func (e *Engine) build(s Settings) (*model.Watermark, error) {
	switch s.Kind {
	case KindText:
		desc := fmt.Sprintf("%s, fontname:%s, fillcolor:%s", baseDescription(s), textFont, s.Color)
		wm, err := api.TextWatermark(s.Text, desc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
		}
		return wm, nil
	case KindImage:
		img, err := NormalizeImage(s.Image)
		if err != nil {
			return nil, err
		}
		wm, err := api.ImageWatermarkForReader(bytes.NewReader(img), baseDescription(s), true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
		}
		return wm, nil
	default:
		return nil, invalid("watermark_type", "must be TEXT or IMAGE")
	}
}

func (e *Engine) stamp(pdf []byte, pages []string, wm *model.Watermark) (out []byte, err error) {
	defer recoverRender(&err)
	var buf bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(pdf), &buf, pages, wm, e.conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}

func baseDescription(s Settings) string {
	return fmt.Sprintf("position:%s, scalefactor:%.4f rel, rotation:%.2f, opacity:%.2f",
		anchors[s.Position], s.Scale, s.Rotation, s.Opacity)
}

// pdfcpu can panic on malformed object streams.
func recoverRender(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrRenderFailed, r)
	}
}
