package watermark

import (
	"fmt"

	"github.com/h2non/bimg"
)

// NormalizeImage returns data in a format pdfcpu can embed (PNG or JPEG).
// Other formats libvips can decode are converted to PNG.
func NormalizeImage(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrUnsupportedImage
	}
	t := bimg.DetermineImageType(data)
	switch t {
	case bimg.JPEG, bimg.PNG:
		return data, nil
	case bimg.WEBP, bimg.GIF, bimg.TIFF, bimg.HEIF, bimg.SVG:
		if !bimg.IsTypeSupported(t) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, bimg.ImageTypeName(t))
		}
		out, err := bimg.NewImage(data).Convert(bimg.PNG)
		if err != nil {
			return nil, fmt.Errorf("%w: convert %s: %v", ErrUnsupportedImage, bimg.ImageTypeName(t), err)
		}
		return out, nil
	default:
		return nil, ErrUnsupportedImage
	}
}

// downscaleJPEG encodes img as JPEG no wider than maxWidth.
func downscaleJPEG(img []byte, maxWidth int) ([]byte, error) {
	size, err := bimg.NewImage(img).Size()
	if err != nil {
		return nil, fmt.Errorf("read preview size: %w", err)
	}
	opts := bimg.Options{Type: bimg.JPEG, Quality: 80}
	if maxWidth > 0 && size.Width > maxWidth {
		opts.Width = maxWidth
	}
	out, err := bimg.NewImage(img).Process(opts)
	if err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return out, nil
}
