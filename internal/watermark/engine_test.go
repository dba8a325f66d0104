package watermark

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/h2non/bimg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petermazzocco/go-pdf-watermark/internal/testutil"
)

func normalized(t *testing.T, s Settings) Settings {
	t.Helper()
	require.NoError(t, s.Normalize())
	return s
}

func TestEnginePageCount(t *testing.T) {
	n, err := NewEngine().PageCount(testutil.SamplePDF(3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEngineApplyText(t *testing.T) {
	e := NewEngine()
	src := testutil.SamplePDF(2)
	orig := append([]byte(nil), src...)

	out, err := e.Apply(context.Background(), src, normalized(t, textSettings()))
	require.NoError(t, err)
	assert.NotEqual(t, src, out)
	assert.Equal(t, orig, src, "source bytes must not be modified")

	n, err := e.PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEngineApplyImageSubset(t *testing.T) {
	e := NewEngine()
	s := normalized(t, Settings{
		Kind: KindImage, Image: testutil.SamplePNG(), Opacity: 0.3,
		Position: "bottom-right", Scale: 0.25, Rotation: -15, Pages: "2",
	})

	out, err := e.Apply(context.Background(), testutil.SamplePDF(3), s)
	require.NoError(t, err)
	n, err := e.PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEngineRejectsCorruptPDF(t *testing.T) {
	_, err := NewEngine().Apply(context.Background(), []byte("definitely not a pdf"), normalized(t, textSettings()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRenderFailed))
}

func TestEngineRejectsPagesOutOfRange(t *testing.T) {
	s := textSettings()
	s.Pages = "5-"
	_, err := NewEngine().Apply(context.Background(), testutil.SamplePDF(2), normalized(t, s))
	assert.True(t, errors.Is(err, ErrInvalidSettings))
}

func TestEngineRejectsUnsupportedImage(t *testing.T) {
	s := normalized(t, Settings{Kind: KindImage, Image: []byte("plain text, not an image"), Opacity: 1, Position: "c", Scale: 0.5})
	_, err := NewEngine().Apply(context.Background(), testutil.SamplePDF(1), s)
	assert.True(t, errors.Is(err, ErrUnsupportedImage))
}

func TestEngineHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine().Apply(ctx, testutil.SamplePDF(1), normalized(t, textSettings()))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNormalizeImagePassesPNG(t *testing.T) {
	img := testutil.SamplePNG()
	out, err := NormalizeImage(img)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(img, out))

	_, err = NormalizeImage(nil)
	assert.True(t, errors.Is(err, ErrUnsupportedImage))
}

func TestRendererProducesJPEG(t *testing.T) {
	r := NewRenderer(NewEngine(), 72, 300)
	out, err := r.Render(context.Background(), testutil.SamplePDF(2), normalized(t, textSettings()))
	require.NoError(t, err)
	assert.Equal(t, bimg.JPEG, bimg.DetermineImageType(out))

	size, err := bimg.NewImage(out).Size()
	require.NoError(t, err)
	assert.LessOrEqual(t, size.Width, 300)
}

func TestEngineRendersMinimumScale(t *testing.T) {
	s := textSettings()
	s.Scale = MinScale
	out, err := NewEngine().Apply(context.Background(), testutil.SamplePDF(1), normalized(t, s))
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
