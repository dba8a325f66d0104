package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/h2non/bimg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petermazzocco/go-pdf-watermark/internal/storage"
	"github.com/petermazzocco/go-pdf-watermark/internal/testutil"
	"github.com/petermazzocco/go-pdf-watermark/internal/watermark"
	"github.com/petermazzocco/go-pdf-watermark/models"
)

func TestApplyCreatesArtifact(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := e.createUser(t, "nia@example.com")
	doc := e.uploadPDF(t, uid, 2)

	var original models.Upload
	require.NoError(t, e.db.First(&original, "id = ?", doc).Error)
	before, err := storage.ReadAll(ctx, e.store, original.Path)
	require.NoError(t, err)

	res, err := e.watermarks.Apply(ctx, uid, doc, textWatermark())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, doc, res.DocumentID)
	assert.NotEmpty(t, res.WatermarkedID)
	assert.Contains(t, res.DownloadURL, "/watermarked/")

	var out models.WatermarkedPDF
	require.NoError(t, e.db.First(&out, "id = ?", res.WatermarkedID).Error)
	assert.Equal(t, doc, out.OriginalUploadID)
	assert.Equal(t, models.WatermarkText, out.Kind)
	assert.Equal(t, storage.WatermarkedKey(uid, doc, out.ID), out.Path)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(out.Settings, &stored))
	assert.Equal(t, "DRAFT", stored["text_content"])
	assert.Equal(t, "center", stored["position"])

	data, err := storage.ReadAll(ctx, e.store, out.Path)
	require.NoError(t, err)
	n, err := watermark.NewEngine().PageCount(data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	after, err := storage.ReadAll(ctx, e.store, original.Path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "original must be untouched")
}

func TestApplyImageWatermark(t *testing.T) {
	e := newEnv(t)
	uid := e.createUser(t, "oz@example.com")
	doc := e.uploadPDF(t, uid, 1)

	res, err := e.watermarks.Apply(context.Background(), uid, doc, watermark.Settings{
		Kind: "image", Image: testutil.SamplePNG(), Opacity: 1, Position: "top-left", Scale: 0.2,
	})
	require.NoError(t, err)

	var out models.WatermarkedPDF
	require.NoError(t, e.db.First(&out, "id = ?", res.WatermarkedID).Error)
	assert.Equal(t, models.WatermarkImage, out.Kind)
}

func TestApplyRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := e.createUser(t, "pam@example.com")
	doc := e.uploadPDF(t, uid, 1)

	bad := textWatermark()
	bad.Opacity = 2
	_, err := e.watermarks.Apply(ctx, uid, doc, bad)
	assert.ErrorIs(t, err, ErrValidation)

	tiny := textWatermark()
	tiny.Scale = 0.00001
	_, err = e.watermarks.Apply(ctx, uid, doc, tiny)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "scale")

	both := textWatermark()
	both.Image = testutil.SamplePNG()
	_, err = e.watermarks.Apply(ctx, uid, doc, both)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.watermarks.Apply(ctx, uid, "", textWatermark())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.watermarks.Apply(ctx, uid, "missing", textWatermark())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.watermarks.Apply(ctx, e.createUser(t, "intruder@example.com"), doc, textWatermark())
	assert.ErrorIs(t, err, ErrNotFound)

	junk := watermark.Settings{Kind: "IMAGE", Image: []byte("not an image"), Opacity: 1, Position: "c", Scale: 0.5}
	_, err = e.watermarks.Apply(ctx, uid, doc, junk)
	assert.ErrorIs(t, err, ErrValidation)

	var count int64
	e.db.Model(&models.WatermarkedPDF{}).Count(&count)
	assert.Zero(t, count)
}

func TestApplyCorruptSourceIsProcessingError(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := e.createUser(t, "quin@example.com")
	doc := e.uploadPDF(t, uid, 1)

	var original models.Upload
	require.NoError(t, e.db.First(&original, "id = ?", doc).Error)
	require.NoError(t, e.store.Put(ctx, original.Path, bytesReader("%PDF-1.4 truncated"), 18, "application/pdf"))

	_, err := e.watermarks.Apply(ctx, uid, doc, textWatermark())
	assert.ErrorIs(t, err, ErrProcessing)
}

func TestPreviewIsOneShot(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	uid := e.createUser(t, "rae@example.com")
	doc := e.uploadPDF(t, uid, 3)

	s := textWatermark()
	s.Pages = "2-"
	id, err := e.watermarks.Preview(ctx, uid, doc, s)
	require.NoError(t, err)

	_, err = e.watermarks.TakePreview(ctx, e.createUser(t, "sam@example.com"), id)
	assert.ErrorIs(t, err, ErrNotFound, "previews are private to their creator")

	p, err := e.watermarks.TakePreview(ctx, uid, id)
	require.NoError(t, err)
	assert.Equal(t, watermark.PreviewContentType, p.ContentType)
	assert.Equal(t, bimg.JPEG, bimg.DetermineImageType(p.Data))

	_, err = e.watermarks.TakePreview(ctx, uid, id)
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	e.db.Model(&models.WatermarkedPDF{}).Count(&count)
	assert.Zero(t, count, "previews are never persisted")
}

func TestPreviewValidatesLikeApply(t *testing.T) {
	e := newEnv(t)
	uid := e.createUser(t, "tia@example.com")
	doc := e.uploadPDF(t, uid, 1)

	s := textWatermark()
	s.Position = "nowhere"
	_, err := e.watermarks.Preview(context.Background(), uid, doc, s)
	assert.ErrorIs(t, err, ErrValidation)

	s = textWatermark()
	s.Pages = "4"
	_, err = e.watermarks.Preview(context.Background(), uid, doc, s)
	assert.ErrorIs(t, err, ErrValidation)
}
