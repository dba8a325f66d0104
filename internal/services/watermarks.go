package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/petermazzocco/go-pdf-watermark/internal/storage"
	"github.com/petermazzocco/go-pdf-watermark/internal/watermark"
	"github.com/petermazzocco/go-pdf-watermark/models"
)

type WatermarkService struct {
	db         *gorm.DB
	store      storage.Store
	engine     *watermark.Engine
	renderer   *watermark.Renderer
	previews   watermark.PreviewStore
	previewTTL time.Duration
	log        *zap.Logger
}

func NewWatermarkService(
	db *gorm.DB,
	store storage.Store,
	engine *watermark.Engine,
	renderer *watermark.Renderer,
	previews watermark.PreviewStore,
	previewTTL time.Duration,
	log *zap.Logger,
) *WatermarkService {
	return &WatermarkService{
		db:         db,
		store:      store,
		engine:     engine,
		renderer:   renderer,
		previews:   previews,
		previewTTL: previewTTL,
		log:        log,
	}
}

type ApplyResult struct {
	Success       bool   `json:"success"`
	DocumentID    string `json:"document_id"`
	WatermarkedID string `json:"watermarked_id"`
	Message       string `json:"message"`
	DownloadURL   string `json:"download_url"`
}

// Apply stamps settings onto one of userID's documents and stores the result as a new artifact.
// The original document is never modified.
func (s *WatermarkService) Apply(ctx context.Context, userID, documentID string, settings watermark.Settings) (*ApplyResult, error) {
	doc, source, err := s.prepare(ctx, userID, documentID, &settings)
	if err != nil {
		return nil, err
	}

	out, err := s.engine.Apply(ctx, source, settings)
	if err != nil {
		s.log.Warn("watermark failed", zap.String("document_id", doc.ID), zap.Error(err))
		return nil, watermarkError(err)
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}
	artifact := models.WatermarkedPDF{
		ID:               uuid.NewString(),
		OriginalUploadID: doc.ID,
		UserID:           userID,
		FileSize:         int64(len(out)),
		Kind:             models.WatermarkKind(settings.Kind),
		Settings:         datatypes.JSON(raw),
	}
	artifact.Path = storage.WatermarkedKey(userID, doc.ID, artifact.ID)

	if err := s.store.Put(ctx, artifact.Path, bytes.NewReader(out), artifact.FileSize, pdfContentType); err != nil {
		return nil, fmt.Errorf("store watermarked document: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&artifact).Error; err != nil {
		cleanup, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if delErr := s.store.Delete(cleanup, artifact.Path); delErr != nil {
			s.log.Warn("failed to remove orphaned output", zap.String("key", artifact.Path), zap.Error(delErr))
		}
		return nil, fmt.Errorf("create watermarked record: %w", err)
	}

	link, err := s.store.Link(ctx, artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("link watermarked document: %w", err)
	}
	s.log.Info("watermark applied",
		zap.String("user_id", userID),
		zap.String("document_id", doc.ID),
		zap.String("watermarked_id", artifact.ID),
		zap.String("type", string(settings.Kind)),
	)
	return &ApplyResult{
		Success:       true,
		DocumentID:    doc.ID,
		WatermarkedID: artifact.ID,
		Message:       "Watermark applied successfully.",
		DownloadURL:   link,
	}, nil
}

// Preview renders the first selected page with the watermark and keeps the image
// until it is fetched once or expires. Nothing is persisted.
func (s *WatermarkService) Preview(ctx context.Context, userID, documentID string, settings watermark.Settings) (string, error) {
	_, source, err := s.prepare(ctx, userID, documentID, &settings)
	if err != nil {
		return "", err
	}

	img, err := s.renderer.Render(ctx, source, settings)
	if err != nil {
		s.log.Warn("preview failed", zap.String("document_id", documentID), zap.Error(err))
		return "", watermarkError(err)
	}

	id := uuid.NewString()
	p := watermark.Preview{ContentType: watermark.PreviewContentType, Data: img}
	if err := s.previews.Put(ctx, previewKey(userID, id), p, s.previewTTL); err != nil {
		return "", fmt.Errorf("store preview: %w", err)
	}
	return id, nil
}

// TakePreview returns a preview created by userID and discards it.
func (s *WatermarkService) TakePreview(ctx context.Context, userID, previewID string) (watermark.Preview, error) {
	p, err := s.previews.Take(ctx, previewKey(userID, previewID))
	if errors.Is(err, watermark.ErrPreviewNotFound) {
		return watermark.Preview{}, fmt.Errorf("%w: preview", ErrNotFound)
	}
	return p, err
}

func (s *WatermarkService) prepare(ctx context.Context, userID, documentID string, settings *watermark.Settings) (*models.Upload, []byte, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, nil, fieldError("document_id", "this field is required")
	}
	if err := settings.Normalize(); err != nil {
		return nil, nil, watermarkError(err)
	}
	doc, err := ownedUpload(s.db.WithContext(ctx), userID, documentID)
	if err != nil {
		return nil, nil, err
	}
	source, err := storage.ReadAll(ctx, s.store, doc.Path)
	if errors.Is(err, storage.ErrObjectNotFound) {
		s.log.Error("document object missing", zap.String("document_id", doc.ID), zap.String("key", doc.Path))
		return nil, nil, fmt.Errorf("%w: document content", ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load document: %w", err)
	}
	return doc, source, nil
}

func previewKey(userID, previewID string) string {
	return userID + ":" + previewID
}
