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

const pdfContentType = "application/pdf"

type DocumentService struct {
	db     *gorm.DB
	store  storage.Store
	engine *watermark.Engine
	log    *zap.Logger
}

func NewDocumentService(db *gorm.DB, store storage.Store, engine *watermark.Engine, log *zap.Logger) *DocumentService {
	return &DocumentService{db: db, store: store, engine: engine, log: log}
}

type UploadInput struct {
	FileName    string
	ContentType string
	Data        []byte
	// Metadata is an optional JSON object supplied by the client.
	Metadata []byte
}

type UploadResult struct {
	DocumentID string `json:"document_id"`
	Message    string `json:"message"`
	UploadLink string `json:"upload_link"`
}

// Upload stores a PDF for userID and records it.
func (s *DocumentService) Upload(ctx context.Context, userID string, in UploadInput) (*UploadResult, error) {
	if len(in.Data) == 0 {
		return nil, fieldError("file", "this field is required")
	}
	meta := bytes.TrimSpace(in.Metadata)
	if len(meta) > 0 && (!json.Valid(meta) || meta[0] != '{') {
		return nil, fieldError("metadata", "must be a JSON object")
	}
	pages, err := s.engine.PageCount(in.Data)
	if err != nil {
		return nil, fieldError("file", "must be a readable PDF document")
	}

	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = pdfContentType
	}

	doc := models.Upload{
		ID:        uuid.NewString(),
		UserID:    userID,
		FileName:  storage.SafeFilename(in.FileName),
		FileType:  contentType,
		FileSize:  int64(len(in.Data)),
		PageCount: pages,
	}
	if len(meta) > 0 {
		doc.Metadata = datatypes.JSON(meta)
	}
	doc.Path = storage.OriginalKey(userID, doc.ID, doc.FileName)

	if err := s.store.Put(ctx, doc.Path, bytes.NewReader(in.Data), doc.FileSize, contentType); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		s.removeObject(doc.Path)
		return nil, fmt.Errorf("create upload: %w", err)
	}

	link, err := s.store.Link(ctx, doc.Path)
	if err != nil {
		return nil, fmt.Errorf("link document: %w", err)
	}
	s.log.Info("document uploaded",
		zap.String("user_id", userID),
		zap.String("document_id", doc.ID),
		zap.Int("pages", pages),
		zap.Int64("size", doc.FileSize),
	)
	return &UploadResult{DocumentID: doc.ID, Message: "Document uploaded successfully.", UploadLink: link}, nil
}

type DocumentInfo struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	FileType  string    `json:"fileType"`
	FileSize  int64     `json:"fileSize"`
	CreatedAt time.Time `json:"createdAt"`
	Path      string    `json:"path"`
	PageCount int       `json:"pageCount"`
}

type DocumentList struct {
	Documents []DocumentInfo `json:"documents"`
}

// List returns userID's documents, newest first.
func (s *DocumentService) List(ctx context.Context, userID string) (*DocumentList, error) {
	var uploads []models.Upload
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&uploads).Error; err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}

	out := &DocumentList{Documents: make([]DocumentInfo, 0, len(uploads))}
	for _, u := range uploads {
		out.Documents = append(out.Documents, DocumentInfo{
			ID:        u.ID,
			FileName:  u.FileName,
			FileType:  u.FileType,
			FileSize:  u.FileSize,
			CreatedAt: u.CreatedAt,
			Path:      u.Path,
			PageCount: u.PageCount,
		})
	}
	return out, nil
}

type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

const (
	MsgDocumentNotFound = "Document not found."
	MsgDocumentDeleted  = "Document and related data successfully deleted."
)

// Delete removes the document and its watermarked outputs in one transaction.
// Stored objects are removed afterwards on a best-effort basis.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID string) (*DeleteResult, error) {
	var keys []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := ownedUpload(tx, userID, documentID)
		if err != nil {
			return err
		}

		var outputs []models.WatermarkedPDF
		if err := tx.Where("original_upload_id = ?", doc.ID).Find(&outputs).Error; err != nil {
			return fmt.Errorf("find watermarked outputs: %w", err)
		}
		if err := tx.Where("original_upload_id = ?", doc.ID).Delete(&models.WatermarkedPDF{}).Error; err != nil {
			return fmt.Errorf("delete watermarked outputs: %w", err)
		}
		if err := tx.Delete(doc).Error; err != nil {
			return fmt.Errorf("delete upload: %w", err)
		}

		keys = append(keys, doc.Path)
		for _, o := range outputs {
			keys = append(keys, o.Path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, k := range keys {
		s.removeObject(k)
	}
	s.log.Info("document deleted", zap.String("user_id", userID), zap.String("document_id", documentID), zap.Int("objects", len(keys)))
	return &DeleteResult{Success: true, Message: MsgDocumentDeleted}, nil
}

type WatermarkInfo struct {
	ID          string    `json:"id"`
	Kind        string    `json:"type"`
	FileSize    int64     `json:"fileSize"`
	CreatedAt   time.Time `json:"createdAt"`
	DownloadURL string    `json:"download_url"`
}

type WatermarkList struct {
	DocumentID string          `json:"document_id"`
	Watermarks []WatermarkInfo `json:"watermarks"`
}

// ListWatermarks returns the outputs derived from one of userID's documents.
func (s *DocumentService) ListWatermarks(ctx context.Context, userID, documentID string) (*WatermarkList, error) {
	doc, err := ownedUpload(s.db.WithContext(ctx), userID, documentID)
	if err != nil {
		return nil, err
	}
	var outputs []models.WatermarkedPDF
	if err := s.db.WithContext(ctx).
		Where("original_upload_id = ?", doc.ID).
		Order("created_at DESC").
		Find(&outputs).Error; err != nil {
		return nil, fmt.Errorf("list watermarked outputs: %w", err)
	}

	out := &WatermarkList{DocumentID: doc.ID, Watermarks: make([]WatermarkInfo, 0, len(outputs))}
	for _, o := range outputs {
		link, err := s.store.Link(ctx, o.Path)
		if err != nil {
			return nil, fmt.Errorf("link %s: %w", o.ID, err)
		}
		out.Watermarks = append(out.Watermarks, WatermarkInfo{
			ID:          o.ID,
			Kind:        string(o.Kind),
			FileSize:    o.FileSize,
			CreatedAt:   o.CreatedAt,
			DownloadURL: link,
		})
	}
	return out, nil
}

func (s *DocumentService) removeObject(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.log.Warn("failed to remove stored object", zap.String("key", key), zap.Error(err))
	}
}

// ownedUpload loads documentID if it belongs to userID. Anything else is ErrNotFound.
func ownedUpload(db *gorm.DB, userID, documentID string) (*models.Upload, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document", ErrNotFound)
	}
	var doc models.Upload
	err := db.Where("id = ? AND user_id = ?", documentID, userID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: document", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find upload: %w", err)
	}
	return &doc, nil
}
