package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petermazzocco/go-pdf-watermark/internal/validator"
	"github.com/petermazzocco/go-pdf-watermark/models"
)

type FeedbackService struct {
	db       *gorm.DB
	validate *validator.Validator
	log      *zap.Logger
}

func NewFeedbackService(db *gorm.DB, v *validator.Validator, log *zap.Logger) *FeedbackService {
	return &FeedbackService{db: db, validate: v, log: log}
}

type FeedbackInput struct {
	UserID  string `json:"user_id"`
	Content string `json:"content" validate:"required,max=5000"`
}

type FeedbackResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Submit records feedback from callerID. A failed insert is reported in the result, not as an error.
func (s *FeedbackService) Submit(ctx context.Context, callerID string, in FeedbackInput) (*FeedbackResult, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}
	if in.UserID != "" && in.UserID != callerID {
		return nil, fieldError("user_id", "must match the authenticated user")
	}

	fb := models.Feedback{UserID: callerID, Content: in.Content}
	if err := s.db.WithContext(ctx).Create(&fb).Error; err != nil {
		s.log.Error("failed to store feedback", zap.String("user_id", callerID), zap.Error(err))
		return &FeedbackResult{Success: false, Message: "Failed to submit feedback."}, nil
	}
	return &FeedbackResult{Success: true, Message: "Feedback submitted successfully."}, nil
}
