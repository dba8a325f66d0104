package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petermazzocco/go-pdf-watermark/models"
)

func TestSubmitFeedback(t *testing.T) {
	e := newEnv(t)
	uid := e.createUser(t, "uma@example.com")

	res, err := e.feedback.Submit(context.Background(), uid, FeedbackInput{UserID: uid, Content: "  Love the previews  "})
	require.NoError(t, err)
	assert.Equal(t, &FeedbackResult{Success: true, Message: "Feedback submitted successfully."}, res)

	var fb models.Feedback
	require.NoError(t, e.db.First(&fb, "user_id = ?", uid).Error)
	assert.Equal(t, "Love the previews", fb.Content)
}

func TestSubmitFeedbackRejects(t *testing.T) {
	e := newEnv(t)
	uid := e.createUser(t, "vic@example.com")

	_, err := e.feedback.Submit(context.Background(), uid, FeedbackInput{Content: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.feedback.Submit(context.Background(), uid, FeedbackInput{UserID: "someone-else", Content: "hi"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmitFeedbackStoreFailure(t *testing.T) {
	e := newEnv(t)
	uid := e.createUser(t, "wes@example.com")
	require.NoError(t, e.db.Migrator().DropTable(&models.Feedback{}))

	res, err := e.feedback.Submit(context.Background(), uid, FeedbackInput{Content: "hello"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to submit feedback.", res.Message)
}
