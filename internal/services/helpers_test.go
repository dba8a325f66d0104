package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/markbates/goth"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/petermazzocco/go-pdf-watermark/internal/auth"
	"github.com/petermazzocco/go-pdf-watermark/internal/storage"
	"github.com/petermazzocco/go-pdf-watermark/internal/testutil"
	"github.com/petermazzocco/go-pdf-watermark/internal/validator"
	"github.com/petermazzocco/go-pdf-watermark/internal/watermark"
	"github.com/petermazzocco/go-pdf-watermark/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection so every query sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type fakeVerifier map[string]goth.User

func (f fakeVerifier) VerifyToken(_ context.Context, _ string, token string) (goth.User, error) {
	u, ok := f[token]
	if !ok {
		return goth.User{}, errors.New("unknown token")
	}
	return u, nil
}

type env struct {
	db         *gorm.DB
	store      *storage.LocalStore
	sessions   *auth.Sessions
	users      *UserService
	documents  *DocumentService
	watermarks *WatermarkService
	feedback   *FeedbackService
	resources  *ResourceService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), "https://files.example.com")
	require.NoError(t, err)
	sessions, err := auth.NewSessions("test-secret", time.Hour, auth.NewMemoryRevoker())
	require.NoError(t, err)

	log := zap.NewNop()
	v := validator.New()
	engine := watermark.NewEngine()
	verifier := fakeVerifier{
		"good-token": {Email: "Oauth.User@Example.com", Name: "OAuth User", Provider: "google"},
		"bare-token": {Email: "bare@example.com"},
	}
	return &env{
		db:         db,
		store:      store,
		sessions:   sessions,
		users:      NewUserService(db, sessions, verifier, v, log),
		documents:  NewDocumentService(db, store, engine, log),
		watermarks: NewWatermarkService(db, store, engine, watermark.NewRenderer(engine, 36, 200), watermark.NewMemoryPreviewStore(), time.Minute, log),
		feedback:   NewFeedbackService(db, v, log),
		resources:  NewResourceService(db, log),
	}
}

func (e *env) createUser(t *testing.T, email string) string {
	t.Helper()
	res, err := e.users.Register(context.Background(), RegisterInput{Email: email, Password: "password123"})
	require.NoError(t, err)
	return res.UserID
}

func (e *env) uploadPDF(t *testing.T, userID string, pages int) string {
	t.Helper()
	res, err := e.documents.Upload(context.Background(), userID, UploadInput{
		FileName:    "contract.pdf",
		ContentType: "application/pdf",
		Data:        testutil.SamplePDF(pages),
	})
	require.NoError(t, err)
	return res.DocumentID
}

func textWatermark() watermark.Settings {
	return watermark.Settings{Kind: "TEXT", Text: "DRAFT", Opacity: 0.5, Position: "center", Scale: 0.5, Rotation: 30}
}

func bytesReader(s string) *strings.Reader { return strings.NewReader(s) }
