package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petermazzocco/go-pdf-watermark/internal/auth"
	"github.com/petermazzocco/go-pdf-watermark/internal/logger"
	"github.com/petermazzocco/go-pdf-watermark/internal/services"
)

// Deps is everything the router needs.
type Deps struct {
	DB         *gorm.DB
	Sessions   *auth.Sessions
	Store      sessions.Store
	Users      *services.UserService
	Documents  *services.DocumentService
	Watermarks *services.WatermarkService
	Feedback   *services.FeedbackService
	Resources  *services.ResourceService
	Log        *zap.Logger

	MaxUploadBytes     int64
	RateLimitPerMinute int
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	limit := d.RateLimitPerMinute
	if limit <= 0 {
		limit = 20
	}
	rateLimit := httprate.Limit(
		limit,
		1*time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		HealthHandler(w, r, d.DB, log)
	})
	r.Get("/resources/get", func(w http.ResponseWriter, r *http.Request) {
		GetResourcesHandler(w, r, d.Resources, log)
	})

	// OAuth browser flow
	r.Post("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		OAuthBeginHandler(w, r, d.Users, d.Store, log)
	})
	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		OAuthCallbackHandler(w, r, d.Users, d.Store, log)
	})
	r.Post("/logout/{provider}", func(w http.ResponseWriter, r *http.Request) {
		OAuthLogoutHandler(w, r, d.Store, log)
	})

	r.Group(func(r chi.Router) {
		r.Use(rateLimit)
		r.Post("/user/register", func(w http.ResponseWriter, r *http.Request) {
			RegisterHandler(w, r, d.Users, log)
		})
		r.Post("/user/login", func(w http.ResponseWriter, r *http.Request) {
			LoginHandler(w, r, d.Users, d.Store, log)
		})
		r.Post("/user/logout", func(w http.ResponseWriter, r *http.Request) {
			LogoutHandler(w, r, d.Users, d.Store, log)
		})
	})

	// Available routes for authenticated users
	r.Group(func(r chi.Router) {
		r.Use(auth.UserMiddleware(d.Sessions, d.Store))
		r.Use(rateLimit)

		r.Get("/user/profile", func(w http.ResponseWriter, r *http.Request) {
			GetProfileHandler(w, r, d.Users, log)
		})
		r.Put("/user/profile", func(w http.ResponseWriter, r *http.Request) {
			UpdateProfileHandler(w, r, d.Users, log)
		})

		r.Post("/document/upload", func(w http.ResponseWriter, r *http.Request) {
			UploadDocumentHandler(w, r, d.Documents, d.MaxUploadBytes, log)
		})
		r.Get("/document/list", func(w http.ResponseWriter, r *http.Request) {
			ListDocumentsHandler(w, r, d.Documents, log)
		})
		r.Delete("/document/{id}/delete", func(w http.ResponseWriter, r *http.Request) {
			DeleteDocumentHandler(w, r, d.Documents, log)
		})
		r.Get("/document/{id}/watermarks", func(w http.ResponseWriter, r *http.Request) {
			ListWatermarksHandler(w, r, d.Documents, log)
		})

		preview := func(w http.ResponseWriter, r *http.Request) {
			PreviewWatermarkHandler(w, r, d.Watermarks, d.MaxUploadBytes, log)
		}
		r.Get("/watermark/preview", preview)
		r.Post("/watermark/preview", preview)
		r.Get("/watermark/preview/{previewID}", func(w http.ResponseWriter, r *http.Request) {
			GetPreviewHandler(w, r, d.Watermarks, log)
		})
		r.Post("/watermark/apply", func(w http.ResponseWriter, r *http.Request) {
			ApplyWatermarkHandler(w, r, d.Watermarks, d.MaxUploadBytes, log)
		})

		r.Post("/feedback/submit", func(w http.ResponseWriter, r *http.Request) {
			SubmitFeedbackHandler(w, r, d.Feedback, log)
		})
	})

	return r
}
