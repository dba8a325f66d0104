package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petermazzocco/go-pdf-watermark/internal/services"
)

func GetResourcesHandler(w http.ResponseWriter, r *http.Request, svc *services.ResourceService, log *zap.Logger) {
	res, err := svc.Get(r.Context())
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HealthHandler reports whether the database answers.
func HealthHandler(w http.ResponseWriter, r *http.Request, db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		log.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
