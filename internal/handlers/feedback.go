package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/petermazzocco/go-pdf-watermark/internal/services"
)

func SubmitFeedbackHandler(w http.ResponseWriter, r *http.Request, svc *services.FeedbackService, log *zap.Logger) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req services.FeedbackInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log, err)
		return
	}
	res, err := svc.Submit(r.Context(), id, req)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	status := http.StatusCreated
	if !res.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}
