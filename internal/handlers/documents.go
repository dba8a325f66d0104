package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/petermazzocco/go-pdf-watermark/internal/services"
)

// multipartMemory is how much of a multipart body is held in memory before spilling to disk.
const multipartMemory = 8 << 20

func UploadDocumentHandler(w http.ResponseWriter, r *http.Request, svc *services.DocumentService, maxBytes int64, log *zap.Logger) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, log, err)
			return
		}
		writeError(w, r, log, badRequest("file", "multipart form with a file is required"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, log, badRequest("file", "this field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, log, err)
		return
	}

	res, err := svc.Upload(r.Context(), id, services.UploadInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Metadata:    []byte(r.FormValue("metadata")),
	})
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func ListDocumentsHandler(w http.ResponseWriter, r *http.Request, svc *services.DocumentService, log *zap.Logger) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	res, err := svc.List(r.Context(), id)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteDocumentHandler answers a missing document with the same envelope as a successful delete.
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request, svc *services.DocumentService, log *zap.Logger) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	res, err := svc.Delete(r.Context(), id, chi.URLParam(r, "id"))
	if errors.Is(err, services.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, services.DeleteResult{Success: false, Message: services.MsgDocumentNotFound})
		return
	}
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func ListWatermarksHandler(w http.ResponseWriter, r *http.Request, svc *services.DocumentService, log *zap.Logger) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	res, err := svc.ListWatermarks(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
