package handlers

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/petermazzocco/go-pdf-watermark/internal/services"
	"github.com/petermazzocco/go-pdf-watermark/internal/watermark"
)

const previewPath = "/watermark/preview/"

func ApplyWatermarkHandler(w http.ResponseWriter, r *http.Request, svc *services.WatermarkService, maxBytes int64, log *zap.Logger) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	documentID, settings, err := parseWatermarkRequest(w, r, maxBytes)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	res, err := svc.Apply(r.Context(), id, documentID, settings)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// PreviewWatermarkHandler accepts query parameters (GET) or a form (POST, needed for image uploads).
func PreviewWatermarkHandler(w http.ResponseWriter, r *http.Request, svc *services.WatermarkService, maxBytes int64, log *zap.Logger) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	documentID, settings, err := parseWatermarkRequest(w, r, maxBytes)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	previewID, err := svc.Preview(r.Context(), id, documentID, settings)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"preview_url": previewPath + previewID})
}

// GetPreviewHandler serves a preview image once.
func GetPreviewHandler(w http.ResponseWriter, r *http.Request, svc *services.WatermarkService, log *zap.Logger) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := svc.TakePreview(r.Context(), id, chi.URLParam(r, "previewID"))
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	w.Header().Set("Content-Type", p.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(p.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Data)
}

func parseWatermarkRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (string, watermark.Settings, error) {
	var s watermark.Settings
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", s, err
		}
		return "", s, badRequest("body", "could not parse form")
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	fields := map[string]string{}
	number := func(name string, required bool, def float64) float64 {
		raw := strings.TrimSpace(r.FormValue(name))
		if raw == "" {
			if required {
				fields[name] = "this field is required"
			}
			return def
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fields[name] = "must be a number"
		}
		return v
	}

	s.Kind = watermark.Kind(r.FormValue("watermark_type"))
	s.Text = r.FormValue("text_content")
	s.Opacity = number("opacity", true, 0)
	s.Scale = number("scale", true, 0)
	s.Rotation = number("rotation", false, 0)
	s.Position = watermark.Position(r.FormValue("position"))
	s.Pages = r.FormValue("pages")
	s.Color = strings.TrimSpace(r.FormValue("color"))

	img, err := imagePayload(r)
	if err != nil {
		fields["image_file"] = err.Error()
	}
	s.Image = img

	if len(fields) > 0 {
		return "", s, &services.ValidationError{Fields: fields}
	}
	return strings.TrimSpace(r.FormValue("document_id")), s, nil
}

// imagePayload reads the image_file multipart part, or a base64 form value of the same name.
func imagePayload(r *http.Request) ([]byte, error) {
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["image_file"]; len(files) > 0 {
			f, err := files[0].Open()
			if err != nil {
				return nil, errors.New("could not read upload")
			}
			defer f.Close()
			return io.ReadAll(f)
		}
	}
	raw := strings.TrimSpace(r.FormValue("image_file"))
	if raw == "" {
		return nil, nil
	}
	if _, data, ok := strings.Cut(raw, ";base64,"); ok {
		raw = data
	}
	img, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.New("must be a file upload or base64 data")
	}
	return img, nil
}
