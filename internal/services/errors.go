// Package services holds the application logic behind the HTTP handlers.
package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/petermazzocco/go-pdf-watermark/internal/validator"
	"github.com/petermazzocco/go-pdf-watermark/internal/watermark"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("Incorrect email or password")
	ErrConflict           = errors.New("already exists")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrProcessing         = errors.New("document processing failed")
)

// ValidationError carries a message per offending request field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func fieldError(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// validate runs the struct tags and converts failures to *ValidationError.
func validate(v *validator.Validator, obj any) error {
	err := v.Validate(obj)
	if err == nil {
		return nil
	}
	var vErr *validator.ValidationError
	if errors.As(err, &vErr) {
		return &ValidationError{Fields: vErr.Fields}
	}
	return err
}

// watermarkError maps watermark package failures onto service errors.
func watermarkError(err error) error {
	var sErr *watermark.SettingsError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &sErr):
		return fieldError(sErr.Field, sErr.Message)
	case errors.Is(err, watermark.ErrUnsupportedImage):
		return fieldError("image_file", err.Error())
	case errors.Is(err, watermark.ErrRenderFailed):
		return fmt.Errorf("%w: %v", ErrProcessing, err)
	default:
		return err
	}
}
