package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

const presignExpiry = time.Hour

// Store is the object storage used for uploaded and watermarked PDFs.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// Link returns a URL the client can fetch the object from.
	Link(ctx context.Context, key string) (string, error)
}

// ReadAll downloads the whole object.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// OriginalKey is where an uploaded source document lives.
func OriginalKey(userID, documentID, filename string) string {
	return fmt.Sprintf("documents/%s/originals/%s_%s", userID, documentID, SafeFilename(filename))
}

// WatermarkedKey is where a derived watermarked document lives.
func WatermarkedKey(userID, documentID, outputID string) string {
	return fmt.Sprintf("documents/%s/watermarked/%s_%s.pdf", userID, documentID, outputID)
}

// PublicLink formats key into a PUBLIC_URL template such as "https://cdn.example.com/%s".
func PublicLink(publicURL, key string) string {
	if strings.Contains(publicURL, "%s") {
		return CleanURL(fmt.Sprintf(publicURL, key))
	}
	return CleanURL(strings.TrimRight(publicURL, "/") + "/" + key)
}

func CleanURL(urlStr string) string {
	urlStr = strings.ReplaceAll(urlStr, " ", "%20")
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}
	return parsedURL.String()
}

func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(path.Base(name))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "document.pdf"
	}
	return name
}
