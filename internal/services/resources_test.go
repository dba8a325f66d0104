package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petermazzocco/go-pdf-watermark/models"
)

func TestGetResourcesCategorizes(t *testing.T) {
	e := newEnv(t)
	for _, r := range []models.LegalResource{
		{Title: "Getting Started GUIDE", Content: "Upload then stamp", Link: "https://example.com/guide"},
		{Title: "Video Tutorial: previews", Content: "Watch", Link: "https://example.com/tut"},
		{Title: "Billing FAQ", Content: "It is free"},
		{Title: "Terms of Service", Content: "Legal text"},
	} {
		r := r
		require.NoError(t, e.db.Create(&r).Error)
	}

	res, err := e.resources.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Guide{{Title: "Getting Started GUIDE", Description: "Upload then stamp", URL: "https://example.com/guide"}}, res.Guides)
	assert.Equal(t, []Tutorial{{Title: "Video Tutorial: previews", Description: "Watch", URL: "https://example.com/tut"}}, res.Tutorials)
	assert.Equal(t, []FAQ{{Question: "Billing FAQ", Answer: "It is free"}}, res.FAQs)
}

func TestGetResourcesEmpty(t *testing.T) {
	e := newEnv(t)
	res, err := e.resources.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res.Guides)
	assert.NotNil(t, res.Tutorials)
	assert.NotNil(t, res.FAQs)
}

func TestSeedUpsertsByTitle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	n, err := e.resources.Seed(ctx, strings.NewReader(`
- title: Watermark Guide
  content: v1
- title: FAQ
  content: answers
`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	path := filepath.Join(t.TempDir(), "resources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- title: Watermark Guide\n  content: v2\n  link: https://example.com/g\n"), 0o600))
	n, err = e.resources.SeedFromFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var rows []models.LegalResource
	require.NoError(t, e.db.Order("title").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "FAQ", rows[0].Title)
	assert.Equal(t, "v2", rows[1].Content)
	assert.Equal(t, "https://example.com/g", rows[1].Link)

	_, err = e.resources.Seed(ctx, strings.NewReader("- content: no title\n"))
	assert.Error(t, err)
}

func TestSeedRejectsDuplicateTitles(t *testing.T) {
	e := newEnv(t)
	_, err := e.resources.Seed(context.Background(), strings.NewReader(`
- title: Watermark Guide
  content: one
- title: " Watermark Guide "
  content: two
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate title")

	var count int64
	e.db.Model(&models.LegalResource{}).Count(&count)
	assert.Zero(t, count)
}
