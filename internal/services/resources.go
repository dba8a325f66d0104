package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petermazzocco/go-pdf-watermark/models"
)

type ResourceService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewResourceService(db *gorm.DB, log *zap.Logger) *ResourceService {
	return &ResourceService{db: db, log: log}
}

type Guide struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type Tutorial struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Resources struct {
	Guides    []Guide    `json:"guides"`
	Tutorials []Tutorial `json:"tutorials"`
	FAQs      []FAQ      `json:"faqs"`
}

// Get sorts resources into categories by a case-insensitive match on the title.
// Categories are independent: one title may land in several, or in none.
func (s *ResourceService) Get(ctx context.Context) (*Resources, error) {
	var rows []models.LegalResource
	if err := s.db.WithContext(ctx).Order("title").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	out := &Resources{Guides: []Guide{}, Tutorials: []Tutorial{}, FAQs: []FAQ{}}
	for _, r := range rows {
		title := strings.ToLower(r.Title)
		if strings.Contains(title, "guide") {
			out.Guides = append(out.Guides, Guide{Title: r.Title, Description: r.Content, URL: r.Link})
		}
		if strings.Contains(title, "tutorial") {
			out.Tutorials = append(out.Tutorials, Tutorial{Title: r.Title, Description: r.Content, URL: r.Link})
		}
		if strings.Contains(title, "faq") {
			out.FAQs = append(out.FAQs, FAQ{Question: r.Title, Answer: r.Content})
		}
	}
	return out, nil
}

type seedResource struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
	Link    string `yaml:"link"`
}

// Seed upserts the YAML list read from r by title and returns the number of rows written.
func (s *ResourceService) Seed(ctx context.Context, r io.Reader) (int, error) {
	var items []seedResource
	if err := yaml.NewDecoder(r).Decode(&items); err != nil && err != io.EOF {
		return 0, fmt.Errorf("decode resources: %w", err)
	}

	rows := make([]models.LegalResource, 0, len(items))
	seen := make(map[string]int, len(items))
	for i, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			return 0, fmt.Errorf("resource %d: title is required", i)
		}
		if first, dup := seen[title]; dup {
			return 0, fmt.Errorf("resource %d: duplicate title %q (first at %d)", i, title, first)
		}
		seen[title] = i
		rows = append(rows, models.LegalResource{Title: title, Content: it.Content, Link: strings.TrimSpace(it.Link)})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "title"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "link", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("upsert resources: %w", err)
	}
	return len(rows), nil
}

func (s *ResourceService) SeedFromFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := s.Seed(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	s.log.Info("resources seeded", zap.String("file", path), zap.Int("count", n))
	return n, nil
}
