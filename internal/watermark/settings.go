// Package watermark validates watermark settings and renders them onto PDF documents.
//
// Text and image watermarks are stamped on top of page content with pdfcpu.
// Image payloads are normalized with bimg and previews are rasterized with go-fitz.
package watermark

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInvalidSettings  = errors.New("invalid watermark settings")
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrRenderFailed     = errors.New("watermark rendering failed")
)

// SettingsError names the offending field.
type SettingsError struct {
	Field   string
	Message string
}

func (e *SettingsError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *SettingsError) Unwrap() error { return ErrInvalidSettings }

func invalid(field, format string, args ...any) error {
	return &SettingsError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type Kind string

const (
	KindText  Kind = "TEXT"
	KindImage Kind = "IMAGE"
)

type Position string

const (
	TopLeft      Position = "top-left"
	TopCenter    Position = "top-center"
	TopRight     Position = "top-right"
	CenterLeft   Position = "center-left"
	Center       Position = "center"
	CenterRight  Position = "center-right"
	BottomLeft   Position = "bottom-left"
	BottomCenter Position = "bottom-center"
	BottomRight  Position = "bottom-right"
)

// pdfcpu anchor for each position.
var anchors = map[Position]string{
	TopLeft:      "tl",
	TopCenter:    "tc",
	TopRight:     "tr",
	CenterLeft:   "l",
	Center:       "c",
	CenterRight:  "r",
	BottomLeft:   "bl",
	BottomCenter: "bc",
	BottomRight:  "br",
}

// ParsePosition accepts the canonical names, underscore/space variants and pdfcpu anchors.
func ParsePosition(s string) (Position, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	switch norm {
	case "":
		return "", false
	case "middle", "centre":
		return Center, true
	case "top":
		return TopCenter, true
	case "bottom":
		return BottomCenter, true
	case "left":
		return CenterLeft, true
	case "right":
		return CenterRight, true
	}
	if _, ok := anchors[Position(norm)]; ok {
		return Position(norm), true
	}
	for p, a := range anchors {
		if a == norm {
			return p, true
		}
	}
	return "", false
}

// Positions lists the accepted canonical positions in a stable order.
func Positions() []string {
	out := make([]string, 0, len(anchors))
	for p := range anchors {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

const DefaultTextColor = "#808080"

// MinScale is the smallest page-relative scale pdfcpu renders.
const MinScale = 0.01

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Settings describes one watermark. Exactly one of Text and Image is set, matching Kind.
type Settings struct {
	Kind     Kind     `json:"type"`
	Text     string   `json:"text_content,omitempty"`
	Image    []byte   `json:"-"`
	Opacity  float64  `json:"opacity"`
	Position Position `json:"position"`
	Scale    float64  `json:"scale"`
	Rotation float64  `json:"rotation"`
	Pages    string   `json:"pages,omitempty"`
	Color    string   `json:"color,omitempty"`
}

// Normalize validates s in place and canonicalizes kind, position, rotation, pages and color.
func (s *Settings) Normalize() error {
	s.Kind = Kind(strings.ToUpper(strings.TrimSpace(string(s.Kind))))
	s.Text = strings.TrimSpace(s.Text)

	switch s.Kind {
	case KindText:
		if s.Text == "" {
			return invalid("text_content", "is required for TEXT watermarks")
		}
		if len(s.Image) > 0 {
			return invalid("image_file", "must not be set for TEXT watermarks")
		}
	case KindImage:
		if len(s.Image) == 0 {
			return invalid("image_file", "is required for IMAGE watermarks")
		}
		if s.Text != "" {
			return invalid("text_content", "must not be set for IMAGE watermarks")
		}
	case "":
		return invalid("watermark_type", "is required")
	default:
		return invalid("watermark_type", "must be TEXT or IMAGE")
	}

	if math.IsNaN(s.Opacity) || s.Opacity < 0 || s.Opacity > 1 {
		return invalid("opacity", "must be between 0 and 1")
	}
	if math.IsNaN(s.Scale) || s.Scale < MinScale || s.Scale > 1 {
		return invalid("scale", "must be between %.2f and 1 (relative to the page)", MinScale)
	}
	if math.IsNaN(s.Rotation) || math.IsInf(s.Rotation, 0) {
		return invalid("rotation", "must be a finite number of degrees")
	}
	s.Rotation = NormalizeRotation(s.Rotation)

	pos, ok := ParsePosition(string(s.Position))
	if !ok {
		return invalid("position", "must be one of: %s", strings.Join(Positions(), ", "))
	}
	s.Position = pos

	if _, err := ParsePages(s.Pages); err != nil {
		return err
	}
	s.Pages = strings.ReplaceAll(strings.TrimSpace(s.Pages), " ", "")

	if s.Kind == KindText {
		if s.Color == "" {
			s.Color = DefaultTextColor
		}
		if !hexColor.MatchString(s.Color) {
			return invalid("color", "must be a hex color like #808080")
		}
	} else {
		s.Color = ""
	}
	return nil
}

// NormalizeRotation maps degrees into (-180, 180].
func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r > 180 {
		r -= 360
	} else if r <= -180 {
		r += 360
	}
	return r
}

// PageRange is an inclusive range of 1-based page numbers. To == 0 means "through the last page".
type PageRange struct {
	From int
	To   int
}

// ParsePages parses "1-3,5,8-". An empty selection means every page.
func ParsePages(sel string) ([]PageRange, error) {
	sel = strings.ReplaceAll(strings.TrimSpace(sel), " ", "")
	if sel == "" {
		return nil, nil
	}
	var out []PageRange
	for _, part := range strings.Split(sel, ",") {
		if part == "" {
			return nil, invalid("pages", "contains an empty item")
		}
		from, to, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(from)
		if err != nil || start < 1 {
			return nil, invalid("pages", "%q is not a valid page number", part)
		}
		r := PageRange{From: start, To: start}
		if isRange {
			if to == "" {
				r.To = 0
			} else {
				end, err := strconv.Atoi(to)
				if err != nil || end < start {
					return nil, invalid("pages", "%q is not a valid page range", part)
				}
				r.To = end
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// FirstPage returns the lowest selected page, 1 when nothing is selected.
func FirstPage(ranges []PageRange) int {
	first := 0
	for _, r := range ranges {
		if first == 0 || r.From < first {
			first = r.From
		}
	}
	if first == 0 {
		return 1
	}
	return first
}

// selection renders ranges in pdfcpu page selection syntax.
func selection(ranges []PageRange) []string {
	if len(ranges) == 0 {
		return nil
	}
	out := make([]string, 0, len(ranges))
	for _, r := range ranges {
		switch {
		case r.To == 0:
			out = append(out, fmt.Sprintf("%d-", r.From))
		case r.To == r.From:
			out = append(out, strconv.Itoa(r.From))
		default:
			out = append(out, fmt.Sprintf("%d-%d", r.From, r.To))
		}
	}
	return out
}
