package post

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
)

// Source identifies one of the vendor blogs being scraped.
type Source string

const (
	SourceClio   Source = "clio"
	SourceMyCase Source = "mycase"
	SourceLawPay Source = "lawpay"
)

// Sources returns every known source in scrape order.
func Sources() []Source {
	return []Source{SourceClio, SourceMyCase, SourceLawPay}
}

// Valid reports whether s names a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceClio, SourceMyCase, SourceLawPay:
		return true
	}
	return false
}

// ParseSource converts a string into a Source, accepting any casing.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	if !src.Valid() {
		return "", fmt.Errorf("unknown source %q", s)
	}
	return src, nil
}

// Post is a normalized article scraped from a vendor blog.
type Post struct {
	ID          string    `json:"id"`
	Source      Source    `json:"source"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IDFromURL derives the stable deduplication key for an article URL. The last
// path segment is lowercased and runs of non-alphanumeric characters collapse
// to a single hyphen, so a URL always maps to the same ID regardless of
// trailing slashes, query strings, or fragments.
func IDFromURL(rawURL string) string {
	trimmed := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		trimmed = u.Path
	}
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}

	segments := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '/' })
	last := ""
	if len(segments) > 0 {
		last = segments[len(segments)-1]
	}

	return Slug(last)
}

// Slug converts arbitrary text into a lowercase hyphenated identifier.
func Slug(text string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// summaryLength bounds generated summaries, matching the excerpt length the
// dashboard renders.
const summaryLength = 200

// SummaryFromContent builds a fallback summary by truncating content.
func SummaryFromContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) <= summaryLength {
		return content
	}
	truncated := content[:summaryLength]
	// Cut at the last word boundary so the excerpt never ends mid-word.
	if i := strings.LastIndex(truncated, " "); i > 0 {
		truncated = truncated[:i]
	}
	return truncated + "..."
}

// Normalize fills derived fields: the ID from the URL, the summary from
// content when absent, and the published time from now when the page carried
// no usable date.
func (p *Post) Normalize(now time.Time) {
	if p.ID == "" {
		p.ID = IDFromURL(p.URL)
	}
	if p.Summary == "" {
		p.Summary = SummaryFromContent(p.Content)
	}
	if p.PublishedAt.IsZero() {
		p.PublishedAt = now
	}
}
