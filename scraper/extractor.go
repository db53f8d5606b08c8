package scraper

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/blawby/lawfeed/post"
)

// minFragmentLength filters out trivially short content fragments (copyright
// lines, one-word captions). Fragments must be strictly longer to be kept.
const minFragmentLength = 10

// Extractor turns fetched HTML into normalized Posts by applying a profile's
// fallback selector chains. One extractor serves every source; per-site
// behavior lives entirely in the Profile data.
type Extractor struct {
	minFragment int
}

// NewExtractor creates an extractor with the default fragment filter.
func NewExtractor() *Extractor {
	return &Extractor{minFragment: minFragmentLength}
}

// Extract applies the profile's fallback chains to the document. It returns
// *ExtractionFailure when both title and content come up empty after
// exhausting every selector; that is an expected outcome for drifted
// selectors and must not abort the surrounding crawl.
func (e *Extractor) Extract(doc *goquery.Document, profile Profile, pageURL string, now time.Time) (*post.Post, error) {
	title := firstText(doc, profile.TitleSelectors)
	content := e.extractContent(doc, profile.ContentSelectors)

	if title == "" && content == "" {
		return nil, &ExtractionFailure{URL: pageURL}
	}

	p := &post.Post{
		Source:      profile.Source,
		Title:       title,
		Content:     content,
		Summary:     firstText(doc, profile.SummarySelectors),
		URL:         pageURL,
		ImageURL:    firstImage(doc, profile.ImageSelectors, pageURL),
		PublishedAt: firstDate(doc, profile.DateSelectors, profile.DateFormats),
	}
	p.Normalize(now)

	return p, nil
}

// extractContent walks the content selector chain. For the first selector
// with matches, every matched element's text longer than the fragment
// minimum is kept, joined by blank lines.
func (e *Extractor) extractContent(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		var fragments []string
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := normalizeText(s.Text())
			if len(text) > e.minFragment {
				fragments = append(fragments, text)
			}
		})
		if len(fragments) > 0 {
			return strings.Join(fragments, "\n\n")
		}
	}
	return ""
}

// firstText returns the first non-empty text produced by the selector chain.
// Meta tags yield their content attribute instead of element text.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := elementText(sel)
		if text != "" {
			return text
		}
	}
	return ""
}

// firstDate walks the date selector chain and tries each configured format
// against the extracted value. The zero time means no date was found; the
// caller falls back to scrape time.
func firstDate(doc *goquery.Document, selectors, formats []string) time.Time {
	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}

		value := ""
		if v, ok := sel.Attr("datetime"); ok {
			value = v
		} else if v, ok := sel.Attr("content"); ok {
			value = v
		} else {
			value = normalizeText(sel.Text())
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		for _, format := range formats {
			if t, err := time.Parse(format, value); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// firstImage resolves the first image URL produced by the selector chain
// against the page URL.
func firstImage(doc *goquery.Document, selectors []string, pageURL string) string {
	base, _ := url.Parse(pageURL)

	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}

		value := ""
		if v, ok := sel.Attr("content"); ok {
			value = v
		} else if v, ok := sel.Attr("src"); ok {
			value = v
		} else if v, ok := sel.Attr("href"); ok {
			value = v
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		if base != nil {
			if ref, err := url.Parse(value); err == nil {
				return base.ResolveReference(ref).String()
			}
		}
		return value
	}
	return ""
}

// elementText extracts text from a selection, preferring the content
// attribute for meta tags.
func elementText(sel *goquery.Selection) string {
	if goquery.NodeName(sel) == "meta" {
		content, _ := sel.Attr("content")
		return strings.TrimSpace(content)
	}
	return normalizeText(sel.Text())
}

// normalizeText collapses runs of whitespace into single spaces.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
