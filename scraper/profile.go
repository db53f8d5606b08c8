package scraper

import (
	"time"

	"github.com/blawby/lawfeed/post"
)

// Profile describes how to scrape one vendor blog. Profiles are immutable
// configuration: fallback selector lists are tried strictly in order and the
// first selector yielding non-empty text wins, so list order is part of the
// contract and must not be reordered without re-checking extracted data.
type Profile struct {
	Source  post.Source `json:"source"`
	Name    string      `json:"name"`
	BaseURL string      `json:"base_url"`

	// FeedURL, when set, switches link discovery to the vendor's RSS/Atom
	// feed instead of scraping the listing page.
	FeedURL string `json:"feed_url,omitempty"`

	// Render marks sources that execute page scripts before content is
	// present. WaitSelector is waited on after navigation in rendered mode.
	Render       bool   `json:"render"`
	WaitSelector string `json:"wait_selector,omitempty"`

	// LinkSelector finds candidate article links on a listing page.
	// PaginationSelector locates the next-page link.
	LinkSelector       string `json:"link_selector"`
	PaginationSelector string `json:"pagination_selector"`

	// Ordered fallback selector chains, first non-empty match wins.
	TitleSelectors   []string `json:"title_selectors"`
	DateSelectors    []string `json:"date_selectors"`
	ContentSelectors []string `json:"content_selectors"`
	SummarySelectors []string `json:"summary_selectors"`
	ImageSelectors   []string `json:"image_selectors"`

	// DateFormats are tried in order against extracted date text.
	DateFormats []string `json:"date_formats"`

	// PageDelay overrides the orchestrator's minimum inter-request pause for
	// this source. Zero uses the configured default.
	PageDelay time.Duration `json:"page_delay,omitempty"`
}

// defaultDateFormats covers the formats observed across the three blogs.
var defaultDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
}

// Profiles returns the built-in profile for every source, in scrape order.
func Profiles() []Profile {
	return []Profile{
		{
			Source:             post.SourceClio,
			Name:               "Clio Blog",
			BaseURL:            "https://www.clio.com/blog/",
			LinkSelector:       `.o-resource a[href*="/blog/"], a[href*="/blog/"]`,
			PaginationSelector: `.pagination__next, .o-pagination a[href*="/page/"]`,
			TitleSelectors:     []string{"h1", ".o-resource__title"},
			DateSelectors:      []string{`meta[property="article:published_time"]`, "time[datetime]"},
			ContentSelectors:   []string{"article.post p", ".post-content p", "article p"},
			SummarySelectors:   []string{`meta[name="description"]`, ".o-resource__excerpt"},
			ImageSelectors:     []string{`meta[property="og:image"]`, "article.post img", ".post-content img"},
			DateFormats:        defaultDateFormats,
		},
		{
			Source:             post.SourceMyCase,
			Name:               "MyCase Blog",
			BaseURL:            "https://www.mycase.com/blog/",
			FeedURL:            "https://www.mycase.com/blog/feed/",
			LinkSelector:       "article.post h2.entry-title a, article.post a[rel=bookmark]",
			PaginationSelector: ".next.page-numbers",
			TitleSelectors:     []string{"h1.entry-title", "h2.entry-title a", "h1"},
			DateSelectors:      []string{"time.entry-date", `meta[property="article:published_time"]`},
			ContentSelectors:   []string{".entry-content p", "article p"},
			SummarySelectors:   []string{`meta[name="description"]`, ".entry-summary"},
			ImageSelectors:     []string{`meta[property="og:image"]`, ".entry-content img"},
			DateFormats:        defaultDateFormats,
		},
		{
			Source:             post.SourceLawPay,
			Name:               "LawPay Blog",
			BaseURL:            "https://www.lawpay.com/about/blog/",
			Render:             true,
			WaitSelector:       ".blog-post__title, article",
			LinkSelector:       "article.blog-post a[href], .blog-post a[href]",
			PaginationSelector: ".nav-links .next",
			TitleSelectors:     []string{".blog-post__title", "h1"},
			DateSelectors:      []string{".blog-post__date", `meta[property="article:published_time"]`},
			ContentSelectors:   []string{".blog-post__content p", "article p"},
			SummarySelectors:   []string{`meta[name="description"]`},
			ImageSelectors:     []string{`meta[property="og:image"]`, ".blog-post__content img"},
			DateFormats:        defaultDateFormats,
		},
	}
}

// ProfileFor returns the built-in profile for a source.
func ProfileFor(source post.Source) (Profile, bool) {
	for _, p := range Profiles() {
		if p.Source == source {
			return p, true
		}
	}
	return Profile{}, false
}
