// Package feed renders stored posts as RSS 2.0, Atom, or JSON Feed
// documents.
package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/blawby/lawfeed/post"
)

// Format selects the serialization for a feed.
type Format string

const (
	FormatRSS  Format = "rss"
	FormatAtom Format = "atom"
	FormatJSON Format = "json"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatAtom:
		return "application/atom+xml"
	case FormatJSON:
		return "application/feed+json"
	default:
		return "application/rss+xml"
	}
}

// FromAccept maps an Accept header to a feed format, defaulting to RSS 2.0.
func FromAccept(accept string) Format {
	switch {
	case strings.Contains(accept, "application/atom+xml"):
		return FormatAtom
	case strings.Contains(accept, "application/json"),
		strings.Contains(accept, "application/feed+json"):
		return FormatJSON
	default:
		return FormatRSS
	}
}

// siteLink is the canonical home of the aggregated feed.
const siteLink = "https://blawby.com/"

// Render serializes posts into the requested feed format, newest first per
// the caller's ordering.
func Render(posts []post.Post, format Format, now time.Time) (string, error) {
	f := &feeds.Feed{
		Title:       "Legal Tech Blog Feed",
		Link:        &feeds.Link{Href: siteLink},
		Description: "Latest articles from leading legal tech platforms",
		Author:      &feeds.Author{Name: "Blawby", Email: "hello@blawby.com"},
		Created:     now,
		Copyright:   "All rights reserved, Blawby",
	}

	for _, p := range posts {
		item := &feeds.Item{
			Id:          p.ID,
			Title:       p.Title,
			Link:        &feeds.Link{Href: p.URL},
			Description: p.Summary,
			Content:     p.Content,
			Created:     p.PublishedAt,
			Updated:     p.UpdatedAt,
		}
		if p.ImageURL != "" {
			item.Enclosure = &feeds.Enclosure{Url: p.ImageURL, Type: "image/jpeg", Length: "0"}
		}
		f.Items = append(f.Items, item)
	}

	switch format {
	case FormatAtom:
		out, err := f.ToAtom()
		if err != nil {
			return "", fmt.Errorf("failed to render atom feed: %w", err)
		}
		return out, nil
	case FormatJSON:
		out, err := f.ToJSON()
		if err != nil {
			return "", fmt.Errorf("failed to render json feed: %w", err)
		}
		return out, nil
	default:
		out, err := f.ToRss()
		if err != nil {
			return "", fmt.Errorf("failed to render rss feed: %w", err)
		}
		return out, nil
	}
}
