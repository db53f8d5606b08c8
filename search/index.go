// Package search maintains a bleve full-text index over stored posts.
package search

import (
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/blawby/lawfeed/post"
)

// Index wraps a bleve search index over posts.
type Index struct {
	index bleve.Index
}

// indexedPost is the document shape stored in the index.
type indexedPost struct {
	ID          string
	Source      string
	Title       string
	Summary     string
	Content     string
	URL         string
	PublishedAt time.Time
}

// Result is a single search hit.
type Result struct {
	ID        string              `json:"id"`
	Source    string              `json:"source"`
	Title     string              `json:"title"`
	URL       string              `json:"url"`
	Score     float64             `json:"score"`
	Fragments map[string][]string `json:"fragments,omitempty"`
}

// Open opens or creates a bleve index at the given path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "en"

	textFieldMapping := bleve.NewTextFieldMapping()

	keywordFieldMapping := bleve.NewKeywordFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Source", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("Title", titleFieldMapping)
	docMapping.AddFieldMappingsAt("Summary", textFieldMapping)
	docMapping.AddFieldMappingsAt("Content", textFieldMapping)
	docMapping.AddFieldMappingsAt("URL", keywordFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexPost adds or updates a post in the index.
func (i *Index) IndexPost(p *post.Post) error {
	doc := &indexedPost{
		ID:          p.ID,
		Source:      string(p.Source),
		Title:       p.Title,
		Summary:     p.Summary,
		Content:     p.Content,
		URL:         p.URL,
		PublishedAt: p.PublishedAt,
	}
	if err := i.index.Index(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to index post %s: %w", doc.ID, err)
	}
	return nil
}

// IndexAll indexes a batch of posts in one commit.
func (i *Index) IndexAll(posts []post.Post) error {
	batch := i.index.NewBatch()
	for idx := range posts {
		p := &posts[idx]
		doc := &indexedPost{
			ID:          p.ID,
			Source:      string(p.Source),
			Title:       p.Title,
			Summary:     p.Summary,
			Content:     p.Content,
			URL:         p.URL,
			PublishedAt: p.PublishedAt,
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to batch index %s: %w", doc.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Search runs a query-string query (supports quotes, boolean operators,
// fuzzy ~) and returns the top hits with highlighted fragments.
func (i *Index) Search(queryStr string, limit int) ([]Result, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Fields = []string{"Source", "Title", "URL"}

	results, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var hits []Result
	for _, hit := range results.Hits {
		result := Result{
			ID:        hit.ID,
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}
		if source, ok := hit.Fields["Source"].(string); ok {
			result.Source = source
		}
		if title, ok := hit.Fields["Title"].(string); ok {
			result.Title = title
		}
		if u, ok := hit.Fields["URL"].(string); ok {
			result.URL = u
		}
		hits = append(hits, result)
	}

	return hits, nil
}

// Count returns the number of indexed posts.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
