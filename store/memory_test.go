package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blawby/lawfeed/post"
)

// TestMemoryUpsert verifies the in-memory backend matches the SQLite upsert
// contract: created_at and published_at survive a re-scrape.
func TestMemoryUpsert(t *testing.T) {
	m := NewMemory()
	published := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	first := samplePost("post-one", post.SourceClio, published)
	require.NoError(t, m.Upsert(first))
	originalCreated := first.CreatedAt

	second := samplePost("post-one", post.SourceClio, published.AddDate(0, 1, 0))
	second.Title = "Updated Title"
	require.NoError(t, m.Upsert(second))

	got, err := m.Get("post-one")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Updated Title", got.Title)
	assert.Equal(t, originalCreated, got.CreatedAt)
	assert.Equal(t, published, got.PublishedAt)
}

func TestMemoryQueries(t *testing.T) {
	m := NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.Upsert(samplePost("clio-old", post.SourceClio, base)))
	require.NoError(t, m.Upsert(samplePost("clio-new", post.SourceClio, base.AddDate(0, 2, 0))))
	require.NoError(t, m.Upsert(samplePost("mycase-mid", post.SourceMyCase, base.AddDate(0, 1, 0))))

	bySource, err := m.GetBySource(post.SourceClio, 10)
	require.NoError(t, err)
	require.Len(t, bySource, 2)
	assert.Equal(t, "clio-new", bySource[0].ID)

	inRange, err := m.GetByDateRange(base.AddDate(0, 0, 15), base.AddDate(0, 1, 15), 10)
	require.NoError(t, err)
	require.Len(t, inRange, 1)
	assert.Equal(t, "mycase-mid", inRange[0].ID)

	latest, err := m.Latest(1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "clio-new", latest[0].ID)
}
