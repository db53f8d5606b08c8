package post

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	g := GeneratedPost{ID: "gen-1", Status: StatusPending}

	require.NoError(t, g.Transition(StatusApproved, now))
	assert.Equal(t, StatusApproved, g.Status)
	assert.Equal(t, now, g.UpdatedAt)

	// Approved is terminal.
	assert.Error(t, g.Transition(StatusRejected, now))
	assert.Equal(t, StatusApproved, g.Status)
}

func TestTransition_InvalidTargets(t *testing.T) {
	g := GeneratedPost{ID: "gen-1", Status: StatusPending}

	assert.Error(t, g.Transition(StatusPending, time.Now()))
	assert.Error(t, g.Transition(Status("published"), time.Now()))
	assert.Equal(t, StatusPending, g.Status)
}
