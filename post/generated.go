package post

import (
	"fmt"
	"time"
)

// Status tracks the moderation state of a generated post.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known moderation status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// GeneratedPost is a derivative article synthesized from scraped source
// posts. There are no automatic status transitions: a post stays pending
// until a moderation action approves or rejects it, and both of those states
// are terminal.
type GeneratedPost struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	Summary          string    `json:"summary"`
	ImageURL         string    `json:"image_url,omitempty"`
	SourceReferences []string  `json:"source_references"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Transition applies a moderation decision. Only pending posts may move, and
// only to approved or rejected.
func (g *GeneratedPost) Transition(to Status, now time.Time) error {
	if !to.Valid() || to == StatusPending {
		return fmt.Errorf("invalid target status %q", to)
	}
	if g.Status != StatusPending {
		return fmt.Errorf("post %s is already %s", g.ID, g.Status)
	}
	g.Status = to
	g.UpdatedAt = now
	return nil
}
