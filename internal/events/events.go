// Package events carries match lifecycle notifications to downstream consumers
// such as the club mailer.
package events

import (
	"context"
	"time"
)

const (
	TypeMatchCreated  = "match.created"
	TypeMatchChanged  = "match.changed"
	TypeMatchRemoved  = "match.removed"
	TypeMatchOrphaned = "match.orphaned"
)

type Event struct {
	Type       string    `json:"type"`
	MatchID    int64     `json:"match_id"`
	RunID      string    `json:"run_id,omitempty"`
	Horizon    string    `json:"horizon"`
	Reason     string    `json:"reason,omitempty"`
	Changed    []string  `json:"changed,omitempty"`
	KickoffAt  time.Time `json:"kickoff_at,omitempty"`
	LeagueName string    `json:"league_name,omitempty"`
	ClubIDs    []int64   `json:"club_ids,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, items []Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, []Event) error { return nil }

func (Nop) Close() error { return nil }
