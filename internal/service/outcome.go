package service

import (
	"fmt"

	"spielebasar/internal/events"
)

type OutcomeKind string

const (
	OutcomeCreated OutcomeKind = "created"
	OutcomeUpdated OutcomeKind = "updated"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// SkipReason says why a record was not stored.
type SkipReason string

const (
	SkipNoOpenSeat      SkipReason = "no_open_seat"
	SkipSeatClubMissing SkipReason = "seat_club_missing"
	SkipClubsHidden     SkipReason = "clubs_hidden"
	SkipSeatClubHidden  SkipReason = "seat_club_hidden"
	SkipClubUnresolved  SkipReason = "club_unresolved"
)

// Outcome is the result of reconciling one record.
type Outcome struct {
	MatchID int64
	Kind    OutcomeKind
	Reason  SkipReason
	// Deleted is set when a skip removed a previously stored match.
	Deleted bool
	Changed []string
	Err     error
}

type RecordError struct {
	MatchID int64  `json:"match_id"`
	Message string `json:"message"`
}

func (e RecordError) Error() string {
	return fmt.Sprintf("match %d: %s", e.MatchID, e.Message)
}

type ReconcileSummary struct {
	Created int                `json:"created"`
	Updated int                `json:"updated"`
	Skipped map[SkipReason]int `json:"skipped"`
	Deleted int                `json:"deleted"`
	Errored int                `json:"errored"`
	Errors  []RecordError      `json:"errors,omitempty"`

	Events []events.Event `json:"-"`
}

func newReconcileSummary() ReconcileSummary {
	return ReconcileSummary{Skipped: map[SkipReason]int{}}
}

func (s *ReconcileSummary) add(o Outcome) {
	switch o.Kind {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeSkipped:
		s.Skipped[o.Reason]++
		if o.Deleted {
			s.Deleted++
		}
	case OutcomeFailed:
		s.Errored++
		msg := "unknown error"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		s.Errors = append(s.Errors, RecordError{MatchID: o.MatchID, Message: msg})
	}
}

func (s ReconcileSummary) SkippedTotal() int {
	n := 0
	for _, v := range s.Skipped {
		n += v
	}
	return n
}
