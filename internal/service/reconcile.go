package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"spielebasar/internal/client/teamsl"
	"spielebasar/internal/events"
	"spielebasar/internal/license"
	"spielebasar/internal/metrics"
	"spielebasar/internal/models"
)

// Reconcile applies every collected record to the store, one transaction per
// record. A failing record is reported in the summary and does not stop the
// loop; a cancelled context does.
func (s *OpenGamesSyncService) Reconcile(ctx context.Context, horizon teamsl.Horizon, records []teamsl.OpenGame) ReconcileSummary {
	summary := newReconcileSummary()
	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		out, ev := s.reconcileOne(ctx, horizon, rec)
		summary.add(out)
		if ev != nil {
			summary.Events = append(summary.Events, *ev)
		}
		metrics.RecordOutcomes.WithLabelValues(horizon.String(), string(out.Kind), string(out.Reason)).Inc()
		if out.Kind == OutcomeFailed {
			s.logger().Warn("reconcile record failed",
				zap.String("horizon", horizon.String()),
				zap.Int64("match_id", rec.MatchID),
				zap.Error(out.Err),
			)
		}
	}
	return summary
}

func (s *OpenGamesSyncService) reconcileOne(ctx context.Context, horizon teamsl.Horizon, rec teamsl.OpenGame) (out Outcome, ev *events.Event) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{MatchID: rec.MatchID, Kind: OutcomeFailed, Err: fmt.Errorf("panic: %v", r)}
			ev = nil
		}
	}()
	now := s.now().UTC()
	err := s.Store.InTx(ctx, func(tx *gorm.DB) error {
		var err error
		out, ev, err = s.applyRecord(ctx, tx, horizon, rec, now)
		return err
	})
	if err != nil {
		return Outcome{MatchID: rec.MatchID, Kind: OutcomeFailed, Err: err}, nil
	}
	return out, ev
}

func (s *OpenGamesSyncService) applyRecord(ctx context.Context, tx *gorm.DB, horizon teamsl.Horizon, rec teamsl.OpenGame, now time.Time) (Outcome, *events.Event, error) {
	if !rec.HasOpenSeat() {
		return s.dropRecord(ctx, tx, horizon, rec, SkipNoOpenSeat, now)
	}

	for i := range rec.Seats {
		seat := &rec.Seats[i]
		if !seat.Open() || seat.Club != nil || seat.ClubName == "" {
			continue
		}
		club, err := s.Store.FindClubByNameTx(ctx, tx, seat.ClubName)
		if err != nil {
			return Outcome{}, nil, err
		}
		if club != nil {
			seat.Club = clubRefFromModel(club)
		}
	}
	for _, seat := range rec.OpenSeats() {
		if seat.Club == nil {
			return s.dropRecord(ctx, tx, horizon, rec, SkipSeatClubMissing, now)
		}
	}

	refs := referencedClubs(rec)
	items := make([]models.Club, 0, len(refs))
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		items = append(items, clubModel(ref, now))
		ids = append(ids, ref.ID)
	}
	if err := s.Store.UpsertClubsTx(ctx, tx, items); err != nil {
		return Outcome{}, nil, fmt.Errorf("upsert clubs: %w", err)
	}
	clubs, err := s.Store.ListClubsByIDsTx(ctx, tx, ids)
	if err != nil {
		return Outcome{}, nil, fmt.Errorf("load clubs: %w", err)
	}
	if reason := visibilityVerdict(rec, clubs); reason != "" {
		return s.dropRecord(ctx, tx, horizon, rec, reason, now)
	}

	var qualificationID *int64
	if q := rec.Qualification; q != nil {
		item := &models.Qualification{ID: q.ID, Label: q.Label, ShortLabel: q.ShortLabel, LastSeenAt: now}
		if err := s.Store.UpsertQualificationTx(ctx, tx, item); err != nil {
			return Outcome{}, nil, fmt.Errorf("upsert qualification: %w", err)
		}
		id := q.ID
		qualificationID = &id
	}

	existing, err := s.Store.GetMatchTx(ctx, tx, rec.MatchID)
	if err != nil {
		return Outcome{}, nil, err
	}
	m := buildMatch(rec, qualificationID, horizon, now)
	if err := s.Store.UpsertMatchTx(ctx, tx, m); err != nil {
		return Outcome{}, nil, fmt.Errorf("upsert match: %w", err)
	}

	if existing == nil {
		ev := matchEvent(events.TypeMatchCreated, rec, horizon, now)
		return Outcome{MatchID: rec.MatchID, Kind: OutcomeCreated}, &ev, nil
	}
	changed := diffMatch(existing, m)
	out := Outcome{MatchID: rec.MatchID, Kind: OutcomeUpdated, Changed: changed}
	if len(changed) == 0 {
		return out, nil, nil
	}
	ev := matchEvent(events.TypeMatchChanged, rec, horizon, now)
	ev.Changed = changed
	return out, &ev, nil
}

// dropRecord removes a stored match that no longer qualifies.
func (s *OpenGamesSyncService) dropRecord(ctx context.Context, tx *gorm.DB, horizon teamsl.Horizon, rec teamsl.OpenGame, reason SkipReason, now time.Time) (Outcome, *events.Event, error) {
	deleted, err := s.Store.DeleteMatchTx(ctx, tx, rec.MatchID)
	if err != nil {
		return Outcome{}, nil, fmt.Errorf("delete match: %w", err)
	}
	out := Outcome{MatchID: rec.MatchID, Kind: OutcomeSkipped, Reason: reason, Deleted: deleted}
	if !deleted {
		return out, nil, nil
	}
	ev := matchEvent(events.TypeMatchRemoved, rec, horizon, now)
	ev.Reason = string(reason)
	return out, &ev, nil
}

// visibilityVerdict returns a skip reason when hidden clubs rule the match out.
func visibilityVerdict(rec teamsl.OpenGame, clubs map[int64]models.Club) SkipReason {
	home, homeOK := lookupClub(rec.HomeClub, clubs)
	guest, guestOK := lookupClub(rec.GuestClub, clubs)
	switch {
	case homeOK && guestOK && home.Hidden && guest.Hidden:
		return SkipClubsHidden
	case !homeOK && guestOK && guest.Hidden:
		return SkipClubUnresolved
	case homeOK && !guestOK && home.Hidden:
		return SkipClubUnresolved
	}
	for _, seat := range rec.OpenSeats() {
		club, ok := lookupClub(seat.Club, clubs)
		if !ok || club.Hidden {
			return SkipSeatClubHidden
		}
	}
	return ""
}

func lookupClub(ref *teamsl.ClubRef, clubs map[int64]models.Club) (models.Club, bool) {
	if ref == nil {
		return models.Club{}, false
	}
	c, ok := clubs[ref.ID]
	return c, ok
}

// referencedClubs lists home, guest and open-seat clubs once each.
func referencedClubs(rec teamsl.OpenGame) []teamsl.ClubRef {
	seen := map[int64]struct{}{}
	out := make([]teamsl.ClubRef, 0, 4)
	add := func(ref *teamsl.ClubRef) {
		if ref == nil || ref.ID <= 0 {
			return
		}
		if _, ok := seen[ref.ID]; ok {
			return
		}
		seen[ref.ID] = struct{}{}
		out = append(out, *ref)
	}
	add(rec.HomeClub)
	add(rec.GuestClub)
	for _, seat := range rec.OpenSeats() {
		add(seat.Club)
	}
	return out
}

func clubModel(ref teamsl.ClubRef, now time.Time) models.Club {
	return models.Club{
		ID:            ref.ID,
		Number:        ref.Number,
		Name:          ref.Name,
		AssociationID: ref.AssociationID,
		DistrictID:    ref.DistrictID,
		RegionID:      ref.RegionID,
		LastSeenAt:    now,
	}
}

func clubRefFromModel(c *models.Club) *teamsl.ClubRef {
	return &teamsl.ClubRef{
		ID:            c.ID,
		Number:        c.Number,
		Name:          c.Name,
		AssociationID: c.AssociationID,
		DistrictID:    c.DistrictID,
		RegionID:      c.RegionID,
	}
}

func buildMatch(rec teamsl.OpenGame, qualificationID *int64, horizon teamsl.Horizon, now time.Time) *models.Match {
	m := &models.Match{
		ID:              rec.MatchID,
		KickoffAt:       rec.KickoffAt.UTC(),
		LeagueName:      rec.LeagueName,
		License:         license.Classify(rec.LeagueName),
		HomeTeam:        rec.HomeTeam,
		GuestTeam:       rec.GuestTeam,
		HomeClubID:      clubID(rec.HomeClub),
		GuestClubID:     clubID(rec.GuestClub),
		VenueName:       rec.Venue.Name,
		VenueStreet:     rec.Venue.Street,
		VenuePostalCode: rec.Venue.PostalCode,
		VenueCity:       rec.Venue.City,
		QualificationID: qualificationID,
		LastHorizon:     horizon.String(),
		LastSeenAt:      now,
	}
	if len(rec.Raw) > 0 {
		m.RawJSON = datatypes.JSON(rec.Raw)
	}
	m.Seat1Open, m.Seat1ClubID, m.Seat1ClubName = seatColumns(rec.Seats[0])
	m.Seat2Open, m.Seat2ClubID, m.Seat2ClubName = seatColumns(rec.Seats[1])
	m.Seat3Open, m.Seat3ClubID, m.Seat3ClubName = seatColumns(rec.Seats[2])
	return m
}

// seatColumns keeps the club only for open seats.
func seatColumns(seat teamsl.Seat) (bool, *int64, *string) {
	if !seat.Open() || seat.Club == nil {
		return seat.Open(), nil, nil
	}
	return true, clubID(seat.Club), strPtr(seat.Club.Name)
}

func clubID(ref *teamsl.ClubRef) *int64 {
	if ref == nil {
		return nil
	}
	id := ref.ID
	return &id
}

// diffMatch names the user-visible fields that changed between two versions.
func diffMatch(old, cur *models.Match) []string {
	changed := make([]string, 0, 4)
	if !old.KickoffAt.Equal(cur.KickoffAt) {
		changed = append(changed, "kickoff")
	}
	if old.VenueName != cur.VenueName || old.VenueStreet != cur.VenueStreet ||
		old.VenuePostalCode != cur.VenuePostalCode || old.VenueCity != cur.VenueCity {
		changed = append(changed, "venue")
	}
	if old.Seat1Open != cur.Seat1Open || old.Seat2Open != cur.Seat2Open || old.Seat3Open != cur.Seat3Open ||
		!sameID(old.Seat1ClubID, cur.Seat1ClubID) || !sameID(old.Seat2ClubID, cur.Seat2ClubID) || !sameID(old.Seat3ClubID, cur.Seat3ClubID) {
		changed = append(changed, "seats")
	}
	if old.LeagueName != cur.LeagueName || old.HomeTeam != cur.HomeTeam || old.GuestTeam != cur.GuestTeam {
		changed = append(changed, "teams")
	}
	return changed
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func matchEvent(typ string, rec teamsl.OpenGame, horizon teamsl.Horizon, now time.Time) events.Event {
	ids := make([]int64, 0, 4)
	for _, ref := range referencedClubs(rec) {
		ids = append(ids, ref.ID)
	}
	return events.Event{
		Type:       typ,
		MatchID:    rec.MatchID,
		Horizon:    horizon.String(),
		KickoffAt:  rec.KickoffAt.UTC(),
		LeagueName: rec.LeagueName,
		ClubIDs:    ids,
		OccurredAt: now,
	}
}
