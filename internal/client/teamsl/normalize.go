package teamsl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const SeatCount = 3

var validate = validator.New(validator.WithRequiredStructEnabled())

// ClubRef is a club as referenced by a game record.
type ClubRef struct {
	ID            int64  `json:"id" validate:"gt=0"`
	Number        int64  `json:"number"`
	Name          string `json:"name" validate:"required"`
	AssociationID int64  `json:"association_id"`
	DistrictID    *int64 `json:"district_id,omitempty"`
	RegionID      *int64 `json:"region_id,omitempty"`
}

type QualificationRef struct {
	ID         int64  `json:"id" validate:"gt=0"`
	Label      string `json:"label"`
	ShortLabel string `json:"short_label"`
}

type Venue struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

// Seat is one of the three referee positions of a game.
type Seat struct {
	Position int      `json:"position"`
	Offered  bool     `json:"offered"`
	Taken    bool     `json:"taken"`
	Club     *ClubRef `json:"club,omitempty"`
	// ClubName is set when the club is known by name only.
	ClubName string `json:"club_name,omitempty"`
}

// Open reports whether the seat is offered for pickup and nobody holds it yet.
func (s Seat) Open() bool {
	return s.Offered && !s.Taken
}

// OpenGame is the typed form of one search result. Optional parts the
// portal leaves out are zero values or nil, never missing keys.
type OpenGame struct {
	MatchID       int64             `json:"match_id" validate:"required,gt=0"`
	KickoffAt     time.Time         `json:"kickoff_at" validate:"required"`
	LeagueName    string            `json:"league_name"`
	HomeTeam      string            `json:"home_team"`
	GuestTeam     string            `json:"guest_team"`
	HomeClub      *ClubRef          `json:"home_club,omitempty"`
	GuestClub     *ClubRef          `json:"guest_club,omitempty"`
	Venue         Venue             `json:"venue"`
	Seats         [SeatCount]Seat   `json:"seats"`
	Qualification *QualificationRef `json:"qualification,omitempty"`
	Raw           json.RawMessage   `json:"-"`
}

func (g OpenGame) OpenSeats() []Seat {
	out := make([]Seat, 0, SeatCount)
	for _, seat := range g.Seats {
		if seat.Open() {
			out = append(out, seat)
		}
	}
	return out
}

func (g OpenGame) HasOpenSeat() bool {
	return len(g.OpenSeats()) > 0
}

// NeedsDetail reports whether an open seat lacks a club id.
func (g OpenGame) NeedsDetail() bool {
	for _, seat := range g.OpenSeats() {
		if seat.Club == nil {
			return true
		}
	}
	return false
}

// ApplyDetail fills seat data the search result left out.
func (g *OpenGame) ApplyDetail(d *MatchDetail) {
	if g == nil || d == nil {
		return
	}
	for _, ds := range d.Seats {
		if ds.Position < 1 || ds.Position > SeatCount {
			continue
		}
		seat := &g.Seats[ds.Position-1]
		if seat.Club == nil {
			if ds.Club != nil {
				seat.Club = ds.Club
			} else if ds.ClubName != "" && seat.ClubName == "" {
				seat.ClubName = ds.ClubName
			}
		}
		if ds.RefereeAssigned {
			seat.Taken = true
		}
	}
}

func normalizeGame(raw json.RawMessage) (OpenGame, error) {
	var rg rawOpenGame
	if err := json.Unmarshal(raw, &rg); err != nil {
		return OpenGame{}, fmt.Errorf("decode open game: %w", err)
	}
	if rg.SP == nil {
		return OpenGame{}, fmt.Errorf("open game without sp block")
	}
	sp := rg.SP

	g := OpenGame{
		MatchID: sp.SpielplanID,
		Raw:     append(json.RawMessage(nil), raw...),
	}
	if sp.Spieldatum > 0 {
		g.KickoffAt = time.UnixMilli(sp.Spieldatum).UTC()
	}
	if sp.Liga != nil {
		g.LeagueName = strings.TrimSpace(sp.Liga.Liganame)
		if q := sp.Liga.SRQualifikation; q != nil {
			ref := &QualificationRef{ID: q.ID, Label: strings.TrimSpace(q.Bezeichnung), ShortLabel: strings.TrimSpace(q.KurzBezeichnung)}
			if validate.Struct(ref) == nil {
				g.Qualification = ref
			}
		}
	}
	if sp.Heim != nil {
		g.HomeTeam = strings.TrimSpace(sp.Heim.MannschaftName)
		if sp.Heim.Mannschaft != nil {
			g.HomeClub = clubRef(sp.Heim.Mannschaft.Verein)
		}
	}
	if sp.Gast != nil {
		g.GuestTeam = strings.TrimSpace(sp.Gast.MannschaftName)
		if sp.Gast.Mannschaft != nil {
			g.GuestClub = clubRef(sp.Gast.Mannschaft.Verein)
		}
	}
	// Without team club data the first two seat clubs stand for home and guest.
	if g.HomeClub == nil {
		g.HomeClub = clubRef(sp.SR1Verein)
	}
	if g.GuestClub == nil {
		g.GuestClub = clubRef(sp.SR2Verein)
	}
	if f := sp.Spielfeld; f != nil {
		g.Venue = Venue{
			Name:       strings.TrimSpace(f.Bezeichnung),
			Street:     strings.TrimSpace(f.Strasse),
			PostalCode: strings.TrimSpace(f.PLZ),
			City:       strings.TrimSpace(f.Ort),
		}
	}

	offered := [SeatCount]bool{rg.SR1Offered, rg.SR2Offered, rg.SR3Offered}
	assigned := [SeatCount]json.RawMessage{rg.SR1, rg.SR2, rg.SR3}
	clubs := [SeatCount]*rawVerein{sp.SR1Verein, sp.SR2Verein, sp.SR3Verein}
	for i := 0; i < SeatCount; i++ {
		g.Seats[i] = Seat{
			Position: i + 1,
			Offered:  offered[i],
			Taken:    isAssigned(assigned[i]),
			Club:     clubRef(clubs[i]),
		}
	}

	if err := validate.Struct(g); err != nil {
		return OpenGame{}, fmt.Errorf("invalid open game %d: %w", g.MatchID, err)
	}
	return g, nil
}

// rawMatchID reads only the match id of a record, for records that fail
// normalization. It returns 0 when the id is missing or unreadable.
func rawMatchID(raw json.RawMessage) int64 {
	var rg struct {
		SP *struct {
			SpielplanID int64 `json:"spielplanId"`
		} `json:"sp"`
	}
	if err := json.Unmarshal(raw, &rg); err != nil || rg.SP == nil {
		return 0
	}
	return rg.SP.SpielplanID
}

func clubRef(v *rawVerein) *ClubRef {
	if v == nil {
		return nil
	}
	ref := &ClubRef{
		ID:            v.VereinID,
		Number:        v.Vereinsnummer,
		Name:          strings.TrimSpace(v.Vereinsname),
		AssociationID: v.VerbandID,
		DistrictID:    v.KreisID,
		RegionID:      v.BezirkID,
	}
	if err := validate.Struct(ref); err != nil {
		return nil
	}
	return ref
}

func isAssigned(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return false
	}
	switch string(v) {
	case "null", "false", "{}", `""`:
		return false
	}
	return true
}
