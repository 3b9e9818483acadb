package models

import (
	"time"

	"gorm.io/datatypes"
)

// Match is an upcoming game with at least one referee seat open for club pickup.
type Match struct {
	ID              int64          `gorm:"primaryKey;autoIncrement:false;comment:upstream spielplanId"`
	KickoffAt       time.Time      `gorm:"not null;index;comment:kickoff time"`
	LeagueName      string         `gorm:"size:255;not null;default:'';comment:league name"`
	License         string         `gorm:"size:32;not null;default:'';comment:required referee license"`
	HomeTeam        string         `gorm:"size:255;not null;default:'';comment:home team name"`
	GuestTeam       string         `gorm:"size:255;not null;default:'';comment:guest team name"`
	HomeClubID      *int64         `gorm:"index;comment:home club"`
	GuestClubID     *int64         `gorm:"index;comment:guest club"`
	VenueName       string         `gorm:"size:255;not null;default:'';comment:venue name"`
	VenueStreet     string         `gorm:"size:255;not null;default:'';comment:venue street"`
	VenuePostalCode string         `gorm:"size:16;not null;default:'';comment:venue postal code"`
	VenueCity       string         `gorm:"size:128;not null;default:'';comment:venue city"`
	Seat1Open       bool           `gorm:"not null;default:false;comment:seat 1 offered and unassigned"`
	Seat1ClubID     *int64         `gorm:"comment:club offering seat 1"`
	Seat1ClubName   *string        `gorm:"size:255;comment:club name for seat 1"`
	Seat2Open       bool           `gorm:"not null;default:false;comment:seat 2 offered and unassigned"`
	Seat2ClubID     *int64         `gorm:"comment:club offering seat 2"`
	Seat2ClubName   *string        `gorm:"size:255;comment:club name for seat 2"`
	Seat3Open       bool           `gorm:"not null;default:false;comment:seat 3 offered and unassigned"`
	Seat3ClubID     *int64         `gorm:"comment:club offering seat 3"`
	Seat3ClubName   *string        `gorm:"size:255;comment:club name for seat 3"`
	QualificationID *int64         `gorm:"index;comment:referee qualification"`
	LastHorizon     string         `gorm:"size:8;not null;default:'';comment:horizon of the last run that saw the match"`
	LastSeenAt      time.Time      `gorm:"not null;index;comment:last time the match appeared upstream"`
	RawJSON         datatypes.JSON `gorm:"comment:upstream record"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (Match) TableName() string {
	return "matches"
}

// OpenSeats counts seats that are offered and not yet taken.
func (m Match) OpenSeats() int {
	n := 0
	for _, open := range []bool{m.Seat1Open, m.Seat2Open, m.Seat3Open} {
		if open {
			n++
		}
	}
	return n
}
