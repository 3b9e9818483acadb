package teamsl

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const endpointDetail = "detail"

// MatchDetail is the per-seat referee view of one game.
type MatchDetail struct {
	MatchID int64
	Seats   []DetailSeat
}

type DetailSeat struct {
	Position        int
	Offered         bool
	Club            *ClubRef
	ClubName        string
	RefereeAssigned bool
}

func (c *Client) FetchMatchDetail(ctx context.Context, sess *Session, matchID int64) (*MatchDetail, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("match id is required")
	}
	var out detailResponse
	path := fmt.Sprintf("/rest/offenespiele/%d/schiedsrichter", matchID)
	if _, err := c.doJSON(ctx, endpointDetail, http.MethodGet, path, sess, nil, &out); err != nil {
		return nil, err
	}
	detail := &MatchDetail{MatchID: matchID}
	if out.Data == nil {
		return detail, nil
	}
	for i, raw := range out.Data.SRList {
		seat := DetailSeat{
			Position: raw.Position,
			Offered:  raw.OffenAngeboten,
			Club:     clubRef(raw.Verein),
		}
		if seat.Position == 0 {
			seat.Position = i + 1
		}
		if p := raw.PersonData; p != nil {
			switch {
			case strings.EqualFold(strings.TrimSpace(p.Vorname), "verein"):
				// Club placeholders put the club name in the last-name field.
				seat.ClubName = strings.TrimSpace(p.Nachname)
			case strings.TrimSpace(p.Vorname) != "" || strings.TrimSpace(p.Nachname) != "":
				seat.RefereeAssigned = true
			}
		}
		detail.Seats = append(detail.Seats, seat)
	}
	return detail, nil
}
