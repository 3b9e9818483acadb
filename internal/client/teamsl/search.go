package teamsl

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const endpointSearch = "search"

type SearchQuery struct {
	Page     int
	PageSize int
	Horizon  Horizon
}

// SearchPage is one page of the open-games search. Total is the portal's
// own count and only a hint; Rejected counts records that failed validation.
// RejectedIDs holds the match ids of rejected records that still carried one.
type SearchPage struct {
	Total       int
	Records     []OpenGame
	Rejected    int
	RejectedIDs []int64
	Raw         []byte
}

func (c *Client) SearchOpenGames(ctx context.Context, sess *Session, q SearchQuery) (*SearchPage, error) {
	payload := c.searchPayload(q)
	var out searchResponse
	raw, err := c.doJSON(ctx, endpointSearch, http.MethodPost, "/rest/offenespiele/search", sess, payload, &out)
	if err != nil {
		return nil, err
	}

	page := &SearchPage{Total: out.Total, Records: make([]OpenGame, 0, len(out.Results)), Raw: raw}
	for _, item := range out.Results {
		g, err := normalizeGame(item)
		if err != nil {
			page.Rejected++
			if id := rawMatchID(item); id > 0 {
				page.RejectedIDs = append(page.RejectedIDs, id)
			}
			c.logger.Warn("teamsl record rejected", zap.Int("page", q.Page), zap.Error(err))
			continue
		}
		page.Records = append(page.Records, g)
	}
	return page, nil
}

func (c *Client) searchPayload(q SearchQuery) searchPayload {
	size := q.PageSize
	if size <= 0 {
		size = 100
	}
	horizon := q.Horizon
	if horizon == "" {
		horizon = HorizonAll
	}
	return searchPayload{
		SpielStatus:       "ALLE",
		VereinsDelegation: "AUSSCHLIESSLICH",
		VereinsSpiele:     "STANDARD",
		Datum:             c.searchDate(),
		Zeitraum:          string(horizon),
		SortBy:            "sp.spieldatum",
		SortOrder:         "asc",
		PageFrom:          q.Page,
		PageSize:          size,
	}
}

// searchDate is today's local midnight rendered as a UTC ISO timestamp.
func (c *Client) searchDate() string {
	now := c.now().In(c.location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.location)
	return midnight.UTC().Format("2006-01-02T15:04:05.000Z")
}
