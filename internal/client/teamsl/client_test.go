package teamsl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleGame = `{
  "sr1OffenAngeboten": true,
  "sr2OffenAngeboten": true,
  "sr3OffenAngeboten": false,
  "sr1": null,
  "sr2": {"personId": 9},
  "sp": {
    "spielplanId": 4711,
    "spieldatum": 1773511200000,
    "liga": {"liganame": "Herren Kreisliga A", "srQualifikation": {"srQualifikationId": 3, "bezeichnung": "Schiedsrichter D", "kurzBezeichnung": "D"}},
    "heimMannschaftLiga": {"mannschaftName": "TV Musterstadt 2"},
    "gastMannschaftLiga": {"mannschaftName": "BC Beispiel"},
    "spielfeld": {"bezeichnung": "Sporthalle Mitte", "strasse": "Hauptstr. 1", "plz": "12345", "ort": "Musterstadt"},
    "sr1Verein": {"vereinId": 100, "vereinsnummer": 4100, "vereinsname": "TV Musterstadt", "verbandId": 4},
    "sr2Verein": {"vereinId": 200, "vereinsnummer": 4200, "vereinsname": "BC Beispiel", "verbandId": 4, "kreisId": 7}
  }
}`

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)
}

func loginMux(loginBody string, cookies []string, loginName string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/login.do", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("reqCode") != "login" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = r.ParseForm()
		if r.PostForm.Get("username") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, c := range cookies {
			w.Header().Add("Set-Cookie", c)
		}
		if loginBody != "" {
			_, _ = io.WriteString(w, loginBody)
			return
		}
		w.Header().Set("Location", "/index.do")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/rest/user/lc", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "SESSION=abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"loginName": loginName}})
	})
	return mux
}

func TestAuthenticate(t *testing.T) {
	c := newTestClient(t, loginMux("", []string{"JSESSIONID=zzz; Path=/", "SESSION=abc; Path=/; HttpOnly"}, "referee"))

	sess, err := c.Authenticate(context.Background(), "user", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if sess.Cookie != "SESSION=abc" {
		t.Fatalf("expected SESSION cookie, got %q", sess.Cookie)
	}
	if sess.LoginName != "referee" {
		t.Fatalf("expected login name, got %q", sess.LoginName)
	}

	c.EndSession(sess)
	if sess.Cookie != "" {
		t.Fatalf("expected cookie cleared after EndSession")
	}
}

func TestAuthenticateFailures(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		cookies   []string
		loginName string
	}{
		{name: "bad credentials", body: "<html>Die Kombination aus Benutzername und Passwort ist nicht bekannt!</html>", cookies: []string{"SESSION=abc"}, loginName: "x"},
		{name: "no session cookie", cookies: []string{"JSESSIONID=zzz; Path=/"}, loginName: "x"},
		{name: "session not verified", cookies: []string{"SESSION=abc; Path=/"}, loginName: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, loginMux(tc.body, tc.cookies, tc.loginName))
			_, err := c.Authenticate(context.Background(), "user", "secret")
			if !errors.Is(err, ErrAuthentication) {
				t.Fatalf("expected authentication error, got %v", err)
			}
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("expected *AuthError, got %T", err)
			}
		})
	}
}

func TestAuthenticateWithoutCredentials(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1"}, nil)
	if _, err := c.Authenticate(context.Background(), "", ""); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

func TestSearchOpenGames(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/offenespiele/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Cookie") != "SESSION=abc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"total": 3, "results": [`+sampleGame+`, {"sp": {"spielplanId": 0}}, {"sp": {"spielplanId": 815}}]}`)
	})
	c := newTestClient(t, mux)
	c.location = time.UTC
	c.now = func() time.Time { return time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC) }

	page, err := c.SearchOpenGames(context.Background(), &Session{Cookie: "SESSION=abc"}, SearchQuery{Page: 2, PageSize: 50, Horizon: HorizonThreeWeek})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if got["zeitraum"] != "w3" || got["pageFrom"] != float64(2) || got["pageSize"] != float64(50) {
		t.Fatalf("unexpected paging fields: %v", got)
	}
	if got["datum"] != "2026-03-10T00:00:00.000Z" {
		t.Fatalf("unexpected datum: %v", got["datum"])
	}
	if got["vereinsDelegation"] != "AUSSCHLIESSLICH" || got["spielStatus"] != "ALLE" || got["sortBy"] != "sp.spieldatum" {
		t.Fatalf("unexpected filter fields: %v", got)
	}
	if v, ok := got["srName"]; !ok || v != nil {
		t.Fatalf("expected explicit null srName, got %v", got["srName"])
	}

	if page.Total != 3 || len(page.Records) != 1 || page.Rejected != 2 {
		t.Fatalf("unexpected page: total=%d records=%d rejected=%d", page.Total, len(page.Records), page.Rejected)
	}
	// A record without kickoff is rejected but its id is kept.
	if len(page.RejectedIDs) != 1 || page.RejectedIDs[0] != 815 {
		t.Fatalf("unexpected rejected ids: %v", page.RejectedIDs)
	}
	g := page.Records[0]
	if g.MatchID != 4711 || g.LeagueName != "Herren Kreisliga A" {
		t.Fatalf("unexpected game: %+v", g)
	}
	if !g.Seats[0].Open() || g.Seats[1].Open() || g.Seats[2].Open() {
		t.Fatalf("unexpected seat state: %+v", g.Seats)
	}
	if g.HomeClub == nil || g.HomeClub.ID != 100 || g.GuestClub == nil || g.GuestClub.ID != 200 {
		t.Fatalf("expected seat clubs as home/guest fallback, got %+v / %+v", g.HomeClub, g.GuestClub)
	}
	if g.Qualification == nil || g.Qualification.ShortLabel != "D" {
		t.Fatalf("expected qualification, got %+v", g.Qualification)
	}
	if g.Venue.City != "Musterstadt" || len(g.Raw) == 0 {
		t.Fatalf("expected venue and raw snapshot, got %+v", g.Venue)
	}
}

func TestSearchDateUsesLocalMidnight(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	c := New(Options{Location: berlin}, nil)
	c.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }
	if got := c.searchDate(); got != "2026-03-09T23:00:00.000Z" {
		t.Fatalf("unexpected search date %s", got)
	}
}

func TestSearchOpenGamesHTTPError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/offenespiele/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	})
	c := newTestClient(t, mux)
	_, err := c.SearchOpenGames(context.Background(), &Session{Cookie: "SESSION=abc"}, SearchQuery{})
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Status != http.StatusBadGateway {
		t.Fatalf("expected fetch error with 502, got %v", err)
	}
}

func TestFetchMatchDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/offenespiele/4711/schiedsrichter", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data": {"spielplanId": 4711, "srList": [
			{"position": 1, "offenAngeboten": true, "personData": {"vorname": "Verein", "nachname": "TV Musterstadt"}},
			{"position": 2, "offenAngeboten": true, "verein": {"vereinId": 200, "vereinsname": "BC Beispiel", "verbandId": 4}},
			{"position": 3, "offenAngeboten": false, "personData": {"vorname": "Erika", "nachname": "Muster"}}
		]}}`)
	})
	c := newTestClient(t, mux)

	d, err := c.FetchMatchDetail(context.Background(), &Session{Cookie: "SESSION=abc"}, 4711)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(d.Seats) != 3 {
		t.Fatalf("expected 3 seats, got %d", len(d.Seats))
	}
	if d.Seats[0].ClubName != "TV Musterstadt" || d.Seats[0].RefereeAssigned {
		t.Fatalf("unexpected seat 1: %+v", d.Seats[0])
	}
	if d.Seats[1].Club == nil || d.Seats[1].Club.ID != 200 {
		t.Fatalf("unexpected seat 2: %+v", d.Seats[1])
	}
	if !d.Seats[2].RefereeAssigned {
		t.Fatalf("expected seat 3 assigned")
	}

	g := OpenGame{MatchID: 4711, Seats: [SeatCount]Seat{
		{Position: 1, Offered: true},
		{Position: 2, Offered: true},
		{Position: 3, Offered: true},
	}}
	if !g.NeedsDetail() {
		t.Fatalf("expected game to need detail")
	}
	g.ApplyDetail(d)
	if g.Seats[0].ClubName != "TV Musterstadt" || g.Seats[1].Club == nil || !g.Seats[2].Taken {
		t.Fatalf("detail not applied: %+v", g.Seats)
	}
}

func TestParseHorizon(t *testing.T) {
	for _, raw := range []string{"w1", "W3", " all "} {
		if _, err := ParseHorizon(raw); err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
	}
	if _, err := ParseHorizon("w2"); err == nil {
		t.Fatalf("expected error for unknown horizon")
	}
	if HorizonWeek.IsFull() || HorizonThreeWeek.IsFull() || !HorizonAll.IsFull() {
		t.Fatalf("only the all horizon is full")
	}
}

func TestNewLeavesCallerHTTPClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Second}
	c := New(Options{BaseURL: "http://example.invalid", HTTPClient: shared}, nil)

	if shared.CheckRedirect != nil {
		t.Fatalf("caller's client must keep its redirect policy")
	}
	if c.httpClient == shared || c.httpClient.CheckRedirect == nil {
		t.Fatalf("expected a private copy that stops at redirects")
	}
	if c.httpClient.Timeout != time.Second {
		t.Fatalf("copy must keep caller settings, got timeout %s", c.httpClient.Timeout)
	}
}
