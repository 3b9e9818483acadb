package collector

import (
	"context"
	"errors"
	"sync"
	"testing"

	"spielebasar/internal/client/teamsl"
)

// fakeSearcher serves pages of a fixed id list.
type fakeSearcher struct {
	mu       sync.Mutex
	total    int
	pages    map[int][]int64
	failing  map[int]bool
	rejected map[int][]int64
	calls    []int
	horizons []teamsl.Horizon
}

func (f *fakeSearcher) SearchOpenGames(_ context.Context, _ *teamsl.Session, q teamsl.SearchQuery) (*teamsl.SearchPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q.Page)
	f.horizons = append(f.horizons, q.Horizon)
	f.mu.Unlock()
	if f.failing[q.Page] {
		return nil, &teamsl.FetchError{Endpoint: "search", Status: 500}
	}
	page := &teamsl.SearchPage{Total: f.total, Rejected: len(f.rejected[q.Page]), RejectedIDs: f.rejected[q.Page]}
	for _, id := range f.pages[q.Page] {
		page.Records = append(page.Records, teamsl.OpenGame{MatchID: id})
	}
	return page, nil
}

func idRange(from, to int64) []int64 {
	out := make([]int64, 0, to-from)
	for id := from; id < to; id++ {
		out = append(out, id)
	}
	return out
}

func TestFetchAllSinglePage(t *testing.T) {
	f := &fakeSearcher{total: 5, pages: map[int][]int64{0: idRange(1, 6)}}
	c := New(f, nil, Options{PageSize: 10, BatchPause: -1})

	res, err := c.FetchAll(context.Background(), &teamsl.Session{}, teamsl.HorizonWeek)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(f.calls) != 1 {
		t.Fatalf("expected exactly one fetch, got %v", f.calls)
	}
	if res.UniqueCount != 5 || res.Mismatch {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestFetchAllShortPagesMismatch(t *testing.T) {
	// 250 reported, but the pages only carry 220 distinct games.
	f := &fakeSearcher{total: 250, pages: map[int][]int64{
		0: idRange(1, 101),
		1: idRange(101, 201),
		2: idRange(201, 221),
	}}
	c := New(f, nil, Options{PageSize: 100, BatchPause: -1})

	res, err := c.FetchAll(context.Background(), &teamsl.Session{}, teamsl.HorizonAll)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(f.calls) != 3 {
		t.Fatalf("expected page 0 plus two pages, got %v", f.calls)
	}
	if res.PagesPlanned != 3 || res.PagesFetched != 3 {
		t.Fatalf("unexpected page counters: %+v", res)
	}
	if !res.Mismatch || res.UniqueCount != 220 || res.ReportedTotal != 250 {
		t.Fatalf("expected mismatch with 220 records, got %+v", res)
	}
	for _, h := range f.horizons {
		if h != teamsl.HorizonAll {
			t.Fatalf("every page must use the cycle horizon, got %s", h)
		}
	}
}

func TestFetchAllDeduplicates(t *testing.T) {
	f := &fakeSearcher{total: 5, pages: map[int][]int64{
		0: {1, 2},
		1: {2, 3},
		2: {4, 5},
	}}
	c := New(f, nil, Options{PageSize: 2, BatchPause: -1})

	res, err := c.FetchAll(context.Background(), &teamsl.Session{}, teamsl.HorizonWeek)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	got := res.IDs()
	want := []int64{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if res.Mismatch {
		t.Fatalf("no mismatch expected once all ids arrived")
	}
}

func TestFetchAllFirstPageFailureIsFatal(t *testing.T) {
	f := &fakeSearcher{total: 10, failing: map[int]bool{0: true}}
	c := New(f, nil, Options{PageSize: 5})

	_, err := c.FetchAll(context.Background(), &teamsl.Session{}, teamsl.HorizonWeek)
	var fe *teamsl.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestFetchAllLaterPageFailureContinues(t *testing.T) {
	f := &fakeSearcher{total: 6, pages: map[int][]int64{
		0: {1, 2},
		2: {5, 6},
	}, failing: map[int]bool{1: true}}
	c := New(f, nil, Options{PageSize: 2, BatchPause: -1})

	res, err := c.FetchAll(context.Background(), &teamsl.Session{}, teamsl.HorizonThreeWeek)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(res.FailedPages) != 1 || res.FailedPages[0] != 1 {
		t.Fatalf("expected page 1 to fail, got %v", res.FailedPages)
	}
	if res.UniqueCount != 4 || !res.Mismatch {
		t.Fatalf("expected partial result with mismatch, got %+v", res)
	}
}

func TestFetchAllCapsPages(t *testing.T) {
	f := &fakeSearcher{total: 1000, pages: map[int][]int64{0: {1}}}
	c := New(f, nil, Options{PageSize: 10, MaxPages: 4, BatchSize: 2, BatchPause: -1})

	res, err := c.FetchAll(context.Background(), &teamsl.Session{}, teamsl.HorizonAll)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(f.calls) != 4 || res.PagesPlanned != 4 {
		t.Fatalf("expected 4 page fetches, got %v", f.calls)
	}
}

func TestFetchAllEmpty(t *testing.T) {
	f := &fakeSearcher{total: 0}
	c := New(f, nil, Options{})

	res, err := c.FetchAll(context.Background(), &teamsl.Session{}, teamsl.HorizonAll)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(res.Records) != 0 || res.Mismatch || len(f.calls) != 1 {
		t.Fatalf("expected empty result after one call, got %+v calls=%v", res, f.calls)
	}
}

func TestFetchAllKeepsRejectedIDs(t *testing.T) {
	f := &fakeSearcher{total: 5,
		pages:    map[int][]int64{0: {1, 2}, 1: {3}},
		rejected: map[int][]int64{0: {7}, 1: {8, 2}},
	}
	c := New(f, nil, Options{PageSize: 3, BatchPause: -1})

	res, err := c.FetchAll(context.Background(), &teamsl.Session{}, teamsl.HorizonAll)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if res.Rejected != 3 || res.UniqueCount != 3 {
		t.Fatalf("unexpected counters: %+v", res)
	}
	got := res.KeepIDs()
	want := []int64{1, 2, 3, 7, 8}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
