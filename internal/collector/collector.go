package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"spielebasar/internal/client/teamsl"
	"spielebasar/internal/metrics"
)

const (
	DefaultPageSize   = 100
	DefaultMaxPages   = 50
	DefaultBatchSize  = 10
	DefaultBatchPause = 200 * time.Millisecond
)

// Searcher is the part of the upstream client the collector pages through.
type Searcher interface {
	SearchOpenGames(ctx context.Context, sess *teamsl.Session, q teamsl.SearchQuery) (*teamsl.SearchPage, error)
}

type Options struct {
	PageSize   int
	MaxPages   int
	BatchSize  int
	BatchPause time.Duration
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	// A negative pause disables pausing between batches.
	if o.BatchPause == 0 {
		o.BatchPause = DefaultBatchPause
	}
	return o
}

// Result is the deduplicated record set of one collection.
type Result struct {
	Records       []teamsl.OpenGame
	ReportedTotal int
	UniqueCount   int
	PagesPlanned  int
	PagesFetched  int
	FailedPages   []int
	Rejected      int
	RejectedIDs   []int64
	Mismatch      bool
}

// IDs returns the match ids of the collected records in collection order.
func (r Result) IDs() []int64 {
	out := make([]int64, 0, len(r.Records))
	for _, rec := range r.Records {
		out = append(out, rec.MatchID)
	}
	return out
}

// KeepIDs returns every match id the portal returned, including records
// that failed validation. Orphan removal must spare all of them.
func (r Result) KeepIDs() []int64 {
	out := r.IDs()
	seen := make(map[int64]struct{}, len(out))
	for _, id := range out {
		seen[id] = struct{}{}
	}
	for _, id := range r.RejectedIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type Collector struct {
	Client  Searcher
	Logger  *zap.Logger
	Options Options
}

func New(client Searcher, logger *zap.Logger, opts Options) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{Client: client, Logger: logger, Options: opts.withDefaults()}
}

type pageResult struct {
	page *teamsl.SearchPage
	err  error
}

// FetchAll pages through the open-games search for one horizon. Only a
// failure of the first page is returned as an error; later page failures are
// logged and listed in Result.FailedPages.
func (c *Collector) FetchAll(ctx context.Context, sess *teamsl.Session, horizon teamsl.Horizon) (Result, error) {
	opts := c.Options.withDefaults()
	logger := c.logger().With(zap.String("horizon", horizon.String()))

	first, err := c.Client.SearchOpenGames(ctx, sess, teamsl.SearchQuery{Page: 0, PageSize: opts.PageSize, Horizon: horizon})
	if err != nil {
		return Result{}, fmt.Errorf("collect first page: %w", err)
	}
	res := Result{ReportedTotal: first.Total, PagesFetched: 1}
	if first.Total <= 0 {
		res.PagesPlanned = 1
		logger.Info("collector: no open games reported")
		return res, nil
	}

	seen := make(map[int64]struct{}, first.Total)
	res.merge(first, seen)

	pages := (first.Total + opts.PageSize - 1) / opts.PageSize
	if pages > opts.MaxPages {
		logger.Warn("collector: page count capped",
			zap.Int("pages", pages),
			zap.Int("max_pages", opts.MaxPages),
			zap.Int("reported_total", first.Total),
		)
		pages = opts.MaxPages
	}
	res.PagesPlanned = pages

	for start := 1; start < pages; start += opts.BatchSize {
		if len(seen) >= first.Total {
			break
		}
		end := start + opts.BatchSize
		if end > pages {
			end = pages
		}

		results := make([]pageResult, end-start)
		var wg sync.WaitGroup
		for p := start; p < end; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				page, err := c.Client.SearchOpenGames(ctx, sess, teamsl.SearchQuery{Page: p, PageSize: opts.PageSize, Horizon: horizon})
				results[p-start] = pageResult{page: page, err: err}
			}(p)
		}
		wg.Wait()

		for i, pr := range results {
			p := start + i
			if pr.err != nil {
				res.FailedPages = append(res.FailedPages, p)
				metrics.CollectorFailedPages.WithLabelValues(horizon.String()).Inc()
				logger.Warn("collector: page fetch failed", zap.Int("page", p), zap.Error(pr.err))
				continue
			}
			res.PagesFetched++
			res.merge(pr.page, seen)
		}

		if end < pages && len(seen) < first.Total && opts.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return res.finish(), ctx.Err()
			case <-time.After(opts.BatchPause):
			}
		}
	}

	res = res.finish()
	if res.Mismatch {
		metrics.CollectorMismatches.WithLabelValues(horizon.String()).Inc()
		logger.Warn("collector: unique count differs from reported total",
			zap.Int("reported_total", res.ReportedTotal),
			zap.Int("unique", res.UniqueCount),
			zap.Ints("failed_pages", res.FailedPages),
		)
	} else {
		logger.Info("collector: done",
			zap.Int("unique", res.UniqueCount),
			zap.Int("pages", res.PagesFetched),
		)
	}
	return res, nil
}

// merge appends records not seen before; the first occurrence of an id wins.
func (r *Result) merge(page *teamsl.SearchPage, seen map[int64]struct{}) {
	if page == nil {
		return
	}
	r.Rejected += page.Rejected
	r.RejectedIDs = append(r.RejectedIDs, page.RejectedIDs...)
	for _, rec := range page.Records {
		if _, dup := seen[rec.MatchID]; dup {
			continue
		}
		seen[rec.MatchID] = struct{}{}
		r.Records = append(r.Records, rec)
	}
}

func (r Result) finish() Result {
	r.UniqueCount = len(r.Records)
	r.Mismatch = r.UniqueCount != r.ReportedTotal
	return r
}

func (c *Collector) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
