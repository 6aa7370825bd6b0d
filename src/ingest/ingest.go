package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/ratelimit"

	"github.com/exGeni/free-proxy-telegram-bot/src/feed"
	"github.com/exGeni/free-proxy-telegram-bot/src/logger"
	"github.com/exGeni/free-proxy-telegram-bot/src/metrics"
	"github.com/exGeni/free-proxy-telegram-bot/src/pool"
)

// RecordError is a single record that could not be ingested. The rest of the
// batch is unaffected.
type RecordError struct {
	Index   int
	Address string
	Err     error
}

func (e *RecordError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.Address, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Report summarizes one ingestion run.
type Report struct {
	RunID    string
	Fetched  int
	Inserted int
	Failed   int
	Errors   []error
	// FetchErr is set when the upstream could not be read; the run then
	// ingested nothing.
	FetchErr error
	Started  time.Time
	Duration time.Duration
}

// Service upserts upstream batches into the pool, one record at a time.
type Service struct {
	store   pool.Store
	fetcher feed.Fetcher
	limiter ratelimit.Limiter
	metrics *metrics.StatsdClient
}

// NewService builds an ingestion service. writesPerSecond caps the upsert rate,
// zero or less means unlimited.
func NewService(store pool.Store, fetcher feed.Fetcher, writesPerSecond int, m *metrics.StatsdClient) *Service {
	limiter := ratelimit.NewUnlimited()
	if writesPerSecond > 0 {
		limiter = ratelimit.New(writesPerSecond)
	}
	return &Service{
		store:   store,
		fetcher: fetcher,
		limiter: limiter,
		metrics: m,
	}
}

// Run fetches one batch and ingests it. A fetch failure is logged and
// reported, never returned.
func (s *Service) Run(ctx context.Context) Report {
	l := logger.WithComponent("Ingest")

	started := time.Now()
	batch, err := s.fetcher.Fetch(ctx)
	if err != nil {
		report := Report{
			RunID:    uuid.NewString(),
			FetchErr: err,
			Started:  started,
			Duration: time.Since(started),
		}
		l.Error().Err(err).Str("run_id", report.RunID).Msg("Failed to fetch proxies, nothing ingested.")
		s.metrics.Inc("ingest.fetch_error")
		return report
	}

	report := s.Ingest(ctx, batch)
	report.Started = started
	report.Duration = time.Since(started)
	s.metrics.Timing("ingest.duration", report.Duration)

	if stats, err := s.store.Stats(ctx); err != nil {
		l.Warn().Err(err).Msg("Could not read pool stats.")
	} else {
		s.metrics.Gauge("pool.live", stats.Live)
		s.metrics.Gauge("pool.total", stats.Total)
		l.Info().Int64("live", stats.Live).Int64("total", stats.Total).Msg("Pool size.")
	}
	return report
}

// Ingest normalizes and upserts every record of batch. Malformed or unwritable
// records are counted in the report and skipped.
func (s *Service) Ingest(ctx context.Context, batch []feed.Record) Report {
	l := logger.WithComponent("Ingest")
	report := Report{
		RunID:   uuid.NewString(),
		Fetched: len(batch),
		Started: time.Now(),
	}

	for i, raw := range batch {
		if err := ctx.Err(); err != nil {
			l.Warn().Err(err).Int("remaining", len(batch)-i).Msg("Ingestion cancelled.")
			report.Errors = append(report.Errors, err)
			break
		}

		p, err := Normalize(raw)
		if err != nil {
			report.fail(&RecordError{Index: i, Err: err})
			l.Warn().Err(err).Int("index", i).Msg("Skipping malformed proxy record.")
			continue
		}

		s.limiter.Take()
		if err := s.store.Upsert(ctx, p); err != nil {
			report.fail(&RecordError{Index: i, Address: p.Address, Err: err})
			l.Error().Err(err).Str("proxy", p.Address).Msg("Error inserting proxy.")
			continue
		}
		report.Inserted++
		l.Debug().Str("proxy", p.Address).Bool("alive", p.Alive).Msg("Inserted proxy.")
	}

	report.Duration = time.Since(report.Started)
	s.metrics.Count("ingest.fetched", int64(report.Fetched))
	s.metrics.Count("ingest.inserted", int64(report.Inserted))
	s.metrics.Count("ingest.failed", int64(report.Failed))

	l.Info().
		Str("run_id", report.RunID).
		Int("fetched", report.Fetched).
		Int("inserted", report.Inserted).
		Int("failed", report.Failed).
		Dur("took", report.Duration).
		Msg("Proxies imported.")
	return report
}

func (r *Report) fail(err error) {
	r.Failed++
	r.Errors = append(r.Errors, err)
}
