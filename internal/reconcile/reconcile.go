// Package reconcile drives bibliography entries through the DBLP client
// one at a time, replacing each entry with its canonical record while
// preserving the original citation key.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/matsen/bibsync/internal/bibtex"
)

// DefaultEntryDelay is the pause between entries, a coarser rate limit
// than the client's per-attempt delay.
const DefaultEntryDelay = 1 * time.Second

// RecordFetcher retrieves the raw canonical record for a title. An
// empty record with a nil error means no record could be retrieved.
type RecordFetcher interface {
	FetchRecord(ctx context.Context, title, key string) (string, error)
}

// RecordCache is an optional lookaside store for fetched records.
type RecordCache interface {
	Get(title string) (string, bool, error)
	Put(title, bibtex string) error
}

// Reconciler processes entries sequentially against a RecordFetcher.
type Reconciler struct {
	client     RecordFetcher
	cache      RecordCache
	logger     zerolog.Logger
	entryDelay time.Duration
	sleep      func(time.Duration)
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCache sets a lookaside record cache.
func WithCache(cache RecordCache) Option {
	return func(r *Reconciler) {
		r.cache = cache
	}
}

// WithLogger sets the logger for per-entry messages.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithEntryDelay sets the pause between entries.
func WithEntryDelay(d time.Duration) Option {
	return func(r *Reconciler) {
		r.entryDelay = d
	}
}

// WithSleeper replaces the sleep function, letting tests skip real waits.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(r *Reconciler) {
		r.sleep = sleep
	}
}

// New creates a Reconciler around the given fetcher.
func New(client RecordFetcher, opts ...Option) *Reconciler {
	r := &Reconciler{
		client:     client,
		logger:     zerolog.Nop(),
		entryDelay: DefaultEntryDelay,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reconciles entries in order. It returns the reconciled entries
// (one per input entry that has both a title and a key, in input order)
// and the citation keys of entries that were kept unchanged. No failure
// of a single entry aborts the run; the only error is a cancelled
// context.
func (r *Reconciler) Run(ctx context.Context, entries []bibtex.Entry) ([]bibtex.Entry, []string, error) {
	var out []bibtex.Entry
	var failed []string
	skipped := 0

	for _, entry := range entries {
		title := entry.Title()
		key := entry.Key
		if title == "" || key == "" {
			skipped++
			continue
		}

		r.logger.Info().Str("key", key).Str("title", title).Msg("searching DBLP")

		record, err := r.lookup(ctx, title, key)
		if err != nil {
			return out, failed, err
		}

		out, failed = r.merge(entry, record, out, failed)
		r.sleep(r.entryDelay)
	}

	if skipped > 0 {
		r.logger.Debug().Int("count", skipped).Msg("skipped entries missing title or key")
	}
	return out, failed, nil
}

// lookup consults the cache before the client and stores fresh records
// on the way out.
func (r *Reconciler) lookup(ctx context.Context, title, key string) (string, error) {
	if r.cache != nil {
		record, ok, err := r.cache.Get(title)
		if err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("cache lookup failed")
		} else if ok {
			r.logger.Debug().Str("key", key).Msg("record served from cache")
			return record, nil
		}
	}

	record, err := r.client.FetchRecord(ctx, title, key)
	if err != nil {
		return "", err
	}

	if record != "" && r.cache != nil {
		if err := r.cache.Put(title, record); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("cache store failed")
		}
	}
	return record, nil
}

// merge applies the replacement policy for one entry: a parseable record
// replaces the entry's fields under the original key; anything else
// keeps the original and records the key as failed.
func (r *Reconciler) merge(entry bibtex.Entry, record string, out []bibtex.Entry, failed []string) ([]bibtex.Entry, []string) {
	key := entry.Key

	if record == "" {
		r.logger.Info().Str("key", key).Msg("keeping original entry")
		return append(out, entry.Clone()), append(failed, key)
	}

	parsed, err := bibtex.Parse([]byte(record))
	if err != nil || len(parsed) == 0 {
		r.logger.Warn().Str("key", key).Msg("fetched record contained no parseable entries")
		return append(out, entry.Clone()), append(failed, key)
	}

	replacement := parsed[0].Clone()
	replacement.Key = key // preserve the original citation key
	return append(out, replacement), failed
}
