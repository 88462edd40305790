// Package fetch orchestrates concurrent searches across every enabled
// source, with per-source retry, and merges the results into one
// deduplicated, date-sorted list.
//
// Retry behavior per source:
//   - Attempt 1: run normally
//   - On failure: wait RetryDelay on that worker only, then attempt again
//   - 401/403: permanent, abandoned without retry
//   - After MaxRetries attempts: abandoned, remaining sources unaffected
package fetch

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Irehund/jobtrack/internal/dedup"
	"github.com/Irehund/jobtrack/internal/filter"
	"github.com/Irehund/jobtrack/internal/model"
	"github.com/Irehund/jobtrack/internal/source"
)

const (
	// MaxRetries is the total number of attempts per source, not the
	// number of retries after the first attempt.
	MaxRetries = 3
	// RetryDelay is the fixed pause between attempts on one source.
	RetryDelay = 2 * time.Second

	maxWorkers = 5
)

// Orchestrator runs every enabled source and merges what comes back. It
// never fails as a whole: source failures degrade to a smaller, possibly
// empty, result set reported through Progress.FailedSources.
type Orchestrator struct {
	retryDelay time.Duration
}

func New() *Orchestrator {
	return &Orchestrator{retryDelay: RetryDelay}
}

// Fetch searches all adapters concurrently and returns the merged result:
// deduplicated, then sorted by date posted descending with undated records
// last. onProgress may be nil.
func (o *Orchestrator) Fetch(ctx context.Context, c source.Criteria, adapters []source.Adapter, onProgress ProgressFunc) []model.Listing {
	if len(adapters) == 0 {
		slog.Warn("fetch called with no sources enabled")
		return []model.Listing{}
	}

	var (
		mu       sync.Mutex
		progress = Progress{TotalSources: len(adapters)}
		all      []model.Listing
	)

	// notify must be called with mu held.
	notify := func() {
		if onProgress != nil {
			onProgress(progress.snapshot())
		}
	}

	jobs := make(chan source.Adapter)
	var wg sync.WaitGroup

	for i := 0; i < min(len(adapters), maxWorkers); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range jobs {
				records := o.fetchOne(ctx, a, c, &mu, &progress, notify)

				mu.Lock()
				all = append(all, records...)
				progress.CompletedSources++
				progress.CurrentSource = a.Name()
				progress.RetryAttempt = 0
				progress.TotalResults = len(all)
				notify()
				mu.Unlock()
			}
		}()
	}

	for _, a := range adapters {
		jobs <- a
	}
	close(jobs)
	wg.Wait()

	merged := dedup.Merge(all)
	slog.Info("fetch complete",
		"sources", len(adapters),
		"failed", len(progress.FailedSources),
		"raw", len(all),
		"merged", len(merged))

	sortByDatePosted(merged)
	return merged
}

// fetchOne runs one source through its full retry sequence. A permanent
// auth rejection or retry exhaustion marks the source failed and yields
// zero records; the caller still counts the source as completed.
func (o *Orchestrator) fetchOne(ctx context.Context, a source.Adapter, c source.Criteria, mu *sync.Mutex, progress *Progress, notify func()) []model.Listing {
	var lastErr error

	for attempt := 1; attempt <= MaxRetries; attempt++ {
		mu.Lock()
		progress.CurrentSource = a.Name()
		if attempt > 1 {
			progress.RetryAttempt = attempt
		} else {
			progress.RetryAttempt = 0
		}
		notify()
		mu.Unlock()

		records, err := a.Search(ctx, c)
		if err == nil {
			slog.Info("source fetched", "source", a.ID(), "results", len(records))
			return records
		}
		lastErr = err

		if source.IsAuthFailure(err) {
			slog.Warn("authentication rejected, skipping retries", "source", a.ID(), "err", err)
			break
		}
		slog.Warn("attempt failed", "source", a.ID(), "attempt", attempt, "err", err)

		if attempt < MaxRetries {
			select {
			case <-time.After(o.retryDelay):
			case <-ctx.Done():
			}
		}
	}

	slog.Error("source abandoned", "source", a.ID(), "err", lastErr)
	mu.Lock()
	progress.FailedSources = append(progress.FailedSources, a.ID())
	mu.Unlock()
	return nil
}

// FetchAndFilter is the full search path: fetch, merge, then run the
// listing filters. This is what the CLI, the HTTP API and the scheduler
// all call.
func (o *Orchestrator) FetchAndFilter(ctx context.Context, c source.Criteria, fc filter.Config, adapters []source.Adapter, onProgress ProgressFunc) []model.Listing {
	return filter.Apply(o.Fetch(ctx, c, adapters, onProgress), fc)
}

// sortByDatePosted orders newest first; records with no date go last.
// The sort is stable so merge order breaks ties.
func sortByDatePosted(listings []model.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i].DatePosted, listings[j].DatePosted
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}
