// Package scheduler wires up the cron job that periodically runs every
// active search profile and feeds the results into the listing store.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/Irehund/jobtrack/internal/dedup"
	"github.com/Irehund/jobtrack/internal/fetch"
	"github.com/Irehund/jobtrack/internal/model"
	"github.com/Irehund/jobtrack/internal/settings"
	"github.com/Irehund/jobtrack/internal/source"
	"github.com/Irehund/jobtrack/internal/store"
)

// Scheduler wraps robfig/cron and manages the periodic search loop.
type Scheduler struct {
	cron     *cron.Cron
	profiles *settings.Store
	feed     *store.Feed
	rdb      *redis.Client
	registry *source.Registry
	orch     *fetch.Orchestrator
	spec     string // cron spec, e.g. "@every 6h"
}

// New creates a Scheduler that fires every intervalHours hours.
func New(profiles *settings.Store, feed *store.Feed, rdb *redis.Client, registry *source.Registry, intervalHours int) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cron.DefaultLogger)),
		profiles: profiles,
		feed:     feed,
		rdb:      rdb,
		registry: registry,
		orch:     fetch.New(),
		spec:     fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one search
// cycle immediately so the feed is populated without waiting for the
// first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSearches(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started, schedule %s", s.spec)

	// Run immediately on startup (non-blocking)
	go s.runSearches(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

// runSearches loads all active profiles and runs each one to completion.
func (s *Scheduler) runSearches(ctx context.Context) {
	log.Println("[scheduler] Search cycle started")

	profiles, err := s.profiles.Active(ctx)
	if err != nil {
		log.Printf("[scheduler] Load active profiles error: %v", err)
		return
	}

	if len(profiles) == 0 {
		log.Println("[scheduler] No active search profiles, nothing to run")
		return
	}

	runID := uuid.NewString()
	log.Printf("[scheduler] Run %s covering %d profile(s)", runID, len(profiles))
	for _, p := range profiles {
		s.runProfile(ctx, runID, p)
	}

	log.Println("[scheduler] Search cycle complete")
}

// runProfile fetches, filters and stores one profile's results, then marks
// which dedup keys are new since the last run.
func (s *Scheduler) runProfile(ctx context.Context, runID string, p settings.Profile) {
	adapters := s.registry.Resolve(p.Sources)
	if len(adapters) == 0 {
		log.Printf("[scheduler] Profile %s has no usable sources, skipping", p.ID)
		return
	}

	results := s.orch.FetchAndFilter(ctx, p.Criteria(), p.FilterConfig(), adapters, nil)

	inserted, dupes, err := s.feed.SaveBatch(ctx, runID, p.ID, results)
	if err != nil {
		log.Printf("[scheduler] Profile %s save error: %v", p.ID, err)
		return
	}

	fresh := s.markSeen(ctx, p.ID, results)
	log.Printf("[scheduler] Profile %s done: results=%d inserted=%d duplicates=%d new=%d",
		p.ID, len(results), inserted, dupes, fresh)

	if fresh > 0 {
		s.announce(ctx, p.ID, fresh)
	}
}

// markSeen records each listing's dedup key in the profile's Redis
// seen-set and returns how many were not there before. Redis being down
// only costs the new-listing count, never the run.
func (s *Scheduler) markSeen(ctx context.Context, profileID string, results []model.Listing) int {
	if len(results) == 0 {
		return 0
	}

	members := make([]interface{}, 0, len(results))
	for _, l := range results {
		members = append(members, dedup.Key(l))
	}

	added, err := s.rdb.SAdd(ctx, "jobtrack:seen:"+profileID, members...).Result()
	if err != nil {
		log.Printf("[scheduler] Seen-set update error: %v", err)
		return 0
	}
	return int(added)
}

// announce publishes the new-listing count for downstream consumers
// (non-fatal).
func (s *Scheduler) announce(ctx context.Context, profileID string, count int) {
	event, _ := json.Marshal(map[string]string{
		"type":      "EVENT_NEW_LISTINGS",
		"profileId": profileID,
		"count":     strconv.Itoa(count),
	})
	if err := s.rdb.Publish(ctx, "EVENT_NEW_LISTINGS", event).Err(); err != nil {
		log.Printf("[scheduler] Publish EVENT_NEW_LISTINGS error: %v", err)
	}
}
