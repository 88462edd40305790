// Package store persists fetched listings so scheduled runs build a
// browsable feed and repeat finds are recognised across runs.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Irehund/jobtrack/internal/model"
)

// Feed writes and reads the listing_feed table. The full normalised
// listing rides along as JSONB; the flat columns exist for querying.
type Feed struct {
	pool *pgxpool.Pool
}

func NewFeed(pool *pgxpool.Pool) *Feed {
	return &Feed{pool: pool}
}

// SaveBatch inserts listings whose posting URL has not been seen before
// and reports how many were new versus already present. A listing that
// fails to serialise is logged and skipped, never fatal.
func (f *Feed) SaveBatch(ctx context.Context, runID, profileID string, listings []model.Listing) (inserted, dupes int, err error) {
	for _, l := range listings {
		payload, err := json.Marshal(l)
		if err != nil {
			slog.Warn("listing payload marshal failed", "listing", l.ID, "err", err)
			continue
		}

		postingURL := l.PostingURL
		if postingURL == "" {
			postingURL = fmt.Sprintf("%s:%s", l.Source, l.ID)
		}

		tag, err := f.pool.Exec(ctx,
			`INSERT INTO listing_feed
			   (run_id, profile_id, source, external_id, title, company,
			    location, posting_url, salary_min, salary_max, date_posted, payload)
			 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb
			 WHERE NOT EXISTS (
			   SELECT 1 FROM listing_feed WHERE posting_url = $8
			 )`,
			runID, profileID, l.Source, l.ID, l.Title, l.Company,
			l.Location, postingURL, l.SalaryMin, l.SalaryMax, l.DatePosted, string(payload),
		)
		if err != nil {
			return inserted, dupes, fmt.Errorf("insert listing: %w", err)
		}

		if tag.RowsAffected() == 0 {
			dupes++
		} else {
			inserted++
		}
	}
	return inserted, dupes, nil
}

// Recent returns the newest stored listings, reconstructed from their
// JSONB payloads.
func (f *Feed) Recent(ctx context.Context, limit int) ([]model.Listing, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := f.pool.Query(ctx,
		`SELECT payload FROM listing_feed ORDER BY inserted_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query listing_feed: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan payload: %w", err)
		}
		var l model.Listing
		if err := json.Unmarshal(payload, &l); err != nil {
			slog.Warn("stored payload unmarshal failed", "err", err)
			continue
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// CountForRun reports how many rows a scheduled run inserted, for the run
// summary log line.
func (f *Feed) CountForRun(ctx context.Context, runID string) (int, error) {
	var n int
	err := f.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM listing_feed WHERE run_id = $1`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count run rows: %w", err)
	}
	return n, nil
}
