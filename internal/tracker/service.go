package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Irehund/jobtrack/internal/model"
)

// ─── Service ─────────────────────────────────────────────────────────────────

// Service encapsulates the application-tracking business logic. It has no
// dependency on net/http, so any transport can sit in front of it.
type Service struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewService returns a configured Service.
func NewService(pool *pgxpool.Pool, rdb *redis.Client) *Service {
	return &Service{pool: pool, rdb: rdb}
}

// Application is one tracked job application.
type Application struct {
	ID         int64     `json:"id"`
	ListingID  string    `json:"listingId"`
	Source     string    `json:"source"`
	Title      string    `json:"title"`
	Company    string    `json:"company"`
	Location   string    `json:"location"`
	PostingURL string    `json:"postingUrl"`
	Status     string    `json:"status"`
	AppliedAt  time.Time `json:"appliedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TimelineEvent is one recorded status milestone.
type TimelineEvent struct {
	Status  string    `json:"status"`
	EventAt time.Time `json:"eventAt"`
}

const applicationColumns = `id, listing_id, source, title, company, location,
	posting_url, status, applied_at, updated_at`

// ─── Business logic ───────────────────────────────────────────────────────────

// Track inserts a new application for the listing at Applied status. A
// listing can only be tracked once.
func (s *Service) Track(ctx context.Context, l model.Listing) (*Application, error) {
	if l.ID == "" {
		return nil, &ValidationError{Msg: "listing id is required"}
	}
	if l.Title == "" {
		return nil, &ValidationError{Msg: "listing title is required"}
	}

	var a Application
	err := s.pool.QueryRow(ctx,
		`WITH ins AS (
		   INSERT INTO applications (listing_id, source, title, company, location, posting_url, status)
		   VALUES ($1, $2, $3, $4, $5, $6, $7)
		   ON CONFLICT (listing_id) DO NOTHING
		   RETURNING *
		 )
		 SELECT `+applicationColumns+` FROM ins`,
		l.ID, l.Source, l.Title, l.Company, l.Location, l.PostingURL, string(StatusApplied),
	).Scan(
		&a.ID, &a.ListingID, &a.Source, &a.Title, &a.Company, &a.Location,
		&a.PostingURL, &a.Status, &a.AppliedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ValidationError{Msg: "listing is already tracked"}
	}
	if err != nil {
		return nil, fmt.Errorf("track listing: %w", err)
	}

	s.publish(ctx, "EVENT_APPLICATION_TRACKED", map[string]string{
		"type":          "EVENT_APPLICATION_TRACKED",
		"applicationId": strconv.FormatInt(a.ID, 10),
		"listingId":     a.ListingID,
	})

	return &a, nil
}

// UpdateStatus moves an application to a new status. Milestone statuses
// also record a timeline event.
func (s *Service) UpdateStatus(ctx context.Context, id int64, newStatusStr string) (*Application, error) {
	newStatus, err := ParseStatus(newStatusStr)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}

	var currentStatus string
	err = s.pool.QueryRow(ctx,
		`SELECT status FROM applications WHERE id = $1`, id,
	).Scan(&currentStatus)
	if err != nil {
		return nil, ErrNotFound
	}

	var a Application
	err = s.pool.QueryRow(ctx,
		`WITH upd AS (
		   UPDATE applications
		   SET status = $1, updated_at = NOW()
		   WHERE id = $2
		   RETURNING *
		 )
		 SELECT `+applicationColumns+` FROM upd`,
		string(newStatus), id,
	).Scan(
		&a.ID, &a.ListingID, &a.Source, &a.Title, &a.Company, &a.Location,
		&a.PostingURL, &a.Status, &a.AppliedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("updateStatus update: %w", err)
	}

	if IsTimestamped(newStatus) {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO timeline_events (application_id, status) VALUES ($1, $2)`,
			id, string(newStatus))
		if err != nil {
			return nil, fmt.Errorf("record timeline event: %w", err)
		}
	}

	s.publish(ctx, "EVENT_APPLICATION_STATUS", map[string]string{
		"type":          "EVENT_APPLICATION_STATUS",
		"applicationId": strconv.FormatInt(id, 10),
		"from":          currentStatus,
		"to":            string(newStatus),
	})

	return &a, nil
}

// List returns all tracked applications, most recently updated first.
func (s *Service) List(ctx context.Context) ([]Application, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+applicationColumns+` FROM applications ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list applications query: %w", err)
	}
	defer rows.Close()

	apps := make([]Application, 0)
	for rows.Next() {
		var a Application
		if err := rows.Scan(
			&a.ID, &a.ListingID, &a.Source, &a.Title, &a.Company, &a.Location,
			&a.PostingURL, &a.Status, &a.AppliedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("list applications scan: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// Get returns a single application by id.
func (s *Service) Get(ctx context.Context, id int64) (*Application, error) {
	var a Application
	err := s.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id,
	).Scan(
		&a.ID, &a.ListingID, &a.Source, &a.Title, &a.Company, &a.Location,
		&a.PostingURL, &a.Status, &a.AppliedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, ErrNotFound
	}
	return &a, nil
}

// Timeline returns the application's recorded milestones in order.
func (s *Service) Timeline(ctx context.Context, id int64) ([]TimelineEvent, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("timeline lookup: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.pool.Query(ctx,
		`SELECT status, event_at FROM timeline_events
		 WHERE application_id = $1 ORDER BY event_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("timeline query: %w", err)
	}
	defer rows.Close()

	events := make([]TimelineEvent, 0)
	for rows.Next() {
		var e TimelineEvent
		if err := rows.Scan(&e.Status, &e.EventAt); err != nil {
			return nil, fmt.Errorf("timeline scan: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Delete removes an application and, through the schema cascade, its
// timeline.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// publish sends an event to Redis pub/sub (non-fatal).
func (s *Service) publish(ctx context.Context, channel string, payload map[string]string) {
	if s.rdb == nil {
		return
	}
	event, _ := json.Marshal(payload)
	if err := s.rdb.Publish(ctx, channel, event).Err(); err != nil {
		slog.Warn("publish "+channel+" failed", "err", err)
	}
}

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrNotFound is returned when an application id does not exist.
var ErrNotFound = fmt.Errorf("application not found")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
