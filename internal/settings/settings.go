// Package settings persists search profiles, the saved searches the
// scheduler runs and the API exposes.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Irehund/jobtrack/internal/filter"
	"github.com/Irehund/jobtrack/internal/model"
	"github.com/Irehund/jobtrack/internal/source"
)

// ErrNotFound is returned when a profile id does not exist.
var ErrNotFound = fmt.Errorf("profile not found")

// ValidationError describes a profile rejected before touching the database.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Profile is one saved search.
type Profile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Keywords    []string  `json:"keywords"`
	Location    string    `json:"location"`
	RadiusMiles int       `json:"radiusMiles"`
	WorkType    string    `json:"workType"`
	Experience  string    `json:"experienceLevel"`
	HomeLat     *float64  `json:"homeLatitude,omitempty"`
	HomeLon     *float64  `json:"homeLongitude,omitempty"`
	Sources     []string  `json:"sources"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Criteria converts the profile into the request passed to every source.
func (p Profile) Criteria() source.Criteria {
	return source.Criteria{
		Keywords:    p.Keywords,
		Location:    p.Location,
		RadiusMiles: p.RadiusMiles,
	}
}

// FilterConfig converts the profile into the listing filter configuration.
func (p Profile) FilterConfig() filter.Config {
	return filter.Config{
		HomeLat:     p.HomeLat,
		HomeLon:     p.HomeLon,
		RadiusMiles: float64(p.RadiusMiles),
		WorkType:    model.WorkType(p.WorkType),
		Experience:  model.Experience(p.Experience),
		Keywords:    p.Keywords,
	}
}

// Store reads and writes search profiles.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const profileColumns = `id, name, keywords, location, radius_miles, work_type,
	experience, home_lat, home_lon, sources, active, created_at`

// Active fetches all active = true profiles, the set a scheduled run covers.
func (s *Store) Active(ctx context.Context) ([]Profile, error) {
	return s.query(ctx,
		`SELECT `+profileColumns+` FROM search_profiles WHERE active = true ORDER BY created_at`)
}

// List fetches every profile, newest first.
func (s *Store) List(ctx context.Context) ([]Profile, error) {
	return s.query(ctx,
		`SELECT `+profileColumns+` FROM search_profiles ORDER BY created_at DESC`)
}

func (s *Store) query(ctx context.Context, sql string) ([]Profile, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query search_profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Get fetches one profile by id.
func (s *Store) Get(ctx context.Context, id string) (*Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM search_profiles WHERE id = $1`, id)

	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Save validates and upserts the profile. A missing id means a new profile
// and one is assigned.
func (s *Store) Save(ctx context.Context, p *Profile) error {
	if err := p.validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO search_profiles
		   (`+profileColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   keywords = EXCLUDED.keywords,
		   location = EXCLUDED.location,
		   radius_miles = EXCLUDED.radius_miles,
		   work_type = EXCLUDED.work_type,
		   experience = EXCLUDED.experience,
		   home_lat = EXCLUDED.home_lat,
		   home_lon = EXCLUDED.home_lon,
		   sources = EXCLUDED.sources,
		   active = EXCLUDED.active
		 RETURNING created_at`,
		p.ID, p.Name, p.Keywords, p.Location, p.RadiusMiles, p.WorkType,
		p.Experience, p.HomeLat, p.HomeLon, p.Sources, p.Active)

	if err := row.Scan(&p.CreatedAt); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Deactivate drops the profile out of scheduled runs without deleting its
// history.
func (s *Store) Deactivate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE search_profiles SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Profile) validate() error {
	if p.Name == "" {
		return &ValidationError{Msg: "profile name is required"}
	}
	if len(p.Keywords) == 0 {
		return &ValidationError{Msg: "at least one keyword is required"}
	}
	if p.RadiusMiles < 0 {
		return &ValidationError{Msg: "radius must not be negative"}
	}
	if p.WorkType == "" {
		p.WorkType = string(model.WorkAny)
	}
	if _, err := model.ParseWorkType(p.WorkType); err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	if p.Experience == "" {
		p.Experience = string(model.ExperienceAny)
	}
	if _, err := model.ParseExperience(p.Experience); err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	if (p.HomeLat == nil) != (p.HomeLon == nil) {
		return &ValidationError{Msg: "home latitude and longitude must be set together"}
	}
	return nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	if err := row.Scan(
		&p.ID, &p.Name, &p.Keywords, &p.Location, &p.RadiusMiles, &p.WorkType,
		&p.Experience, &p.HomeLat, &p.HomeLon, &p.Sources, &p.Active, &p.CreatedAt,
	); err != nil {
		return Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	return p, nil
}
