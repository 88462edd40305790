// Package model defines the shared data structures for JobTrack.
package model

import (
	"encoding/json"
	"time"
)

// Listing is a normalised job posting fetched from an external source.
// Source adapters map their wire formats into this shape; everything
// downstream (dedup, filters, storage, display) works only with Listing.
type Listing struct {
	ID          string `json:"id"`     // source-qualified, e.g. "usajobs_CISA-2026-001"
	Source      string `json:"source"` // source identifier, e.g. "usajobs"
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"` // display text, e.g. "Dallas, TX"
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostingURL  string `json:"postingUrl"`
	Description string `json:"description,omitempty"`

	DatePosted  *time.Time `json:"datePosted,omitempty"`
	ClosingDate *time.Time `json:"closingDate,omitempty"`

	// Absent coordinates are valid; many postings are nationwide or
	// never geocoded. Filters must treat absence as a pass.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	IsRemote bool `json:"isRemote"`
	IsHybrid bool `json:"isHybrid"`

	SalaryMin      *float64 `json:"salaryMin,omitempty"`
	SalaryMax      *float64 `json:"salaryMax,omitempty"`
	SalaryCurrency string   `json:"salaryCurrency,omitempty"` // "USD" unless the source says otherwise
	SalaryInterval string   `json:"salaryInterval,omitempty"` // "annual", "hourly" or ""

	EmploymentType  string `json:"employmentType,omitempty"`
	ExperienceLevel string `json:"experienceLevel,omitempty"` // "entry", "mid", "senior" or "" (unclassified)

	// Filled in by the commute estimator after filtering, never by adapters.
	CommuteMinutes *int     `json:"commuteMinutes,omitempty"`
	DistanceMiles  *float64 `json:"distanceMiles,omitempty"`

	// Raw is the untransformed source payload, kept for diagnostics only.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// HasCoordinates reports whether the listing carries a usable lat/lon pair.
func (l Listing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}
