package source

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

// ── Failure ────────────────────────────────────────────────────────────────

func TestFailure_Error(t *testing.T) {
	withStatus := &Failure{SourceID: "adzuna", Message: "unexpected status: Too Many Requests", StatusCode: 429}
	want := "[adzuna] unexpected status: Too Many Requests (HTTP 429)"
	if got := withStatus.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	network := &Failure{SourceID: "usajobs", Message: "http GET: connection refused"}
	want = "[usajobs] http GET: connection refused"
	if got := network.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsAuthFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"401", &Failure{SourceID: "x", StatusCode: http.StatusUnauthorized}, true},
		{"403", &Failure{SourceID: "x", StatusCode: http.StatusForbidden}, true},
		{"429 is transient", &Failure{SourceID: "x", StatusCode: http.StatusTooManyRequests}, false},
		{"500 is transient", &Failure{SourceID: "x", StatusCode: 500}, false},
		{"network failure has no status", &Failure{SourceID: "x"}, false},
		{"wrapped 401", fmt.Errorf("search: %w", &Failure{SourceID: "x", StatusCode: 401}), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsAuthFailure(c.err); got != c.want {
				t.Errorf("IsAuthFailure() = %v, want %v", got, c.want)
			}
		})
	}
}

// ── Criteria ───────────────────────────────────────────────────────────────

func TestCriteria_Query(t *testing.T) {
	c := Criteria{Keywords: []string{"soc", "analyst"}}
	if got := c.Query(); got != "soc analyst" {
		t.Errorf("Query() = %q, want %q", got, "soc analyst")
	}
}

func TestCriteria_Limit(t *testing.T) {
	if got := (Criteria{}).Limit(); got != DefaultMaxResults {
		t.Errorf("default Limit() = %d, want %d", got, DefaultMaxResults)
	}
	if got := (Criteria{MaxResults: 10}).Limit(); got != 10 {
		t.Errorf("Limit() = %d, want 10", got)
	}
	if got := (Criteria{MaxResults: -1}).Limit(); got != DefaultMaxResults {
		t.Errorf("negative MaxResults should fall back to default, got %d", got)
	}
}

// ── parseTime ──────────────────────────────────────────────────────────────

func TestParseTime(t *testing.T) {
	got := parseTime("2026-02-14T08:00:00Z")
	if got == nil {
		t.Fatal("parseTime returned nil for a valid RFC 3339 timestamp")
	}
	want := time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseTime() = %v, want %v", got, want)
	}
}

func TestParseTime_FractionalSeconds(t *testing.T) {
	// USAJobs pads dates with seven fractional digits.
	if got := parseTime("2026-02-10T00:00:00.0000000Z"); got == nil {
		t.Error("parseTime should accept fractional seconds")
	}
}

func TestParseTime_Invalid(t *testing.T) {
	for _, s := range []string{"", "not-a-date", "2026-02-14", "14/02/2026"} {
		if got := parseTime(s); got != nil {
			t.Errorf("parseTime(%q) = %v, want nil", s, got)
		}
	}
}

// ── inferExperience ────────────────────────────────────────────────────────

func TestInferExperience(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Senior Security Engineer", "senior"},
		{"Sr. SOC Analyst", "senior"},
		{"SENIOR DEVELOPER", "senior"},
		{"Junior Developer", "entry"},
		{"Jr. Technician", "entry"},
		{"Entry Level Analyst", "entry"},
		{"Entry-Level Analyst", "entry"},
		{"Software Engineering Internship", "entry"},
		{"Staff Engineer", ""},
		{"SOC Analyst II", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := inferExperience(c.title); got != c.want {
			t.Errorf("inferExperience(%q) = %q, want %q", c.title, got, c.want)
		}
	}
}

// ── credentialMessage ──────────────────────────────────────────────────────

func TestCredentialMessage(t *testing.T) {
	ok, msg := credentialMessage("Adzuna", http.StatusOK, nil)
	if !ok || msg != "Adzuna key validated successfully" {
		t.Errorf("200 = (%v, %q)", ok, msg)
	}

	ok, msg = credentialMessage("Adzuna", http.StatusUnauthorized, nil)
	if ok || msg != "Adzuna rejected the credential (HTTP 401)" {
		t.Errorf("401 = (%v, %q)", ok, msg)
	}

	ok, msg = credentialMessage("Adzuna", 0, errors.New("dial tcp: timeout"))
	if ok || msg != "Could not reach Adzuna — check your internet connection" {
		t.Errorf("network error = (%v, %q)", ok, msg)
	}

	ok, msg = credentialMessage("Adzuna", http.StatusBadGateway, nil)
	if ok || msg != "Adzuna returned an unexpected status (HTTP 502)" {
		t.Errorf("502 = (%v, %q)", ok, msg)
	}
}
