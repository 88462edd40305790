// Package source defines the contract every external job board must
// satisfy, plus the concrete adapters JobTrack ships with. Adapters
// convert source-specific wire formats into model.Listing and report
// failures through the typed Failure error so the orchestrator can tell
// a credential rejection from a transient fault.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Irehund/jobtrack/internal/model"
)

const (
	// DefaultMaxResults caps a single source's result set when the caller
	// does not say otherwise.
	DefaultMaxResults = 50

	httpTimeout = 15 * time.Second
)

// Criteria is the search request passed to every adapter.
type Criteria struct {
	Keywords    []string
	Location    string // free text: "City, ST" or a ZIP code
	RadiusMiles int
	MaxResults  int // 0 means DefaultMaxResults
}

// Query joins the keywords for sources that take a single query string.
func (c Criteria) Query() string {
	return strings.Join(c.Keywords, " ")
}

// Limit returns the effective per-source result cap.
func (c Criteria) Limit() int {
	if c.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return c.MaxResults
}

// Adapter is implemented once per external job board.
//
// Search must return a *Failure (never a bare error) for any HTTP or
// network problem, and must not mutate shared state. A single malformed
// item in a response is skipped and logged, not surfaced as a failure.
type Adapter interface {
	// ID is the stable source identifier, e.g. "usajobs".
	ID() string
	// Name is the human-readable source name, e.g. "USAJobs (Federal)".
	Name() string
	// Search fetches and normalises listings matching the criteria.
	Search(ctx context.Context, c Criteria) ([]model.Listing, error)
	// ValidateCredential makes one cheap call to check the configured
	// credential. Used by setup flows, never by the orchestrator.
	ValidateCredential(ctx context.Context) (bool, string)
}

// Credentials maps a source identifier to its opaque access credential,
// resolved from the environment before adapters are constructed. The
// adapters never interpret a credential beyond splitting composite values.
type Credentials map[string]string

// ─── Failure ─────────────────────────────────────────────────────────────────

// Failure is the typed error adapters return for HTTP and network
// problems. StatusCode 0 means the request never got an HTTP response.
type Failure struct {
	SourceID   string
	Message    string
	StatusCode int
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s (HTTP %d)", f.SourceID, f.Message, f.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", f.SourceID, f.Message)
}

// IsAuthFailure reports whether err is a Failure carrying HTTP 401 or 403,
// the permanent credential rejections that retrying cannot fix.
func IsAuthFailure(err error) bool {
	var f *Failure
	if errors.As(err, &f) {
		return f.StatusCode == http.StatusUnauthorized || f.StatusCode == http.StatusForbidden
	}
	return false
}

// ─── Shared HTTP plumbing ────────────────────────────────────────────────────

// doGET performs one GET and returns the body, mapping every HTTP and
// network problem to a *Failure for sourceID.
func doGET(ctx context.Context, client *http.Client, sourceID, reqURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &Failure{SourceID: sourceID, Message: fmt.Sprintf("build request: %v", err)}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Failure{SourceID: sourceID, Message: fmt.Sprintf("http GET: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Failure{SourceID: sourceID, Message: fmt.Sprintf("read body: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Failure{
			SourceID:   sourceID,
			Message:    "unexpected status: " + http.StatusText(resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	return body, nil
}

// credentialMessage turns a validation probe's outcome into the
// (ok, message) pair surfaced by setup flows.
func credentialMessage(name string, status int, err error) (bool, string) {
	switch {
	case err != nil:
		return false, fmt.Sprintf("Could not reach %s — check your internet connection", name)
	case status == http.StatusOK:
		return true, fmt.Sprintf("%s key validated successfully", name)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return false, fmt.Sprintf("%s rejected the credential (HTTP %d)", name, status)
	default:
		return false, fmt.Sprintf("%s returned an unexpected status (HTTP %d)", name, status)
	}
}

// ─── Shared normalisation helpers ────────────────────────────────────────────

// parseTime parses an RFC 3339-ish timestamp, returning nil for anything
// unparseable. Sources disagree on fractional seconds; a bad date must
// never sink the whole record.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// inferExperience classifies a job title into an experience level, or ""
// when the title gives no signal.
func inferExperience(title string) string {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "senior") || strings.Contains(t, "sr."):
		return "senior"
	case strings.Contains(t, "junior") || strings.Contains(t, "jr.") ||
		strings.Contains(t, "entry level") || strings.Contains(t, "entry-level") ||
		strings.Contains(t, "internship"):
		return "entry"
	}
	return ""
}

func floatPtr(v float64) *float64 { return &v }
