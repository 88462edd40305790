package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Irehund/jobtrack/internal/filter"
	"github.com/Irehund/jobtrack/internal/model"
	"github.com/Irehund/jobtrack/internal/source"
)

// stubAdapter scripts one Search outcome per attempt; attempts beyond the
// script succeed with the stub's results.
type stubAdapter struct {
	id      string
	name    string
	results []model.Listing
	errs    []error

	mu    sync.Mutex
	calls int
}

func (s *stubAdapter) ID() string   { return s.id }
func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Search(ctx context.Context, c source.Criteria) ([]model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt := s.calls
	s.calls++
	if attempt < len(s.errs) && s.errs[attempt] != nil {
		return nil, s.errs[attempt]
	}
	return s.results, nil
}

func (s *stubAdapter) ValidateCredential(ctx context.Context) (bool, string) {
	return true, ""
}

func (s *stubAdapter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestOrchestrator() *Orchestrator {
	return &Orchestrator{retryDelay: time.Millisecond}
}

func listing(id, title, company string, posted *time.Time) model.Listing {
	return model.Listing{ID: id, Source: "stub", Title: title, Company: company, DatePosted: posted}
}

func ts(day int) *time.Time {
	t := time.Date(2026, 2, day, 12, 0, 0, 0, time.UTC)
	return &t
}

// ── Fetch ──────────────────────────────────────────────────────────────────

func TestFetch_MixedOutcomes(t *testing.T) {
	transient := errors.New("connection reset")
	authErr := &source.Failure{SourceID: "locked", Message: "unexpected status", StatusCode: 401}

	healthy := &stubAdapter{
		id: "healthy", name: "Healthy Board",
		results: []model.Listing{listing("healthy_1", "SOC Analyst", "Acme", ts(14))},
	}
	flaky := &stubAdapter{
		id: "flaky", name: "Flaky Board",
		errs:    []error{transient, transient}, // succeeds on the third attempt
		results: []model.Listing{listing("flaky_1", "Detection Engineer", "Globex", ts(15))},
	}
	locked := &stubAdapter{
		id: "locked", name: "Locked Board",
		errs:    []error{authErr, authErr, authErr},
		results: []model.Listing{listing("locked_1", "Should Never Appear", "Nope", ts(16))},
	}

	var last Progress
	got := newTestOrchestrator().Fetch(context.Background(),
		source.Criteria{Keywords: []string{"soc"}},
		[]source.Adapter{healthy, flaky, locked},
		func(p Progress) { last = p },
	)

	require.Len(t, got, 2)
	assert.Equal(t, "flaky_1", got[0].ID, "newest posting sorts first")
	assert.Equal(t, "healthy_1", got[1].ID)

	assert.Equal(t, 1, healthy.callCount())
	assert.Equal(t, 3, flaky.callCount(), "two transient failures then success")
	assert.Equal(t, 1, locked.callCount(), "auth rejection must not be retried")

	assert.Equal(t, 3, last.CompletedSources, "abandoned sources still count as completed")
	assert.Equal(t, 3, last.TotalSources)
	assert.Equal(t, []string{"locked"}, last.FailedSources)
	assert.InDelta(t, 100.0, last.PercentComplete(), 0.01)
}

func TestFetch_AbandonsAfterMaxRetries(t *testing.T) {
	transient := errors.New("timeout")
	dead := &stubAdapter{
		id: "dead", name: "Dead Board",
		errs: []error{transient, transient, transient},
	}

	var last Progress
	got := newTestOrchestrator().Fetch(context.Background(),
		source.Criteria{}, []source.Adapter{dead},
		func(p Progress) { last = p },
	)

	assert.Empty(t, got)
	assert.Equal(t, MaxRetries, dead.callCount())
	assert.Equal(t, []string{"dead"}, last.FailedSources)
	assert.Equal(t, 1, last.CompletedSources)
}

func TestFetch_NoAdapters(t *testing.T) {
	called := false
	got := newTestOrchestrator().Fetch(context.Background(),
		source.Criteria{}, nil,
		func(Progress) { called = true },
	)

	require.NotNil(t, got, "empty run returns an empty slice, not nil")
	assert.Empty(t, got)
	assert.False(t, called, "no sources means no progress callbacks")
}

func TestFetch_MergesDuplicatesAcrossSources(t *testing.T) {
	bare := listing("a_1", "SOC Analyst", "Acme", ts(10))
	rich := listing("b_1", "SOC Analyst", "Acme", ts(10))
	rich.Description = "full text"

	a := &stubAdapter{id: "a", name: "A", results: []model.Listing{bare}}
	b := &stubAdapter{id: "b", name: "B", results: []model.Listing{rich}}

	got := newTestOrchestrator().Fetch(context.Background(),
		source.Criteria{}, []source.Adapter{a, b}, nil)

	require.Len(t, got, 1, "same job on two boards collapses to one")
	assert.Equal(t, "full text", got[0].Description, "richer record wins")
}

func TestFetch_SortsUndatedLast(t *testing.T) {
	a := &stubAdapter{id: "a", name: "A", results: []model.Listing{
		listing("undated", "X", "C1", nil),
		listing("old", "Y", "C2", ts(1)),
		listing("new", "Z", "C3", ts(20)),
	}}

	got := newTestOrchestrator().Fetch(context.Background(),
		source.Criteria{}, []source.Adapter{a}, nil)

	require.Len(t, got, 3)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
	assert.Equal(t, "undated", got[2].ID)
}

func TestFetch_ProgressSequence(t *testing.T) {
	flaky := &stubAdapter{
		id: "flaky", name: "Flaky Board",
		errs:    []error{errors.New("boom")},
		results: []model.Listing{listing("flaky_1", "SOC Analyst", "Acme", ts(5))},
	}

	var snaps []Progress
	newTestOrchestrator().Fetch(context.Background(),
		source.Criteria{}, []source.Adapter{flaky},
		func(p Progress) { snaps = append(snaps, p) },
	)

	// attempt 1, attempt 2 (retry), completion.
	require.Len(t, snaps, 3)

	assert.Equal(t, 0, snaps[0].RetryAttempt)
	assert.Equal(t, "Flaky Board", snaps[0].CurrentSource)
	assert.Equal(t, "Searching Flaky Board...", snaps[0].StatusMessage())

	assert.Equal(t, 2, snaps[1].RetryAttempt)
	assert.Equal(t, "Retrying Flaky Board — Attempt 2 of 3", snaps[1].StatusMessage())

	assert.Equal(t, 1, snaps[2].CompletedSources)
	assert.Equal(t, 0, snaps[2].RetryAttempt)
	assert.Equal(t, 1, snaps[2].TotalResults)
}

func TestFetchAndFilter(t *testing.T) {
	a := &stubAdapter{id: "a", name: "A", results: []model.Listing{
		{ID: "remote", Source: "a", Title: "Remote SOC Analyst", Company: "Acme", IsRemote: true},
		{ID: "onsite", Source: "a", Title: "SOC Analyst", Company: "Globex"},
	}}

	got := newTestOrchestrator().FetchAndFilter(context.Background(),
		source.Criteria{},
		filter.Config{WorkType: model.WorkRemote, Experience: model.ExperienceAny},
		[]source.Adapter{a}, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "remote", got[0].ID)
}
