package commute

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Irehund/jobtrack/internal/model"
)

// matrixRecorder captures what the estimator sent to the matrix endpoint.
type matrixRecorder struct {
	hits int
	auth string
	body []byte
}

func newMatrixServer(t *testing.T, status int, respBody string) (*httptest.Server, *matrixRecorder) {
	t.Helper()
	rec := &matrixRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.hits++
		rec.auth = r.Header.Get("Authorization")
		rec.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newTestEstimator(apiKey, url string) *Estimator {
	e := New(apiKey, Coord{Lat: 32.7767, Lon: -96.7970}) // Dallas
	e.baseURL = url
	return e
}

func coordListing(id string, lat, lon float64) model.Listing {
	return model.Listing{ID: id, Title: "SOC Analyst", Company: "Acme", Latitude: &lat, Longitude: &lon}
}

// ── EstimateBatch ──────────────────────────────────────────────────────────

func TestEstimateBatch_FillsCommuteAndDistance(t *testing.T) {
	srv, rec := newMatrixServer(t, http.StatusOK, `{"durations": [[1200, null]]}`)
	e := newTestEstimator("test-key", srv.URL)

	listings := []model.Listing{
		coordListing("a", 32.7459, -96.4685), // Forney, ~19 miles out
		coordListing("b", 33.0, -96.0),       // unroutable per the fixture
		{ID: "c", Title: "Remote Role", Company: "Acme"},
	}

	if err := e.EstimateBatch(context.Background(), listings); err != nil {
		t.Fatalf("EstimateBatch returned unexpected error: %v", err)
	}
	if rec.hits != 1 {
		t.Fatalf("expected a single matrix call, got %d", rec.hits)
	}
	if rec.auth != "test-key" {
		t.Errorf("Authorization header = %q, want the API key", rec.auth)
	}

	if listings[0].CommuteMinutes == nil || *listings[0].CommuteMinutes != 20 {
		t.Errorf("listing a CommuteMinutes = %v, want 20 (1200 seconds)", listings[0].CommuteMinutes)
	}
	if listings[0].DistanceMiles == nil || *listings[0].DistanceMiles < 18 || *listings[0].DistanceMiles > 21 {
		t.Errorf("listing a DistanceMiles = %v, want roughly 19", listings[0].DistanceMiles)
	}
	if listings[1].CommuteMinutes != nil {
		t.Errorf("unroutable listing b should keep nil CommuteMinutes, got %d", *listings[1].CommuteMinutes)
	}
	if listings[1].DistanceMiles == nil {
		t.Error("listing b has coordinates, straight-line distance should still be set")
	}
	if listings[2].CommuteMinutes != nil || listings[2].DistanceMiles != nil {
		t.Error("listing c has no coordinates and should be left untouched")
	}
}

func TestEstimateBatch_RequestShape(t *testing.T) {
	srv, rec := newMatrixServer(t, http.StatusOK, `{"durations": [[1200, 2400]]}`)
	e := newTestEstimator("test-key", srv.URL)

	listings := []model.Listing{
		coordListing("a", 32.7459, -96.4685),
		coordListing("b", 29.7604, -95.3698),
	}
	if err := e.EstimateBatch(context.Background(), listings); err != nil {
		t.Fatalf("EstimateBatch returned unexpected error: %v", err)
	}

	var req struct {
		Locations    [][]float64 `json:"locations"`
		Sources      []int       `json:"sources"`
		Destinations []int       `json:"destinations"`
		Metrics      []string    `json:"metrics"`
	}
	if err := json.Unmarshal(rec.body, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}

	if len(req.Locations) != 3 {
		t.Fatalf("expected 3 locations (home + 2 destinations), got %d", len(req.Locations))
	}
	// Locations are [lon, lat], origin first.
	if req.Locations[0][0] != -96.7970 || req.Locations[0][1] != 32.7767 {
		t.Errorf("origin = %v, want [-96.7970 32.7767] in lon-lat order", req.Locations[0])
	}
	if len(req.Sources) != 1 || req.Sources[0] != 0 {
		t.Errorf("sources = %v, want [0]", req.Sources)
	}
	if len(req.Destinations) != 2 || req.Destinations[0] != 1 || req.Destinations[1] != 2 {
		t.Errorf("destinations = %v, want [1 2]", req.Destinations)
	}
	if len(req.Metrics) != 1 || req.Metrics[0] != "duration" {
		t.Errorf("metrics = %v, want [duration]", req.Metrics)
	}
}

func TestEstimateBatch_CachesResults(t *testing.T) {
	srv, rec := newMatrixServer(t, http.StatusOK, `{"durations": [[1200, null]]}`)
	e := newTestEstimator("test-key", srv.URL)

	first := []model.Listing{
		coordListing("a", 32.7459, -96.4685),
		coordListing("b", 33.0, -96.0),
	}
	if err := e.EstimateBatch(context.Background(), first); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if rec.hits != 1 {
		t.Fatalf("first batch should call the API once, got %d", rec.hits)
	}

	// Same coordinates again, fresh listing values. Both answers, including
	// the unroutable one, must come from cache.
	second := []model.Listing{
		coordListing("x", 32.7459, -96.4685),
		coordListing("y", 33.0, -96.0),
	}
	if err := e.EstimateBatch(context.Background(), second); err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if rec.hits != 1 {
		t.Errorf("second batch should be served from cache, got %d API calls", rec.hits)
	}
	if second[0].CommuteMinutes == nil || *second[0].CommuteMinutes != 20 {
		t.Errorf("cached CommuteMinutes = %v, want 20", second[0].CommuteMinutes)
	}
	if second[1].CommuteMinutes != nil {
		t.Errorf("cached unroutable destination should stay nil, got %d", *second[1].CommuteMinutes)
	}
}

func TestEstimateBatch_SetHomeInvalidatesCache(t *testing.T) {
	srv, rec := newMatrixServer(t, http.StatusOK, `{"durations": [[1200]]}`)
	e := newTestEstimator("test-key", srv.URL)

	listings := []model.Listing{coordListing("a", 32.7459, -96.4685)}
	if err := e.EstimateBatch(context.Background(), listings); err != nil {
		t.Fatalf("first batch: %v", err)
	}

	e.SetHome(Coord{Lat: 29.7604, Lon: -95.3698}) // moved to Houston

	again := []model.Listing{coordListing("a", 32.7459, -96.4685)}
	if err := e.EstimateBatch(context.Background(), again); err != nil {
		t.Fatalf("batch after SetHome: %v", err)
	}
	if rec.hits != 2 {
		t.Errorf("moving home should drop the cache, expected 2 API calls, got %d", rec.hits)
	}
}

func TestEstimateBatch_NoCoordinatesNoCall(t *testing.T) {
	srv, rec := newMatrixServer(t, http.StatusOK, `{"durations": [[600]]}`)
	// No API key either: with nothing to resolve, none is needed.
	e := newTestEstimator("", srv.URL)

	listings := []model.Listing{
		{ID: "a", Title: "Remote Role", Company: "Acme"},
		{ID: "b", Title: "Another Remote Role", Company: "Globex"},
	}
	if err := e.EstimateBatch(context.Background(), listings); err != nil {
		t.Fatalf("EstimateBatch returned unexpected error: %v", err)
	}
	if rec.hits != 0 {
		t.Errorf("no listing has coordinates, expected 0 API calls, got %d", rec.hits)
	}
}

func TestEstimateBatch_MissingCredential(t *testing.T) {
	srv, rec := newMatrixServer(t, http.StatusOK, `{"durations": [[600]]}`)
	e := newTestEstimator("", srv.URL)

	listings := []model.Listing{coordListing("a", 32.7459, -96.4685)}
	err := e.EstimateBatch(context.Background(), listings)
	if err == nil {
		t.Fatal("expected an error when a lookup is needed without a credential")
	}
	if !strings.Contains(err.Error(), "credential") {
		t.Errorf("error %q should mention the missing credential", err)
	}
	if rec.hits != 0 {
		t.Errorf("expected 0 API calls without a credential, got %d", rec.hits)
	}
}

func TestEstimateBatch_ServerError(t *testing.T) {
	srv, _ := newMatrixServer(t, http.StatusBadGateway, `{"error": "upstream"}`)
	e := newTestEstimator("test-key", srv.URL)

	listings := []model.Listing{coordListing("a", 32.7459, -96.4685)}
	err := e.EstimateBatch(context.Background(), listings)
	if err == nil {
		t.Fatal("expected an error on HTTP 502")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error %q should carry the status code", err)
	}
}

func TestEstimateBatch_ShapeMismatch(t *testing.T) {
	// One duration for two destinations.
	srv, _ := newMatrixServer(t, http.StatusOK, `{"durations": [[1200]]}`)
	e := newTestEstimator("test-key", srv.URL)

	listings := []model.Listing{
		coordListing("a", 32.7459, -96.4685),
		coordListing("b", 29.7604, -95.3698),
	}
	err := e.EstimateBatch(context.Background(), listings)
	if err == nil {
		t.Fatal("expected an error when the matrix shape does not match")
	}
	if !strings.Contains(err.Error(), "shape") {
		t.Errorf("error %q should mention the shape mismatch", err)
	}
}

// ── Estimate ───────────────────────────────────────────────────────────────

func TestEstimate_SingleDestination(t *testing.T) {
	srv, rec := newMatrixServer(t, http.StatusOK, `{"durations": [[600]]}`)
	e := newTestEstimator("test-key", srv.URL)

	minutes, err := e.Estimate(context.Background(), 32.7459, -96.4685)
	if err != nil {
		t.Fatalf("Estimate returned unexpected error: %v", err)
	}
	if minutes == nil || *minutes != 10 {
		t.Fatalf("Estimate = %v, want 10 minutes (600 seconds)", minutes)
	}

	// Second ask for the same destination is a cache hit.
	again, err := e.Estimate(context.Background(), 32.7459, -96.4685)
	if err != nil {
		t.Fatalf("cached Estimate returned unexpected error: %v", err)
	}
	if again == nil || *again != 10 {
		t.Fatalf("cached Estimate = %v, want 10", again)
	}
	if rec.hits != 1 {
		t.Errorf("expected 1 API call across both lookups, got %d", rec.hits)
	}
}

func TestEstimate_MissingCredential(t *testing.T) {
	srv, _ := newMatrixServer(t, http.StatusOK, `{"durations": [[600]]}`)
	e := newTestEstimator("", srv.URL)

	if _, err := e.Estimate(context.Background(), 32.7459, -96.4685); err == nil {
		t.Fatal("expected an error when no credential is configured")
	}
}

// ── toMinutes ──────────────────────────────────────────────────────────────

func TestToMinutes(t *testing.T) {
	cases := []struct {
		seconds float64
		want    int
	}{
		{600, 10},
		{89, 1},  // rounds down
		{90, 2},  // half rounds away from zero
		{1200, 20},
		{30, 1},
	}
	for _, c := range cases {
		got := toMinutes(&c.seconds)
		if got == nil || *got != c.want {
			t.Errorf("toMinutes(%v) = %v, want %d", c.seconds, got, c.want)
		}
	}
	if toMinutes(nil) != nil {
		t.Error("toMinutes(nil) should stay nil for unroutable destinations")
	}
}
