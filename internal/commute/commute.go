// Package commute estimates driving times from the user's home to listing
// locations through the OpenRouteService matrix API.
//
// Estimates are cached per coordinate pair for the lifetime of the home
// location; moving home drops the cache. Listings without coordinates are
// skipped, never failed.
package commute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/mmcloughlin/geohash"

	"github.com/Irehund/jobtrack/internal/geo"
	"github.com/Irehund/jobtrack/internal/model"
)

const (
	orsMatrixURL = "https://api.openrouteservice.org/v2/matrix/driving-car"

	// Geohash cells at this precision are ~150m across, close enough to
	// treat as the same start and end point for a drive-time estimate.
	cachePrecision = 7

	httpTimeout = 15 * time.Second
)

// Coord is a latitude/longitude pair.
type Coord struct {
	Lat float64
	Lon float64
}

// Estimator owns the commute cache and the OpenRouteService client. A nil
// cached value means the API reported the destination unroutable; those
// are remembered too so they are not re-asked.
type Estimator struct {
	apiKey  string
	client  *http.Client
	baseURL string

	mu    sync.Mutex
	home  Coord
	cache map[string]*int
}

func New(apiKey string, home Coord) *Estimator {
	return &Estimator{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: httpTimeout},
		baseURL: orsMatrixURL,
		home:    home,
		cache:   make(map[string]*int),
	}
}

// SetHome moves the origin and invalidates every cached duration.
func (e *Estimator) SetHome(home Coord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.home = home
	e.cache = make(map[string]*int)
}

// EstimateBatch fills CommuteMinutes and DistanceMiles on every listing
// that has coordinates. Cache misses are resolved in a single matrix call.
// The listings slice is modified in place.
func (e *Estimator) EstimateBatch(ctx context.Context, listings []model.Listing) error {
	e.mu.Lock()
	home := e.home

	var missIdx []int
	for i := range listings {
		l := &listings[i]
		if !l.HasCoordinates() {
			continue
		}
		d := geo.DistanceMiles(home.Lat, home.Lon, *l.Latitude, *l.Longitude)
		l.DistanceMiles = &d

		if minutes, ok := e.cache[e.key(home, *l.Latitude, *l.Longitude)]; ok {
			l.CommuteMinutes = minutes
		} else {
			missIdx = append(missIdx, i)
		}
	}
	e.mu.Unlock()

	if len(missIdx) == 0 {
		return nil
	}
	if e.apiKey == "" {
		return fmt.Errorf("openrouteservice credential not configured")
	}

	dests := make([]Coord, len(missIdx))
	for n, i := range missIdx {
		dests[n] = Coord{Lat: *listings[i].Latitude, Lon: *listings[i].Longitude}
	}

	durations, err := e.matrix(ctx, home, dests)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for n, i := range missIdx {
		minutes := toMinutes(durations[n])
		listings[i].CommuteMinutes = minutes
		// Results for a home that changed mid-flight would be keyed under
		// the old origin; drop them instead.
		if e.home == home {
			e.cache[e.key(home, dests[n].Lat, dests[n].Lon)] = minutes
		}
	}
	return nil
}

// Estimate resolves one destination. Returns nil minutes when the API
// reports the destination unroutable.
func (e *Estimator) Estimate(ctx context.Context, lat, lon float64) (*int, error) {
	e.mu.Lock()
	home := e.home
	if minutes, ok := e.cache[e.key(home, lat, lon)]; ok {
		e.mu.Unlock()
		return minutes, nil
	}
	e.mu.Unlock()

	if e.apiKey == "" {
		return nil, fmt.Errorf("openrouteservice credential not configured")
	}

	durations, err := e.matrix(ctx, home, []Coord{{Lat: lat, Lon: lon}})
	if err != nil {
		return nil, err
	}

	minutes := toMinutes(durations[0])
	e.mu.Lock()
	if e.home == home {
		e.cache[e.key(home, lat, lon)] = minutes
	}
	e.mu.Unlock()
	return minutes, nil
}

// key builds the cache key for an origin/destination pair.
func (e *Estimator) key(home Coord, lat, lon float64) string {
	return geohash.Encode(home.Lat, home.Lon)[:cachePrecision] +
		"|" + geohash.Encode(lat, lon)[:cachePrecision]
}

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"` // [lon, lat] pairs, origin first
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
}

type matrixResponse struct {
	Durations [][]*float64 `json:"durations"` // seconds; null when unroutable
}

// matrix asks OpenRouteService for driving durations from home to every
// destination, in one request.
func (e *Estimator) matrix(ctx context.Context, home Coord, dests []Coord) ([]*float64, error) {
	mreq := matrixRequest{
		Locations: make([][]float64, 0, len(dests)+1),
		Sources:   []int{0},
		Metrics:   []string{"duration"},
	}
	mreq.Locations = append(mreq.Locations, []float64{home.Lon, home.Lat})
	for i, d := range dests {
		mreq.Locations = append(mreq.Locations, []float64{d.Lon, d.Lat})
		mreq.Destinations = append(mreq.Destinations, i+1)
	}

	payload, err := json.Marshal(mreq)
	if err != nil {
		return nil, fmt.Errorf("encode matrix request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build matrix request: %w", err)
	}
	req.Header.Set("Authorization", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouteservice: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouteservice: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouteservice: HTTP %d", resp.StatusCode)
	}

	var mresp matrixResponse
	if err := json.Unmarshal(body, &mresp); err != nil {
		return nil, fmt.Errorf("openrouteservice: decode response: %w", err)
	}
	if len(mresp.Durations) == 0 || len(mresp.Durations[0]) != len(dests) {
		return nil, fmt.Errorf("openrouteservice: matrix shape mismatch")
	}
	return mresp.Durations[0], nil
}

func toMinutes(seconds *float64) *int {
	if seconds == nil {
		return nil
	}
	m := int(math.Round(*seconds / 60))
	return &m
}
