package geo_test

import (
	"testing"

	"github.com/Irehund/jobtrack/internal/geo"
)

// ── DistanceMiles ──────────────────────────────────────────────────────────

func TestDistanceMiles_DallasToForney(t *testing.T) {
	// Downtown Dallas to downtown Forney is roughly 19 miles straight-line.
	got := geo.DistanceMiles(32.7767, -96.7970, 32.7459, -96.4685)
	if got < 18 || got > 21 {
		t.Errorf("DistanceMiles(Dallas, Forney) = %.2f, want roughly 19", got)
	}
}

func TestDistanceMiles_DallasToHouston(t *testing.T) {
	got := geo.DistanceMiles(32.7767, -96.7970, 29.7604, -95.3698)
	if got < 215 || got > 235 {
		t.Errorf("DistanceMiles(Dallas, Houston) = %.2f, want roughly 225", got)
	}
}

func TestDistanceMiles_SamePoint(t *testing.T) {
	got := geo.DistanceMiles(32.7767, -96.7970, 32.7767, -96.7970)
	if got > 0.001 {
		t.Errorf("DistanceMiles(p, p) = %v, want 0", got)
	}
}

func TestDistanceMiles_Symmetric(t *testing.T) {
	ab := geo.DistanceMiles(32.7767, -96.7970, 29.7604, -95.3698)
	ba := geo.DistanceMiles(29.7604, -95.3698, 32.7767, -96.7970)
	if diff := ab - ba; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("DistanceMiles is not symmetric: %v vs %v", ab, ba)
	}
}

func TestDistanceMiles_AcrossPrimeMeridian(t *testing.T) {
	// London to Paris, roughly 213 miles.
	got := geo.DistanceMiles(51.5074, -0.1278, 48.8566, 2.3522)
	if got < 205 || got > 225 {
		t.Errorf("DistanceMiles(London, Paris) = %.2f, want roughly 213", got)
	}
}
