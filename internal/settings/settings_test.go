package settings

import (
	"errors"
	"testing"

	"github.com/Irehund/jobtrack/internal/model"
)

func f(v float64) *float64 { return &v }

// ── Profile conversions ────────────────────────────────────────────────────

func TestProfileCriteria(t *testing.T) {
	p := Profile{
		Name:        "SOC hunt",
		Keywords:    []string{"soc analyst", "detection"},
		Location:    "Dallas, TX",
		RadiusMiles: 30,
	}
	c := p.Criteria()
	if len(c.Keywords) != 2 || c.Keywords[0] != "soc analyst" {
		t.Errorf("Criteria keywords = %v, want the profile's", c.Keywords)
	}
	if c.Location != "Dallas, TX" {
		t.Errorf("Criteria location = %q, want %q", c.Location, "Dallas, TX")
	}
	if c.RadiusMiles != 30 {
		t.Errorf("Criteria radius = %d, want 30", c.RadiusMiles)
	}
}

func TestProfileFilterConfig(t *testing.T) {
	p := Profile{
		Name:        "remote senior",
		Keywords:    []string{"platform"},
		RadiusMiles: 25,
		WorkType:    "remote",
		Experience:  "senior",
		HomeLat:     f(32.7767),
		HomeLon:     f(-96.7970),
	}
	cfg := p.FilterConfig()
	if cfg.WorkType != model.WorkRemote {
		t.Errorf("FilterConfig work type = %q, want remote", cfg.WorkType)
	}
	if cfg.Experience != model.ExperienceSenior {
		t.Errorf("FilterConfig experience = %q, want senior", cfg.Experience)
	}
	if cfg.RadiusMiles != 25.0 {
		t.Errorf("FilterConfig radius = %v, want 25.0", cfg.RadiusMiles)
	}
	if cfg.HomeLat == nil || *cfg.HomeLat != 32.7767 {
		t.Errorf("FilterConfig home latitude = %v, want 32.7767", cfg.HomeLat)
	}
	if len(cfg.Keywords) != 1 || cfg.Keywords[0] != "platform" {
		t.Errorf("FilterConfig keywords = %v, want the profile's", cfg.Keywords)
	}
}

// ── validate ───────────────────────────────────────────────────────────────

func TestValidate_FillsDefaults(t *testing.T) {
	p := Profile{Name: "bare", Keywords: []string{"go"}}
	if err := p.validate(); err != nil {
		t.Fatalf("minimal profile should validate, got: %v", err)
	}
	if p.WorkType != string(model.WorkAny) {
		t.Errorf("empty work type should default to %q, got %q", model.WorkAny, p.WorkType)
	}
	if p.Experience != string(model.ExperienceAny) {
		t.Errorf("empty experience should default to %q, got %q", model.ExperienceAny, p.Experience)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		profile Profile
	}{
		{"missing name", Profile{Keywords: []string{"go"}}},
		{"no keywords", Profile{Name: "empty"}},
		{"negative radius", Profile{Name: "r", Keywords: []string{"go"}, RadiusMiles: -1}},
		{"bad work type", Profile{Name: "w", Keywords: []string{"go"}, WorkType: "office"}},
		{"bad experience", Profile{Name: "e", Keywords: []string{"go"}, Experience: "principal"}},
		{"lat without lon", Profile{Name: "h", Keywords: []string{"go"}, HomeLat: f(32.7)}},
		{"lon without lat", Profile{Name: "h", Keywords: []string{"go"}, HomeLon: f(-96.7)}},
	}
	for _, c := range cases {
		err := c.profile.validate()
		if err == nil {
			t.Errorf("%s: expected a validation error, got nil", c.name)
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: error %v is not a ValidationError", c.name, err)
		}
	}
}

func TestValidate_HomeCoordsTogether(t *testing.T) {
	p := Profile{Name: "home", Keywords: []string{"go"}, HomeLat: f(32.7), HomeLon: f(-96.7)}
	if err := p.validate(); err != nil {
		t.Errorf("profile with both home coordinates should validate, got: %v", err)
	}
}
