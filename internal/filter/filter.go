// Package filter narrows a merged listing set to the user's search criteria.
//
// Stages run in a fixed order: radius, work type, experience level,
// keywords. Every stage fails open: a listing is never dropped because an
// optional field is missing, and an unrecognised work-type value passes
// everything through. The radius stage drops listings with coordinates
// outside the circle but still passes listings with no coordinates at all.
package filter

import (
	"strings"

	"github.com/Irehund/jobtrack/internal/geo"
	"github.com/Irehund/jobtrack/internal/model"
)

// Config carries the filter criteria for one search.
type Config struct {
	HomeLat     *float64
	HomeLon     *float64
	RadiusMiles float64
	WorkType    model.WorkType
	Experience  model.Experience
	Keywords    []string
}

// Apply runs all stages over in and returns the survivors. The radius stage
// only runs when the home coordinates are known.
func Apply(in []model.Listing, cfg Config) []model.Listing {
	out := in
	if cfg.HomeLat != nil && cfg.HomeLon != nil {
		out = ByRadius(out, *cfg.HomeLat, *cfg.HomeLon, cfg.RadiusMiles)
	}
	out = ByWorkType(out, cfg.WorkType)
	out = ByExperience(out, cfg.Experience)
	out = ByKeywords(out, cfg.Keywords)
	return out
}

// ByRadius keeps listings within radiusMiles of (homeLat, homeLon), plus
// every listing that has no coordinates.
func ByRadius(in []model.Listing, homeLat, homeLon, radiusMiles float64) []model.Listing {
	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		if !l.HasCoordinates() {
			out = append(out, l)
			continue
		}
		if geo.DistanceMiles(homeLat, homeLon, *l.Latitude, *l.Longitude) <= radiusMiles {
			out = append(out, l)
		}
	}
	return out
}

// ByWorkType keeps listings matching the requested arrangement. "any" and
// unrecognised values pass everything through; "onsite" keeps listings with
// neither the remote nor the hybrid flag set.
func ByWorkType(in []model.Listing, wt model.WorkType) []model.Listing {
	var keep func(model.Listing) bool
	switch wt {
	case model.WorkRemote:
		keep = func(l model.Listing) bool { return l.IsRemote }
	case model.WorkHybrid:
		keep = func(l model.Listing) bool { return l.IsHybrid }
	case model.WorkOnsite:
		keep = func(l model.Listing) bool { return !l.IsRemote && !l.IsHybrid }
	default:
		return in
	}

	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// ByExperience keeps listings whose level matches the requested one.
// Unclassified listings (empty ExperienceLevel) always pass; "any" passes
// everything through.
func ByExperience(in []model.Listing, level model.Experience) []model.Listing {
	if level == "" || level == model.ExperienceAny {
		return in
	}

	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		if l.ExperienceLevel == "" || l.ExperienceLevel == string(level) {
			out = append(out, l)
		}
	}
	return out
}

// ByKeywords keeps listings whose title or description contains any of the
// keywords, case-insensitively. A nil or all-blank keyword list passes
// everything through.
func ByKeywords(in []model.Listing, keywords []string) []model.Listing {
	terms := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			terms = append(terms, k)
		}
	}
	if len(terms) == 0 {
		return in
	}

	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		haystack := strings.ToLower(l.Title + " " + l.Description)
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				out = append(out, l)
				break
			}
		}
	}
	return out
}
