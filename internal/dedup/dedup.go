// Package dedup collapses listings that describe the same real-world job
// across sources, keeping the most complete record of each.
package dedup

import (
	"strings"
	"unicode"

	"github.com/Irehund/jobtrack/internal/model"
)

// Key returns the identity used to decide whether two listings denote the
// same job: title, company and state, case-folded, punctuation stripped and
// whitespace collapsed. Source and ID are deliberately ignored so the same
// role found on two boards collapses to one listing.
func Key(l model.Listing) string {
	return normalize(l.Title) + "|" + normalize(l.Company) + "|" + normalize(l.State)
}

// normalize lowercases s, drops everything except letters, digits and
// spaces, and collapses runs of whitespace to a single space.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// QualityScore rates how complete a listing is. Duplicate keys keep the
// higher-scoring record. A non-empty description outweighs both salary
// bounds combined.
func QualityScore(l model.Listing) int {
	score := 0
	if strings.TrimSpace(l.Description) != "" {
		score += 5
	}
	if l.SalaryMin != nil {
		score += 2
	}
	if l.SalaryMax != nil {
		score += 2
	}
	if l.ClosingDate != nil {
		score++
	}
	if l.Latitude != nil {
		score++
	}
	return score
}

// Merge returns one listing per Key. The first listing seen for a key holds
// its slot; a later duplicate replaces it only with a strictly higher
// QualityScore, so ties keep the first-seen record. Slot order (first
// appearance of each key) is preserved. Idempotent: Merge(Merge(xs)) is
// Merge(xs).
func Merge(in []model.Listing) []model.Listing {
	out := make([]model.Listing, 0, len(in))
	slots := make(map[string]int, len(in))

	for _, l := range in {
		k := Key(l)
		at, seen := slots[k]
		if !seen {
			slots[k] = len(out)
			out = append(out, l)
			continue
		}
		if QualityScore(l) > QualityScore(out[at]) {
			out[at] = l
		}
	}

	return out
}
