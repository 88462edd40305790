package model

import "fmt"

// WorkType is the user's work-arrangement preference in a search.
type WorkType string

const (
	WorkAny    WorkType = "any"
	WorkRemote WorkType = "remote"
	WorkHybrid WorkType = "hybrid"
	WorkOnsite WorkType = "onsite"
)

// ParseWorkType converts a raw string to a WorkType, returning an error for
// unknown values.
func ParseWorkType(s string) (WorkType, error) {
	wt := WorkType(s)
	switch wt {
	case WorkAny, WorkRemote, WorkHybrid, WorkOnsite:
		return wt, nil
	}
	return "", fmt.Errorf("unknown work type %q", s)
}

// Experience is the experience-level preference in a search. Listings carry
// a plain string (possibly empty = unclassified); Experience constrains what
// the user may ask for.
type Experience string

const (
	ExperienceAny    Experience = "any"
	ExperienceEntry  Experience = "entry"
	ExperienceMid    Experience = "mid"
	ExperienceSenior Experience = "senior"
)

// ParseExperience converts a raw string to an Experience, returning an error
// for unknown values.
func ParseExperience(s string) (Experience, error) {
	e := Experience(s)
	switch e {
	case ExperienceAny, ExperienceEntry, ExperienceMid, ExperienceSenior:
		return e, nil
	}
	return "", fmt.Errorf("unknown experience level %q", s)
}
