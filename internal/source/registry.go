package source

import (
	"log/slog"
	"sort"
)

// Registry constructs adapters from the closed set of known sources.
// Unknown identifiers are skipped with a log line, never an error: a stale
// profile must not break a whole search run.
type Registry struct {
	creds   Credentials
	country string // Adzuna market code, e.g. "us"
}

func NewRegistry(creds Credentials, country string) *Registry {
	if country == "" {
		country = "us"
	}
	return &Registry{creds: creds, country: country}
}

// builders is the closed set of constructable sources. Adding a source
// means adding an entry here and nothing else.
var builders = map[string]func(r *Registry) Adapter{
	"usajobs": func(r *Registry) Adapter {
		return NewUSAJobs(r.creds["usajobs"], r.creds["usajobs_email"])
	},
	"adzuna": func(r *Registry) Adapter {
		return NewAdzuna(r.creds["adzuna"], r.country)
	},
	"indeed": func(r *Registry) Adapter {
		return NewJSearch("indeed", "Indeed", r.creds["indeed"])
	},
	"linkedin": func(r *Registry) Adapter {
		return NewJSearch("linkedin", "LinkedIn", r.creds["linkedin"])
	},
	"glassdoor": func(r *Registry) Adapter {
		return NewJSearch("glassdoor", "Glassdoor", r.creds["glassdoor"])
	},
	"remotefeed": func(r *Registry) Adapter {
		return NewRemoteFeed()
	},
}

// credentialed reports whether the source has what it needs to run.
// remotefeed is keyless; usajobs needs both the key and the registered
// email that goes in the User-Agent header.
func (r *Registry) credentialed(id string) bool {
	switch id {
	case "remotefeed":
		return true
	case "usajobs":
		return r.creds["usajobs"] != "" && r.creds["usajobs_email"] != ""
	default:
		return r.creds[id] != ""
	}
}

// Known lists every source identifier the registry can build, sorted.
func Known() []string {
	ids := make([]string, 0, len(builders))
	for id := range builders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve builds adapters for the requested source identifiers. USAJobs is
// always included when its key is configured, whether requested or not.
// Unknown and uncredentialed sources are logged and skipped.
func (r *Registry) Resolve(enabled []string) []Adapter {
	want := make(map[string]bool, len(enabled)+1)
	for _, id := range enabled {
		if _, ok := builders[id]; !ok {
			slog.Warn("unknown source requested, skipping", "source", id)
			continue
		}
		want[id] = true
	}
	if r.credentialed("usajobs") {
		want["usajobs"] = true
	}

	// Deterministic order keeps logs and progress output stable.
	ids := make([]string, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var adapters []Adapter
	for _, id := range ids {
		if !r.credentialed(id) {
			slog.Warn("source has no credential configured, skipping", "source", id)
			continue
		}
		adapters = append(adapters, builders[id](r))
	}
	return adapters
}

// Available builds every source the current credentials allow.
func (r *Registry) Available() []Adapter {
	return r.Resolve(Known())
}
