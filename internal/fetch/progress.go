package fetch

import "fmt"

// Progress is a point-in-time snapshot of an orchestrated fetch, delivered
// through the ProgressFunc callback. Callbacks receive copies; the shared
// state behind them is mutex-guarded inside the orchestrator.
type Progress struct {
	TotalSources     int
	CompletedSources int
	CurrentSource    string   // display name of the source most recently touched
	RetryAttempt     int      // 0 when not retrying, else the attempt number in flight
	FailedSources    []string // identifiers of sources abandoned so far
	TotalResults     int
}

// ProgressFunc receives progress snapshots during a fetch. It is called
// from worker goroutines, one call at a time, and must not block for long.
type ProgressFunc func(Progress)

// PercentComplete reports completion as 0-100. An empty run is complete.
func (p Progress) PercentComplete() float64 {
	if p.TotalSources == 0 {
		return 100.0
	}
	return float64(p.CompletedSources) / float64(p.TotalSources) * 100
}

// StatusMessage renders the one-line status used by progress displays.
func (p Progress) StatusMessage() string {
	if p.RetryAttempt > 0 {
		return fmt.Sprintf("Retrying %s — Attempt %d of %d", p.CurrentSource, p.RetryAttempt, MaxRetries)
	}
	if p.CurrentSource != "" {
		return fmt.Sprintf("Searching %s...", p.CurrentSource)
	}
	return "Searching..."
}

// snapshot copies the progress so a callback can hold it past the call.
func (p Progress) snapshot() Progress {
	c := p
	c.FailedSources = append([]string(nil), p.FailedSources...)
	return c
}
