// Package monitoring watches stored scrape runs and raises alerts when the
// scraper stops producing usable data.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/inspection-cli/internal/model"
	"github.com/sells-group/inspection-cli/internal/store"
)

// RunLister is the subset of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// MetricsSnapshot holds a point-in-time view of scrape health.
type MetricsSnapshot struct {
	// Runs created within the lookback window.
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsRunning  int     `json:"runs_running"`
	FailRate     float64 `json:"fail_rate"`

	// Complete runs that extracted no listings.
	EmptyRuns int `json:"empty_runs"`

	Records  int `json:"records"`
	Features int `json:"features"`

	// LastCompleteAt is the creation time of the newest complete run,
	// regardless of the window. Zero when none exists.
	LastCompleteAt time.Time `json:"last_complete_at,omitzero"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// collectLimit bounds how many runs one snapshot reads.
const collectLimit = 10000

// Collector gathers metrics from the run store.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	// Runs are returned newest first.
	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: collectLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	for _, r := range runs {
		if r.Status == model.RunStatusComplete && snap.LastCompleteAt.IsZero() {
			snap.LastCompleteAt = r.CreatedAt
		}
		if r.CreatedAt.Before(cutoff) {
			continue
		}

		snap.RunsTotal++
		snap.Records += r.Records
		snap.Features += r.Features
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
			if r.Records == 0 {
				snap.EmptyRuns++
			}
		case model.RunStatusFailed:
			snap.RunsFailed++
		default:
			snap.RunsRunning++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	return snap, nil
}
