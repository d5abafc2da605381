// Package store persists scrape runs together with their extracted records
// and geocoded features.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/inspection-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for scrape runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Results
	SaveRecords(ctx context.Context, runID string, records []model.Record) error
	ListRecords(ctx context.Context, runID string) ([]model.Record, error)
	SaveFeatures(ctx context.Context, runID string, features []*model.Feature) error
	ListFeatures(ctx context.Context, runID string) ([]*model.Feature, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open creates the store for driver and applies its migrations.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case DriverSQLite, "":
		st, err = NewSQLite(dsn)
	case DriverPostgres:
		st, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func notFound(runID string) error {
	return eris.Wrapf(ErrNotFound, "run %s", runID)
}
