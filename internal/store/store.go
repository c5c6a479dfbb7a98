// Package store records run history for the morning and afternoon flows.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsplit/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	Flow         model.Flow      `json:"flow,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// DefaultListLimit caps ListRuns when the filter sets no limit.
const DefaultListLimit = 100

// Store defines the persistence interface for run history.
type Store interface {
	CreateRun(ctx context.Context, flow model.Flow, source string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, report *model.Report) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// ErrRunNotFound is returned when a run ID matches no row.
var ErrRunNotFound = eris.New("run not found")

// runErrorOf converts a flow failure into its recorded form, keeping the
// condition code when there is one.
func runErrorOf(cause error) model.RunError {
	if ce, ok := model.AsCondition(cause); ok {
		return model.RunError{Code: string(ce.Code), Message: ce.Message}
	}
	return model.RunError{Message: cause.Error()}
}

func limitOf(f RunFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
