package ports

import (
	"context"

	"powersim/domain/core"
	"powersim/domain/power"
)

// RunRepository persists completed sweeps.
type RunRepository interface {
	Save(ctx context.Context, run *power.Run) error
	// Get returns core.ErrRunNotFound (wrapped) for unknown ids.
	Get(ctx context.Context, id core.RunID) (*power.Run, error)
	List(ctx context.Context, filters RunFilters) ([]power.RunSummary, error)
}

// RunFilters for listing runs, newest first
type RunFilters struct {
	Scenario string
	Limit    int
	Offset   int
}
