package testkit

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"powersim/adapters/rng"
	"powersim/adapters/stats/ttest"
	"powersim/app"
	"powersim/domain/core"
	"powersim/domain/power"
	"powersim/ports"
)

// TestKit wires a PowerService with deterministic adapters and in-memory storage
type TestKit struct {
	Runs *InMemoryRunRepository
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{Runs: NewInMemoryRunRepository()}
}

// RNGAdapter returns the seeded RNG adapter used in production
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return rng.NewSeededAdapter()
}

// PowerService returns a service backed by the kit's repository
func (t *TestKit) PowerService(opts ...app.Option) *app.PowerService {
	base := []app.Option{
		app.WithRunRepository(t.Runs),
		app.WithLogger(slog.New(slog.DiscardHandler)),
	}
	return app.NewPowerService(t.RNGAdapter(), ttest.New, append(base, opts...)...)
}

// Params returns valid parameters for the given effect, sized for fast tests.
func Params(controlMean, treatmentMean, sd float64, n, replicates int) power.TrialParams {
	p := power.DefaultParams()
	p.ControlMean = controlMean
	p.TreatmentMean = treatmentMean
	p.SD = sd
	p.N = n
	p.Replicates = replicates
	return p
}

// SampleRun builds a finished run with a known crossing at N=21.
func SampleRun(scenario string) *power.Run {
	curve := power.CurveFromTable(scenario, map[int]float64{10: 0.5, 20: 0.79, 21: 0.81, 30: 0.95})
	for i := range curve.Points {
		curve.Points[i] = power.NewEstimate(curve.Points[i].N, int(curve.Points[i].Power*1000+0.5), 1000, 0.95)
	}
	params := Params(10, 12, 3, 0, 1000)
	r := power.SampleRange{Min: 10, Max: 30, Step: 1}
	n := 21
	return &power.Run{
		ID:          core.NewRunID(),
		Scenario:    power.Scenario{Name: scenario, ControlMean: 10, TreatmentMean: 12, SD: 3},
		Params:      params,
		Range:       r,
		Seed:        7,
		Target:      0.8,
		Curve:       curve,
		MinimumN:    &n,
		Fingerprint: params.Fingerprint(r, 7),
	}
}

// InMemoryRunRepository implements RunRepository with in-memory storage
type InMemoryRunRepository struct {
	runs map[core.RunID]*power.Run
	mu   sync.RWMutex
}

var _ ports.RunRepository = (*InMemoryRunRepository)(nil)

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{runs: make(map[core.RunID]*power.Run)}
}

func (r *InMemoryRunRepository) Save(ctx context.Context, run *power.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *run
	r.runs[run.ID] = &stored
	return nil
}

func (r *InMemoryRunRepository) Get(ctx context.Context, id core.RunID) (*power.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, core.NewNotFoundError("run", id.String())
	}
	stored := *run
	return &stored, nil
}

func (r *InMemoryRunRepository) List(ctx context.Context, filters ports.RunFilters) ([]power.RunSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]power.RunSummary, 0, len(r.runs))
	for _, run := range r.runs {
		if filters.Scenario != "" && run.Scenario.Name != filters.Scenario {
			continue
		}
		out = append(out, power.RunSummary{
			ID:          run.ID,
			Scenario:    run.Scenario.Name,
			Target:      run.Target,
			MinimumN:    run.MinimumN,
			Fingerprint: run.Fingerprint,
			CreatedAt:   run.CreatedAt,
		})
	}
	// v7 ids sort by creation time
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return []power.RunSummary{}, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(out) {
		out = out[:filters.Limit]
	}
	return out, nil
}

// Len returns the number of stored runs
func (r *InMemoryRunRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}
