package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"time"

	"powersim/domain/core"
	"powersim/domain/power"
	"powersim/ports"

	"golang.org/x/sync/errgroup"
)

// cancelCheckInterval is how many replicates run between context checks.
const cancelCheckInterval = 64

// PowerService estimates statistical power by simulation and sweeps it across
// sample sizes.
type PowerService struct {
	rngPort ports.RNGPort
	tests   ports.TestSelector
	runs    ports.RunRepository
	logger  *slog.Logger
	workers int
}

// Option configures a PowerService
type Option func(*PowerService)

// WithWorkers bounds how many sweep rows are simulated concurrently.
// Values below 1 mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *PowerService) {
		if n < 1 {
			n = runtime.GOMAXPROCS(0)
		}
		s.workers = n
	}
}

// WithRunRepository enables persistence of sweep runs.
func WithRunRepository(repo ports.RunRepository) Option {
	return func(s *PowerService) { s.runs = repo }
}

// WithLogger sets the service logger; the default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *PowerService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPowerService creates a power service
func NewPowerService(rngPort ports.RNGPort, tests ports.TestSelector, opts ...Option) *PowerService {
	s := &PowerService{
		rngPort: rngPort,
		tests:   tests,
		logger:  slog.New(slog.DiscardHandler),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Estimate runs params.Replicates simulated experiments at sample size
// params.N and returns the fraction whose t-test rejects at params.Alpha.
// The same params and seed always give the same estimate, and the estimate
// equals the N row of a "custom" scenario sweep under that seed.
func (s *PowerService) Estimate(ctx context.Context, params power.TrialParams, seed int64) (power.Estimate, error) {
	if err := params.Validate(); err != nil {
		return power.Estimate{}, err
	}
	return s.estimateRow(ctx, params, power.ScenarioCustom, seed)
}

// Sweep estimates power for every N in r, one independent RNG stream per
// row. The returned curve is ordered by N and does not depend on the worker
// count.
func (s *PowerService) Sweep(ctx context.Context, params power.TrialParams, scenario string, r power.SampleRange, seed int64) (power.Curve, error) {
	if err := params.ValidateTemplate(); err != nil {
		return power.Curve{}, err
	}
	if err := r.Validate(); err != nil {
		return power.Curve{}, err
	}
	if scenario == "" {
		scenario = power.ScenarioCustom
	}

	sizes := r.Sizes()
	points := make([]power.Estimate, len(sizes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, n := range sizes {
		g.Go(func() error {
			est, err := s.estimateRow(gctx, params.WithN(n), scenario, seed)
			if err != nil {
				return fmt.Errorf("n=%d: %w", n, err)
			}
			points[i] = est
			s.logger.Debug("sweep row", "scenario", scenario, "n", n, "power", est.Power)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return power.Curve{}, err
	}

	return power.Curve{Scenario: scenario, Points: points}, nil
}

// MinimumN returns the smallest swept N whose power reaches target, or
// core.ErrTargetNotFound when none does.
func (s *PowerService) MinimumN(curve power.Curve, target float64) (power.Estimate, error) {
	return curve.MinimumN(target)
}

// SweepRequest describes one scenario sweep with its minimum-N lookup
type SweepRequest struct {
	Scenario power.Scenario
	Params   power.TrialParams // alpha, replicates, confidence and test; means and sd come from Scenario
	Range    power.SampleRange
	Target   float64
	Seed     int64
	Save     bool
}

// RunSweep sweeps the scenario and looks up the minimum N. When the range
// never reaches the target the run is still returned (and saved if
// requested) together with an error wrapping core.ErrTargetNotFound.
func (s *PowerService) RunSweep(ctx context.Context, req SweepRequest) (*power.Run, error) {
	if err := req.Scenario.Validate(); err != nil {
		return nil, err
	}
	if err := power.ValidateTarget(req.Target); err != nil {
		return nil, err
	}

	startTime := time.Now()
	params := req.Params.WithScenario(req.Scenario)
	curve, err := s.Sweep(ctx, params, req.Scenario.Name, req.Range, req.Seed)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", req.Scenario.Name, err)
	}

	params.N = 0
	run := &power.Run{
		ID:          core.NewRunID(),
		Scenario:    req.Scenario,
		Params:      params,
		Range:       req.Range,
		Seed:        req.Seed,
		Target:      req.Target,
		Curve:       curve,
		Fingerprint: params.Fingerprint(req.Range, req.Seed),
		RuntimeMs:   time.Since(startTime).Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}

	minimum, lookupErr := curve.MinimumN(req.Target)
	if lookupErr == nil {
		n := minimum.N
		run.MinimumN = &n
		s.logger.Info("sweep complete",
			"scenario", req.Scenario.Name, "range", req.Range.String(),
			"minimum_n", n, "power", minimum.Power, "runtime_ms", run.RuntimeMs)
	} else {
		s.logger.Warn("target power not reached, widen the sample size range",
			"scenario", req.Scenario.Name, "range", req.Range.String(), "target", req.Target)
	}

	if req.Save && s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		s.logger.Debug("run saved", "run_id", run.ID, "fingerprint", run.Fingerprint.Short())
	}

	return run, lookupErr
}

// RunScenarios sweeps every scenario in order. Scenarios that never reach
// the target keep a nil MinimumN; any other failure aborts.
func (s *PowerService) RunScenarios(ctx context.Context, scenarios []power.Scenario, req SweepRequest) ([]*power.Run, error) {
	if err := power.ValidateScenarios(scenarios); err != nil {
		return nil, err
	}
	runs := make([]*power.Run, 0, len(scenarios))
	for _, scenario := range scenarios {
		req.Scenario = scenario
		run, err := s.RunSweep(ctx, req)
		if err != nil && !errors.Is(err, core.ErrTargetNotFound) {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// GetRun loads a persisted run.
func (s *PowerService) GetRun(ctx context.Context, id core.RunID) (*power.Run, error) {
	if s.runs == nil {
		return nil, core.NewNotFoundError("run", id.String())
	}
	return s.runs.Get(ctx, id)
}

// ListRuns lists persisted runs, newest first.
func (s *PowerService) ListRuns(ctx context.Context, filters ports.RunFilters) ([]power.RunSummary, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.List(ctx, filters)
}

func (s *PowerService) estimateRow(ctx context.Context, params power.TrialParams, scenario string, seed int64) (power.Estimate, error) {
	test, err := s.tests(params.Test)
	if err != nil {
		return power.Estimate{}, err
	}
	rng, err := s.rngPort.Stream(ctx, scenario, params.N, seed)
	if err != nil {
		return power.Estimate{}, fmt.Errorf("rng stream: %w", err)
	}

	rejections, err := simulate(ctx, params, rng, test)
	if err != nil {
		return power.Estimate{}, err
	}
	return power.NewEstimate(params.N, rejections, params.Replicates, params.Confidence), nil
}

// simulate draws fresh control and treatment samples for every replicate
// and counts p-values below alpha. Buffers are reused; draws never are.
func simulate(ctx context.Context, params power.TrialParams, rng *rand.Rand, test ports.TwoSampleTest) (int, error) {
	control := make([]float64, params.N)
	treatment := make([]float64, params.N)

	rejections := 0
	for i := 0; i < params.Replicates; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		for j := range control {
			control[j] = params.ControlMean + params.SD*rng.NormFloat64()
		}
		for j := range treatment {
			treatment[j] = params.TreatmentMean + params.SD*rng.NormFloat64()
		}

		res, err := test.Test(control, treatment)
		if err != nil {
			return 0, fmt.Errorf("replicate %d: %w", i, err)
		}
		if res.PValue < params.Alpha {
			rejections++
		}
	}
	return rejections, nil
}
