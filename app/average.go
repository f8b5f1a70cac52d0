package app

import (
	"context"
	"fmt"

	"powersim/domain/core"
	"powersim/domain/power"

	"github.com/montanaflynn/stats"
)

// AveragedPoint is the power at one N pooled over several seeds.
type AveragedPoint struct {
	N         int     `json:"n"`
	MeanPower float64 `json:"mean_power"`
	SDPower   float64 `json:"sd_power"`
	MinPower  float64 `json:"min_power"`
	MaxPower  float64 `json:"max_power"`
}

// AveragedCurve summarises repeated sweeps of the same parameters.
type AveragedCurve struct {
	Seeds  []int64         `json:"seeds"`
	Points []AveragedPoint `json:"points"`
}

// Decreases counts adjacent rows where mean power drops by more than
// tolerance. Power is non-decreasing in N in expectation, so on a
// well-averaged curve this should be zero for a small tolerance.
func (c AveragedCurve) Decreases(tolerance float64) int {
	count := 0
	for i := 1; i < len(c.Points); i++ {
		if c.Points[i].MeanPower < c.Points[i-1].MeanPower-tolerance {
			count++
		}
	}
	return count
}

// MeanCurve returns the averaged powers as a plain curve, for minimum-N
// lookup and plotting.
func (c AveragedCurve) MeanCurve(scenario string) power.Curve {
	points := make([]power.Estimate, len(c.Points))
	for i, p := range c.Points {
		points[i] = power.Estimate{N: p.N, Power: p.MeanPower}
	}
	return power.Curve{Scenario: scenario, Points: points}
}

// AverageSweep runs the same sweep under each seed and pools the power at
// every N.
func (s *PowerService) AverageSweep(ctx context.Context, params power.TrialParams, r power.SampleRange, seeds []int64) (AveragedCurve, error) {
	if len(seeds) == 0 {
		return AveragedCurve{}, core.NewInvalidParameterError("seeds", "at least one seed is required")
	}

	byN := make([][]float64, len(r.Sizes()))
	for _, seed := range seeds {
		curve, err := s.Sweep(ctx, params, power.ScenarioCustom, r, seed)
		if err != nil {
			return AveragedCurve{}, fmt.Errorf("seed %d: %w", seed, err)
		}
		for i, p := range curve.Points {
			byN[i] = append(byN[i], p.Power)
		}
	}

	sizes := r.Sizes()
	out := AveragedCurve{Seeds: seeds, Points: make([]AveragedPoint, len(sizes))}
	for i, n := range sizes {
		data := stats.Float64Data(byN[i])
		mean, err := data.Mean()
		if err != nil {
			return AveragedCurve{}, fmt.Errorf("n=%d mean: %w", n, err)
		}
		sd := 0.0
		if len(data) > 1 {
			if sd, err = data.StandardDeviationSample(); err != nil {
				return AveragedCurve{}, fmt.Errorf("n=%d sd: %w", n, err)
			}
		}
		lo, _ := data.Min()
		hi, _ := data.Max()
		out.Points[i] = AveragedPoint{N: n, MeanPower: mean, SDPower: sd, MinPower: lo, MaxPower: hi}
	}

	s.logger.Debug("averaged sweep complete", "seeds", len(seeds), "rows", len(sizes))
	return out, nil
}
