package power

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyticPower(t *testing.T) {
	p := validParams()
	p.ControlMean, p.TreatmentMean, p.SD = 0, 0.5, 1

	// Exact noncentral-t power is 0.478 at n=30 and 0.697 at n=50, d=0.5.
	p.N = 30
	assert.InDelta(t, 0.478, AnalyticPower(p), 0.01)
	p.N = 50
	assert.InDelta(t, 0.697, AnalyticPower(p), 0.01)

	p.TreatmentMean = 0
	assert.InDelta(t, p.Alpha, AnalyticPower(p), 1e-6, "zero effect gives the false positive rate")

	p.N = 1
	assert.True(t, math.IsNaN(AnalyticPower(p)))
}

func TestAnalyticPowerIsSymmetricInEffectSign(t *testing.T) {
	up := validParams()
	down := up
	down.ControlMean, down.TreatmentMean = up.TreatmentMean, up.ControlMean
	assert.InDelta(t, AnalyticPower(up), AnalyticPower(down), 1e-12)
}

func TestAnalyticSampleSize(t *testing.T) {
	p := validParams()
	p.ControlMean, p.TreatmentMean, p.SD = 0, 0.5, 1

	// 2(1.96+0.8416)²/0.25 = 62.8
	assert.Equal(t, 63, AnalyticSampleSize(p, 0.8))

	p.TreatmentMean = 5
	assert.Equal(t, 2, AnalyticSampleSize(p, 0.8))

	p.TreatmentMean = 0
	assert.Equal(t, 0, AnalyticSampleSize(p, 0.8))
	p.TreatmentMean = 1
	assert.Equal(t, 0, AnalyticSampleSize(p, 1))
}
