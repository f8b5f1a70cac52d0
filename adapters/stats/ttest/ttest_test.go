package ttest

import (
	"math"
	"testing"

	"powersim/domain/core"
	"powersim/domain/power"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference sample pair with unequal variances and sizes; expected values
// agree with scipy.stats.ttest_ind.
var (
	groupA = []float64{19.8, 20.4, 19.6, 17.8, 18.5, 18.9, 18.3, 18.9, 19.5, 22.0}
	groupB = []float64{28.2, 26.6, 20.1, 23.3, 25.2, 22.1, 17.7, 27.6, 20.6, 13.7,
		23.2, 17.5, 20.6, 18.0, 23.9, 21.6, 24.3, 20.4, 23.9, 13.3}
)

func TestStudentMatchesReference(t *testing.T) {
	res, err := StudentTTest{}.Test(groupA, groupB)
	require.NoError(t, err)
	assert.InDelta(t, -1.6544465858663975, res.T, 1e-9)
	assert.Equal(t, 28.0, res.DF)
	assert.InDelta(t, 0.10920550418088071, res.PValue, 1e-6)
}

func TestWelchMatchesReference(t *testing.T) {
	res, err := WelchTTest{}.Test(groupA, groupB)
	require.NoError(t, err)
	assert.InDelta(t, -2.2255120399698485, res.T, 1e-9)
	assert.InDelta(t, 24.524634944257343, res.DF, 1e-9)
	assert.InDelta(t, 0.03548453083001062, res.PValue, 1e-6)
}

func TestVariantsAgreeOnBalancedEqualVariance(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 3, 4, 5, 6}

	s, err := StudentTTest{}.Test(a, b)
	require.NoError(t, err)
	w, err := WelchTTest{}.Test(a, b)
	require.NoError(t, err)

	assert.InDelta(t, -1.0, s.T, 1e-12)
	assert.InDelta(t, 0.34659350708733405, s.PValue, 1e-6)
	assert.InDelta(t, s.PValue, w.PValue, 1e-9)
	assert.InDelta(t, 8.0, w.DF, 1e-9)
}

func TestSymmetricInGroupOrder(t *testing.T) {
	forward, err := WelchTTest{}.Test(groupA, groupB)
	require.NoError(t, err)
	backward, err := WelchTTest{}.Test(groupB, groupA)
	require.NoError(t, err)
	assert.InDelta(t, -forward.T, backward.T, 1e-12)
	assert.InDelta(t, forward.PValue, backward.PValue, 1e-12)
}

func TestConstantSamples(t *testing.T) {
	same, err := StudentTTest{}.Test([]float64{3, 3, 3}, []float64{3, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, 1.0, same.PValue)

	apart, err := WelchTTest{}.Test([]float64{3, 3, 3}, []float64{4, 4, 4})
	require.NoError(t, err)
	assert.Equal(t, 0.0, apart.PValue)
	assert.True(t, math.IsInf(apart.T, -1))
}

func TestRejectsTinySamples(t *testing.T) {
	_, err := StudentTTest{}.Test([]float64{1}, []float64{1, 2})
	assert.True(t, core.IsInvalidParameterError(err))
	_, err = WelchTTest{}.Test([]float64{1, 2}, nil)
	assert.True(t, core.IsInvalidParameterError(err))
}

func TestNew(t *testing.T) {
	test, err := New(power.TestWelch)
	require.NoError(t, err)
	assert.Equal(t, "welch", test.Name())

	test, err = New("")
	require.NoError(t, err)
	assert.Equal(t, "student", test.Name())

	_, err = New("paired")
	assert.True(t, core.IsInvalidParameterError(err))
}
