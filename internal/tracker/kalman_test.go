package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKalmanStateCovarianceInitialization(t *testing.T) {
	k := newKalmanState(100, 200, 0.5, 40)

	// R[2:,2:] *= 10, per spec §4.6's literal construction order.
	assert.Equal(t, 1.0, k.R.At(0, 0))
	assert.Equal(t, 1.0, k.R.At(1, 1))
	assert.Equal(t, 10.0, k.R.At(2, 2))
	assert.Equal(t, 10.0, k.R.At(3, 3))

	// P[4:,4:] *= 1000 then P *= 10 (whole matrix), so velocity block ends at
	// 1*1000*10 and position/shape block ends at 1*10.
	assert.Equal(t, 10.0, k.P.At(0, 0))
	assert.Equal(t, 10.0, k.P.At(3, 3))
	assert.Equal(t, 10000.0, k.P.At(4, 4))
	assert.Equal(t, 10000.0, k.P.At(6, 6))

	// Q[-1,-1] *= 0.01 then Q[4:,4:] *= 0.01 again, so index 6 is
	// double-multiplied: 1 -> 0.01 -> 0.0001.
	assert.Equal(t, 1.0, k.Q.At(0, 0))
	assert.Equal(t, 0.01, k.Q.At(4, 4))
	assert.Equal(t, 0.01, k.Q.At(5, 5))
	assert.InDelta(t, 0.0001, k.Q.At(6, 6), 1e-12)
}

func TestKalmanPredictAppliesConstantVelocity(t *testing.T) {
	k := newKalmanState(100, 200, 0.5, 40)
	k.x.SetVec(4, 5)  // vcx
	k.x.SetVec(5, -2) // vcy

	k.predict()

	assert.Equal(t, 105.0, k.x.AtVec(0))
	assert.Equal(t, 198.0, k.x.AtVec(1))
}

func TestKalmanUpdateMovesStateTowardObservation(t *testing.T) {
	k := newKalmanState(100, 200, 0.5, 40)
	k.predict()

	obs := observationFromBox(90, 190, 130, 230) // cx=110, cy=210, s=1, h=40
	k.update(obs)

	assert.InDelta(t, 110, k.x.AtVec(0), 5)
	assert.InDelta(t, 210, k.x.AtVec(1), 5)
}

func TestObservationFromBox(t *testing.T) {
	obs := observationFromBox(0, 0, 40, 80)
	assert.Equal(t, []float64{20, 40, 0.5, 80}, obs)
}
