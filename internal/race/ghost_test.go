package race

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/yourusername/runbattle/internal/models"
)

func paceOnlyBaseline(secPerKm float64) *models.GhostBaseline {
	return &models.GhostBaseline{
		RunID:           uuid.New(),
		TargetDistanceM: 5000,
		AvgPaceSecPerKm: secPerKm,
	}
}

func TestGhostAheadAtConstantPace(t *testing.T) {
	// Baseline pace 5:00 min/km; live at 2000 m after 9:30.
	// Baseline time at 2000 m = 10:00, so live is 30 s ahead.
	b := paceOnlyBaseline(300)
	cmp := CompareToBaseline(b, 2000, 9*60*1000+30*1000)

	assert.Equal(t, GhostAhead, cmp.Status)
	assert.Equal(t, int64(30000), cmp.DeltaMs)
	// Baseline distance at 9:30 is 1900 m, so live is 100 m up the road
	assert.InDelta(t, 100.0, cmp.DeltaM, 0.001)
}

func TestGhostBehind(t *testing.T) {
	b := paceOnlyBaseline(300)
	cmp := CompareToBaseline(b, 2000, 11*60*1000)

	assert.Equal(t, GhostBehind, cmp.Status)
	assert.Equal(t, int64(-60000), cmp.DeltaMs)
	assert.InDelta(t, -200.0, cmp.DeltaM, 0.001)
}

func TestGhostEvenWithinTolerance(t *testing.T) {
	b := paceOnlyBaseline(300)

	for _, deltaMs := range []int64{0, 999, -999, 1000, -1000} {
		cmp := CompareToBaseline(b, 2000, 600000-deltaMs)
		assert.Equal(t, GhostEven, cmp.Status, "delta %d ms", deltaMs)
	}
}

func TestGhostInterpolatesCheckpoints(t *testing.T) {
	b := &models.GhostBaseline{
		RunID:           uuid.New(),
		TargetDistanceM: 5000,
		Checkpoints: []models.GhostCheckpoint{
			{DistanceM: 1000, ElapsedMs: 300000},
			{DistanceM: 2000, ElapsedMs: 660000}, // slowed to 6:00 on the second km
			{DistanceM: 5000, ElapsedMs: 1560000},
		},
	}

	// Halfway through the second kilometer the baseline is at 8:00
	cmp := CompareToBaseline(b, 1500, 450000)
	assert.Equal(t, GhostAhead, cmp.Status)
	assert.Equal(t, int64(30000), cmp.DeltaMs)
}

func TestGhostExtrapolatesBeyondLastCheckpoint(t *testing.T) {
	b := &models.GhostBaseline{
		RunID: uuid.New(),
		Checkpoints: []models.GhostCheckpoint{
			{DistanceM: 1000, ElapsedMs: 300000},
		},
	}

	// Past the last checkpoint the overall run pace carries forward
	cmp := CompareToBaseline(b, 2000, 600000)
	assert.Equal(t, GhostEven, cmp.Status)
}

func TestGhostZeroDistance(t *testing.T) {
	b := paceOnlyBaseline(300)
	cmp := CompareToBaseline(b, 0, 0)
	assert.Equal(t, GhostEven, cmp.Status)
	assert.Zero(t, cmp.DeltaMs)
}
