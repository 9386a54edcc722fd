package race

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/runbattle/internal/models"
)

func participant(status models.ParticipantStatus, distance float64, elapsedMs int64, lastUpdate time.Time) models.Participant {
	return models.Participant{
		UserID:     uuid.New(),
		Status:     status,
		DistanceM:  distance,
		ElapsedMs:  elapsedMs,
		LastUpdate: lastUpdate,
	}
}

func TestRankOrderingAcrossStatuses(t *testing.T) {
	now := time.Now()
	snap := []models.Participant{
		participant(models.ParticipantQuit, 3000, 900000, now),
		participant(models.ParticipantActive, 4200, 1200000, now),
		participant(models.ParticipantFinished, 5000, 1600000, now),
		participant(models.ParticipantFinished, 5000, 1500000, now),
		participant(models.ParticipantActive, 4700, 1200000, now),
	}

	ranked := Rank(snap, 5000)
	require.Len(t, ranked, 5)

	// Finished ahead of active ahead of quit; earlier finish wins
	assert.Equal(t, int64(1500000), ranked[0].ElapsedMs)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, int64(1600000), ranked[1].ElapsedMs)
	assert.Equal(t, 2, ranked[1].Rank)

	assert.Equal(t, models.ParticipantActive, ranked[2].Status)
	assert.InDelta(t, 4700.0, ranked[2].DistanceM, 0.001)
	assert.Equal(t, 3, ranked[2].Rank)
	assert.Equal(t, 4, ranked[3].Rank)

	// Quit participants rank 0 and are excluded from the ordinal sequence
	assert.Equal(t, models.ParticipantQuit, ranked[4].Status)
	assert.Equal(t, 0, ranked[4].Rank)
}

func TestRankActiveTieBrokenByEarliestUpdate(t *testing.T) {
	now := time.Now()
	first := participant(models.ParticipantActive, 4000, 1000000, now.Add(-10*time.Second))
	second := participant(models.ParticipantActive, 4000, 1000000, now)

	ranked := Rank([]models.Participant{second, first}, 5000)
	require.Len(t, ranked, 2)

	// First to reach the tied distance ranks higher
	assert.Equal(t, first.UserID, ranked[0].UserID)
	assert.Equal(t, second.UserID, ranked[1].UserID)
}

func TestRankDerivedMetrics(t *testing.T) {
	now := time.Now()
	leader := participant(models.ParticipantActive, 6000, 1500000, now)
	trailer := participant(models.ParticipantActive, 2000, 1500000, now)
	idle := participant(models.ParticipantActive, 0, 0, now)

	ranked := Rank([]models.Participant{trailer, leader, idle}, 5000)
	require.Len(t, ranked, 3)

	// Progress percent clamps at 100
	assert.InDelta(t, 100.0, ranked[0].ProgressPercent, 0.001)
	assert.InDelta(t, 40.0, ranked[1].ProgressPercent, 0.001)

	// Gap to leader for ACTIVE participants
	assert.InDelta(t, 0.0, ranked[0].GapToLeaderM, 0.001)
	assert.InDelta(t, 4000.0, ranked[1].GapToLeaderM, 0.001)

	// Pace: 1500000 ms over 2 km = 12.5 min/km
	assert.InDelta(t, 12.5, ranked[1].PaceMinPerKm, 0.001)
	assert.Equal(t, "12'30\"", ranked[1].PaceDisplay)

	// Pace undefined at zero distance
	assert.Zero(t, ranked[2].PaceMinPerKm)
	assert.Equal(t, "-", ranked[2].PaceDisplay)
}

func TestRankIsPureFunction(t *testing.T) {
	now := time.Now()
	snap := []models.Participant{
		participant(models.ParticipantActive, 4200, 1200000, now),
		participant(models.ParticipantFinished, 5000, 1500000, now),
	}
	original := make([]models.Participant, len(snap))
	copy(original, snap)

	_ = Rank(snap, 5000)
	_ = Rank(snap, 5000)

	assert.Equal(t, original, snap, "ranking must not mutate its input snapshot")
}

func TestRankTotality(t *testing.T) {
	now := time.Now()
	snap := []models.Participant{
		participant(models.ParticipantQuit, 100, 50000, now),
		participant(models.ParticipantFinished, 5000, 1400000, now),
		participant(models.ParticipantActive, 3000, 1200000, now),
		participant(models.ParticipantQuit, 900, 300000, now),
		participant(models.ParticipantFinished, 5000, 1450000, now),
	}

	ranked := Rank(snap, 5000)

	ordinals := make([]int, 0)
	for _, r := range ranked {
		if r.Status == models.ParticipantQuit {
			assert.Equal(t, 0, r.Rank)
			continue
		}
		ordinals = append(ordinals, r.Rank)
	}
	assert.Equal(t, []int{1, 2, 3}, ordinals, "non-quit ordinals must be a gapless 1..n sequence")
}
