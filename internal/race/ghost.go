package race

import (
	"github.com/yourusername/runbattle/internal/models"
)

// GhostStatus is the live participant's standing against the baseline
type GhostStatus string

const (
	GhostAhead  GhostStatus = "AHEAD"
	GhostBehind GhostStatus = "BEHIND"
	GhostEven   GhostStatus = "EVEN"
)

// ghostEvenToleranceMs treats differences within one second as a tie
const ghostEvenToleranceMs = 1000

// GhostComparison is the result of comparing live progress to a baseline
type GhostComparison struct {
	Status GhostStatus `json:"status"`
	// DeltaMs is baseline time minus live time at the live distance;
	// positive means the live runner is ahead
	DeltaMs int64 `json:"delta_ms"`
	// DeltaM is live distance minus baseline distance at the live elapsed
	// time; positive means the live runner is physically ahead
	DeltaM float64 `json:"delta_m"`
}

// CompareToBaseline interpolates the baseline's expected elapsed time at the
// live participant's distance and classifies the lead or deficit. Read-only:
// it never mutates the ledger and has no bearing on session completion.
func CompareToBaseline(baseline *models.GhostBaseline, liveDistanceM float64, liveElapsedMs int64) GhostComparison {
	baselineMs := baselineTimeAt(baseline, liveDistanceM)
	deltaMs := baselineMs - liveElapsedMs

	baselineDistance := baselineDistanceAt(baseline, liveElapsedMs)
	deltaM := liveDistanceM - baselineDistance

	status := GhostEven
	if deltaMs > ghostEvenToleranceMs {
		status = GhostAhead
	} else if deltaMs < -ghostEvenToleranceMs {
		status = GhostBehind
	}

	return GhostComparison{Status: status, DeltaMs: deltaMs, DeltaM: deltaM}
}

// baselineTimeAt returns the baseline's elapsed milliseconds at the given
// distance, piecewise-linearly interpolated over the checkpoint list, or
// derived from the average pace when no checkpoints exist.
func baselineTimeAt(b *models.GhostBaseline, distanceM float64) int64 {
	if distanceM <= 0 {
		return 0
	}
	if !b.HasCheckpoints() {
		return int64(b.AvgPaceSecPerKm * distanceM / 1000.0 * 1000.0)
	}

	prev := models.GhostCheckpoint{}
	for _, cp := range b.Checkpoints {
		if distanceM <= cp.DistanceM {
			span := cp.DistanceM - prev.DistanceM
			if span <= 0 {
				return cp.ElapsedMs
			}
			frac := (distanceM - prev.DistanceM) / span
			return prev.ElapsedMs + int64(frac*float64(cp.ElapsedMs-prev.ElapsedMs))
		}
		prev = cp
	}

	// Beyond the last checkpoint: extrapolate at the run's overall pace
	last := b.Checkpoints[len(b.Checkpoints)-1]
	if last.DistanceM <= 0 {
		return last.ElapsedMs
	}
	return int64(float64(last.ElapsedMs) * distanceM / last.DistanceM)
}

// baselineDistanceAt is the inverse interpolation: the baseline's distance
// at the given elapsed time, for the "meters ahead/behind" display.
func baselineDistanceAt(b *models.GhostBaseline, elapsedMs int64) float64 {
	if elapsedMs <= 0 {
		return 0
	}
	if !b.HasCheckpoints() {
		if b.AvgPaceSecPerKm <= 0 {
			return 0
		}
		return float64(elapsedMs) / 1000.0 / b.AvgPaceSecPerKm * 1000.0
	}

	prev := models.GhostCheckpoint{}
	for _, cp := range b.Checkpoints {
		if elapsedMs <= cp.ElapsedMs {
			span := cp.ElapsedMs - prev.ElapsedMs
			if span <= 0 {
				return cp.DistanceM
			}
			frac := float64(elapsedMs-prev.ElapsedMs) / float64(span)
			return prev.DistanceM + frac*(cp.DistanceM-prev.DistanceM)
		}
		prev = cp
	}

	last := b.Checkpoints[len(b.Checkpoints)-1]
	if last.ElapsedMs <= 0 {
		return last.DistanceM
	}
	return last.DistanceM * float64(elapsedMs) / float64(last.ElapsedMs)
}
