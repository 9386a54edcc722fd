package race

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/yourusername/runbattle/internal/models"
)

// RankedParticipant is one row of a computed ranking with display metrics
type RankedParticipant struct {
	UserID          uuid.UUID                `json:"user_id"`
	Rank            int                      `json:"rank"`
	DistanceM       float64                  `json:"total_distance"`
	ProgressPercent float64                  `json:"progress_percent"`
	PaceMinPerKm    float64                  `json:"current_pace"`
	PaceDisplay     string                   `json:"pace_display"`
	GapToLeaderM    float64                  `json:"gap_to_leader_m"`
	ElapsedMs       int64                    `json:"elapsed_ms"`
	Status          models.ParticipantStatus `json:"status"`
	IsFinished      bool                     `json:"is_finished"`
}

// statusOrder ranks FINISHED above ACTIVE above QUIT
func statusOrder(s models.ParticipantStatus) int {
	switch s {
	case models.ParticipantFinished:
		return 0
	case models.ParticipantActive:
		return 1
	default:
		return 2
	}
}

// Rank derives a deterministic total order with display metrics from a
// ledger snapshot. It is a pure function: safe to call concurrently from
// any goroutine against the same immutable snapshot.
func Rank(snapshot []models.Participant, targetDistanceM float64) []RankedParticipant {
	sorted := make([]models.Participant, len(snapshot))
	copy(sorted, snapshot)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if so := statusOrder(a.Status); so != statusOrder(b.Status) {
			return so < statusOrder(b.Status)
		}
		switch a.Status {
		case models.ParticipantFinished:
			// Earlier finish wins
			return a.ElapsedMs < b.ElapsedMs
		case models.ParticipantActive:
			// Further along wins; ties go to whoever got there first
			if a.DistanceM != b.DistanceM {
				return a.DistanceM > b.DistanceM
			}
			return a.LastUpdate.Before(b.LastUpdate)
		default:
			return false
		}
	})

	out := make([]RankedParticipant, 0, len(sorted))
	ordinal := 0
	leaderDistance := 0.0
	if len(sorted) > 0 {
		leaderDistance = sorted[0].DistanceM
	}

	for _, p := range sorted {
		rank := 0
		if p.Status != models.ParticipantQuit {
			// QUIT participants display as "gave up", never a placement
			ordinal++
			rank = ordinal
		}

		progress := 0.0
		if targetDistanceM > 0 {
			progress = 100 * p.DistanceM / targetDistanceM
			if progress > 100 {
				progress = 100
			}
		}

		pace := p.PaceMinPerKm()
		paceDisplay := "-"
		if pace > 0 {
			paceDisplay = formatPace(pace)
		}

		gap := 0.0
		if p.Status == models.ParticipantActive {
			gap = leaderDistance - p.DistanceM
			if gap < 0 {
				gap = 0
			}
		}

		out = append(out, RankedParticipant{
			UserID:          p.UserID,
			Rank:            rank,
			DistanceM:       p.DistanceM,
			ProgressPercent: progress,
			PaceMinPerKm:    pace,
			PaceDisplay:     paceDisplay,
			GapToLeaderM:    gap,
			ElapsedMs:       p.ElapsedMs,
			Status:          p.Status,
			IsFinished:      p.Status == models.ParticipantFinished,
		})
	}

	return out
}

// formatPace renders minutes/km as m'ss" for display
func formatPace(minPerKm float64) string {
	mins := int(minPerKm)
	secs := int((minPerKm - float64(mins)) * 60)
	return fmt.Sprintf("%d'%02d\"", mins, secs)
}
