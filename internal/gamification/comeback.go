package gamification

import "time"

// Comeback mechanic constants. A competitor trailing the leader by more than
// the activation threshold earns a time-boxed multiplier that grows linearly
// with the gap up to the cap.
const (
	ComebackActivationPct = 20.0
	ComebackMaxMultiplier = 1.5
	ComebackBonusWindow   = 7 * 24 * time.Hour
)

// Standing is a participant's position in a competition's primary metric.
type Standing struct {
	LeaderPoints int
	UserPoints   int
}

// ComebackAssessment is the outcome of evaluating a participant's gap to the
// leader at a point in time.
type ComebackAssessment struct {
	BehindByPct float64
	Multiplier  float64
	Active      bool
	ExpiresAt   time.Time
}

// AssessComeback computes the comeback multiplier for a trailing competitor.
// The multiplier is 1 + (gap% - activation%) / 100, capped at
// ComebackMaxMultiplier, and only granted while the gap exceeds the
// activation threshold. The bonus expires ComebackBonusWindow after the
// assessment; expired or in-range participants revert to 1.0.
func AssessComeback(standing Standing, now time.Time) ComebackAssessment {
	assessment := ComebackAssessment{Multiplier: 1.0}

	if standing.LeaderPoints <= 0 || standing.UserPoints >= standing.LeaderPoints {
		return assessment
	}

	gap := float64(standing.LeaderPoints-standing.UserPoints) / float64(standing.LeaderPoints) * 100
	assessment.BehindByPct = gap
	if gap <= ComebackActivationPct {
		return assessment
	}

	multiplier := 1 + (gap-ComebackActivationPct)/100
	if multiplier > ComebackMaxMultiplier {
		multiplier = ComebackMaxMultiplier
	}

	assessment.Multiplier = multiplier
	assessment.Active = true
	assessment.ExpiresAt = now.Add(ComebackBonusWindow)
	return assessment
}
