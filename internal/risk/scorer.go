// Package risk computes the multi-signal anomaly score that routes a login
// attempt into immediate access, an OTP step-up, or a timed block. Every
// function here is pure and deterministic given its inputs; the action
// thresholds exist only in Classify.
package risk

import (
	"time"

	"github.com/mkarlsen/riskgate/internal/models"
)

// Per-signal caps. The four maxima sum to exactly 100.
const (
	MaxLocationScore  = 20
	MaxKeystrokeScore = 30
	MaxSessionScore   = 30
	MaxTimeScore      = 20
)

const minutesPerDay = 24 * 60

// Input carries the contextual signals captured alongside the credentials.
// DeleteCount and SessionSeconds come from client telemetry and are treated
// as untrusted, best-effort signals.
type Input struct {
	RegisteredLocation models.Location
	CurrentLocation    models.Coordinates
	DeleteCount        int
	SessionSeconds     int
	LoginTime          time.Time
}

// Assessment is the full scoring breakdown for one attempt.
type Assessment struct {
	Factors models.RiskFactors
	Total   int
	Action  models.Action
}

// LocationScore penalizes distance from the registered coordinate: 0 within
// 1 km, then 5 points per whole kilometer, capped.
func LocationScore(registered models.Location, current models.Coordinates) int {
	distance := DistanceKm(registered.Latitude, registered.Longitude, current.Latitude, current.Longitude)
	if distance <= 1 {
		return 0
	}
	return clamp(int(distance)*5, MaxLocationScore)
}

// KeystrokeScore penalizes delete/backspace keystrokes during credential
// entry, one point each, capped.
func KeystrokeScore(deleteCount int) int {
	if deleteCount < 0 {
		return 0
	}
	return clamp(deleteCount, MaxKeystrokeScore)
}

// SessionScore penalizes elapsed seconds between location grant and form
// submission, one point per 3 seconds, capped.
func SessionScore(sessionSeconds int) int {
	if sessionSeconds < 0 {
		return 0
	}
	return clamp(sessionSeconds/3, MaxSessionScore)
}

// TimeScore penalizes logins outside every configured expected window.
// Inside any window, or with no policy configured, the score is 0. Outside,
// the score grows with the distance in whole hours to the nearest window,
// 3 points per hour, capped. Distance to a window is the average of the
// wrap-aware distances to its two boundaries.
func TimeScore(loginTime time.Time, policy models.TimeWindowPolicy) int {
	if len(policy.Ranges) == 0 {
		return 0
	}

	t := models.MinutesOfDay(loginTime)

	for _, r := range policy.Ranges {
		if r.Contains(t) {
			return 0
		}
	}

	minDistance := -1
	for _, r := range policy.Ranges {
		start, end, err := r.Bounds()
		if err != nil {
			continue
		}

		var fromStart, fromEnd int
		if start <= end {
			fromStart = absInt(t - start)
			fromEnd = absInt(t - end)
		} else if t >= start {
			fromStart = absInt(t - start)
			fromEnd = minInt(absInt(t-end), (minutesPerDay-t)+end)
		} else {
			fromStart = minInt(absInt(t-start), t+(minutesPerDay-start))
			fromEnd = absInt(t - end)
		}

		avg := (fromStart + fromEnd) / 2
		if minDistance < 0 || avg < minDistance {
			minDistance = avg
		}
	}

	if minDistance < 0 {
		return 0
	}
	return clamp((minDistance/60)*3, MaxTimeScore)
}

// Classify maps a total score to an action. This is the only place the
// tier thresholds appear; every caller routes through it.
func Classify(total int) models.Action {
	switch {
	case total <= 40:
		return models.ActionAccessGranted
	case total <= 70:
		return models.ActionMFARequired
	default:
		return models.ActionBlocked
	}
}

// Evaluate computes all four sub-scores, the aggregate, and the action for
// one attempt against the given policy.
func Evaluate(in Input, policy models.TimeWindowPolicy) Assessment {
	locationScore := LocationScore(in.RegisteredLocation, in.CurrentLocation)
	keystrokeScore := KeystrokeScore(in.DeleteCount)
	sessionScore := SessionScore(in.SessionSeconds)
	timeScore := TimeScore(in.LoginTime, policy)

	total := locationScore + keystrokeScore + sessionScore + timeScore

	return Assessment{
		Factors: models.RiskFactors{
			LocationAnomaly: models.FactorScore{Score: locationScore, MaxScore: MaxLocationScore},
			KeystrokeAnomaly: models.KeystrokeFactor{
				FactorScore: models.FactorScore{Score: keystrokeScore, MaxScore: MaxKeystrokeScore},
				DeleteCount: in.DeleteCount,
			},
			SessionTime: models.SessionTimeFactor{
				FactorScore: models.FactorScore{Score: sessionScore, MaxScore: MaxSessionScore},
				Duration:    in.SessionSeconds,
			},
			UnusualTime: models.FactorScore{Score: timeScore, MaxScore: MaxTimeScore},
		},
		Total:  total,
		Action: Classify(total),
	}
}

func clamp(v, max int) int {
	if v > max {
		return max
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
