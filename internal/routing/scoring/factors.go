package scoring

import (
	"math"
	"time"

	"lead_router_backend/internal/routing/domain"
)

const maxScore = 100.0

// matchScore maps an eligibility match onto the [0,100] scale.
func matchScore(kind domain.MatchKind, partialCredit float64) float64 {
	switch kind {
	case domain.MatchExact:
		return maxScore
	case domain.MatchAny:
		return partialCredit
	default:
		return 0
	}
}

// ResponseSpeedScore converts an average response time into a [0,100] score.
// Thirty minutes or less is full marks; the score then falls linearly to 70
// at two hours, to 40 at a day and to zero a day later.
func ResponseSpeedScore(minutes float64) float64 {
	switch {
	case minutes <= 30:
		return maxScore
	case minutes <= 120:
		return 100 - (minutes-30)/90*30
	case minutes <= 1440:
		return 70 - (minutes-120)/1320*30
	case minutes <= 2880:
		return 40 - (minutes-1440)/1440*40
	default:
		return 0
	}
}

// FairnessScore grows linearly with the wait and saturates at the ceiling.
func FairnessScore(wait, ceiling time.Duration) float64 {
	if wait <= 0 {
		return 0
	}
	if ceiling <= 0 || wait >= ceiling {
		return maxScore
	}
	return float64(wait) / float64(ceiling) * maxScore
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(maxScore, v))
}
