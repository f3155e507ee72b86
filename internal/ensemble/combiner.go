// Package ensemble merges the independent risk signals into one bounded
// score and maps it to a gate action.
package ensemble

import "math"

// Fixed signal weights. They deliberately sum to 0.95: the remaining share
// is absorbed upstream by the trust-ledger boost inside the header trust
// calculation rather than appearing as a fourth term here.
const (
	weightLocal  = 0.25
	weightML     = 0.50
	weightHeader = 0.20
)

// Combine produces the final suspicion score in [0,100]. Header trust is
// inverted into suspicion. A nil ml score substitutes the local score as its
// own proxy and a nil trust defaults to the neutral 50, so the ensemble
// never fails outright for a missing remote signal.
func Combine(local int, ml *int, headerTrust *int) int {
	mlScore := local
	if ml != nil {
		mlScore = *ml
	}
	trust := 50
	if headerTrust != nil {
		trust = *headerTrust
	}
	headerSuspicion := 100 - trust

	sum := weightLocal*float64(local) + weightML*float64(mlScore) + weightHeader*float64(headerSuspicion)
	final := int(math.Round(sum))
	if final < 0 {
		return 0
	}
	if final > 100 {
		return 100
	}
	return final
}

// Verdict is the gate action for a scored message or link.
type Verdict int

const (
	Allow Verdict = iota
	Warn
	Block
)

func (v Verdict) String() string {
	switch v {
	case Block:
		return "block"
	case Warn:
		return "warn"
	default:
		return "allow"
	}
}

// RiskLabel returns the user-facing level for a verdict.
func (v Verdict) RiskLabel() string {
	switch v {
	case Block:
		return "high"
	case Warn:
		return "medium"
	default:
		return "low"
	}
}

// Gate thresholds.
const (
	blockThreshold = 70
	warnThreshold  = 40
)

// Decide maps a final score to an action. A true patternMatch floors the
// result at Warn: structural red flags are never purely additive.
func Decide(score int, patternMatch bool) Verdict {
	switch {
	case score > blockThreshold:
		return Block
	case score > warnThreshold:
		return Warn
	case patternMatch:
		return Warn
	default:
		return Allow
	}
}
