package models

// Tier is the alert significance bucket assigned to a token.
type Tier int

const (
	TierNone Tier = iota
	TierMid
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierMid:
		return "mid"
	case TierHigh:
		return "high"
	default:
		return "none"
	}
}
