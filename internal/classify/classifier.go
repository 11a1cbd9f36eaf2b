package classify

import (
	"time"

	"github.com/shopspring/decimal"

	"tokenwatch/internal/config"
	"tokenwatch/internal/models"
)

// Classifier buckets a token into an alert tier from its market cap and age.
// Cap boundaries are inclusive at a tier's own floor and exclusive at the
// next tier's floor; age ceilings are inclusive.
type Classifier struct {
	MidFloor            decimal.Decimal
	HighFloor           decimal.Decimal
	MidAgeCeiling       time.Duration
	HighAgeCeiling      time.Duration
	DiscoveryAgeCeiling time.Duration
}

func FromConfig(cfg config.TiersConfig) Classifier {
	return Classifier{
		MidFloor:            decimal.NewFromFloat(cfg.MidFloor),
		HighFloor:           decimal.NewFromFloat(cfg.HighFloor),
		MidAgeCeiling:       cfg.MidAgeCeiling,
		HighAgeCeiling:      cfg.HighAgeCeiling,
		DiscoveryAgeCeiling: cfg.DiscoveryAgeCeiling,
	}
}

// Prefilter decides whether a candidate is worth a snapshot fetch. It uses
// only the raw discovery data: the FDV estimate and the candidate's own
// creation time.
func (c Classifier) Prefilter(cand models.TokenCandidate, now time.Time) bool {
	if cand.FDV.LessThan(c.MidFloor) {
		return false
	}
	if !cand.CreatedAt.IsZero() && now.Sub(cand.CreatedAt) > c.DiscoveryAgeCeiling {
		return false
	}
	return true
}

// Classify evaluates the enriched snapshot. Missing market cap has already
// been normalized to zero by the fetcher; a missing or future pair creation
// timestamp falls back to the candidate's creation time.
func (c Classifier) Classify(cand models.TokenCandidate, snap *models.MarketSnapshot, now time.Time) models.Tier {
	if snap == nil {
		return models.TierNone
	}
	age := snap.Age(cand.CreatedAt, now)

	if snap.MarketCap.GreaterThanOrEqual(c.HighFloor) && age <= c.HighAgeCeiling {
		return models.TierHigh
	}
	if snap.MarketCap.GreaterThanOrEqual(c.MidFloor) && snap.MarketCap.LessThan(c.HighFloor) && age <= c.MidAgeCeiling {
		return models.TierMid
	}
	return models.TierNone
}
