package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenCandidate is a token observed on a discovery feed during one round.
// Candidates are not retained between rounds; only the dedup ledger carries
// state forward.
type TokenCandidate struct {
	Address   string
	Name      string
	Symbol    string
	FDV       decimal.Decimal
	CreatedAt time.Time
	Source    string
}

// MarketSnapshot enriches a candidate with per-pair market data. Fetched
// fresh each round, never cached.
type MarketSnapshot struct {
	Address       string
	PairAddress   string
	Venue         string
	Name          string
	Symbol        string
	PriceUSD      decimal.Decimal
	MarketCap     decimal.Decimal
	PairCreatedAt time.Time
	Txns5m        int
	Txns1h        int
	Volume5m      decimal.Decimal
	Volume1h      decimal.Decimal
	URL           string
	ImageURL      string
}

// Age returns the token age as seen by the snapshot: pair creation time when
// present and sane, otherwise the candidate's own creation time.
func (s *MarketSnapshot) Age(candidateCreatedAt, now time.Time) time.Duration {
	ref := s.PairCreatedAt
	if ref.IsZero() || ref.After(now) {
		ref = candidateCreatedAt
	}
	if ref.IsZero() || ref.After(now) {
		return 0
	}
	return now.Sub(ref)
}
