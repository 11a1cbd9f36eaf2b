package feed

import (
	"context"

	"tokenwatch/internal/models"
)

// Source merges the discovery and secondary feeds into one candidate list
// per round and exposes snapshot lookups. Profiles may be nil when the
// secondary feed is disabled.
type Source struct {
	Discovery *DiscoveryClient
	Market    *MarketClient
	Profiles  *ProfilesClient
}

// Candidates fetches every feed and dedupes by address; the first feed to
// report a token wins. Feeds that failed this round contribute nothing.
func (s *Source) Candidates(ctx context.Context) []models.TokenCandidate {
	var all []models.TokenCandidate
	all = append(all, s.Discovery.NewListings(ctx)...)
	all = append(all, s.Discovery.GraduatedListings(ctx)...)
	if s.Profiles != nil {
		all = append(all, s.Profiles.Listings(ctx)...)
	}

	seen := make(map[string]struct{}, len(all))
	out := all[:0]
	for _, cand := range all {
		if _, ok := seen[cand.Address]; ok {
			continue
		}
		seen[cand.Address] = struct{}{}
		out = append(out, cand)
	}
	return out
}

func (s *Source) Snapshot(ctx context.Context, address string) *models.MarketSnapshot {
	return s.Market.Snapshot(ctx, address)
}
