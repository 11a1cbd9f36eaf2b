package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tokenwatch/internal/config"
	"tokenwatch/internal/models"
)

// MarketClient enriches candidates with per-pair market data from a
// DexScreener style API. One limiter is shared by every call so the whole
// round stays under the upstream rate limit.
type MarketClient struct {
	baseURL string
	logger  *zap.Logger
	get     getter
}

func NewMarketClient(cfg config.MarketConfig, fetch config.FetchConfig, logger *zap.Logger) *MarketClient {
	return &MarketClient{
		baseURL: cfg.BaseURL,
		logger:  logger,
		get: getter{
			client:   &http.Client{Timeout: cfg.Timeout},
			attempts: fetch.Attempts,
			delay:    fetch.Delay,
			limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		},
	}
}

type pairTxnWindow struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type screenerPair struct {
	ChainID   string `json:"chainId"`
	DexID     string `json:"dexId"`
	URL       string `json:"url"`
	PairAddr  string `json:"pairAddress"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD string `json:"priceUsd"`
	Txns     struct {
		M5 pairTxnWindow `json:"m5"`
		H1 pairTxnWindow `json:"h1"`
	} `json:"txns"`
	Volume struct {
		M5 float64 `json:"m5"`
		H1 float64 `json:"h1"`
	} `json:"volume"`
	MarketCap     float64 `json:"marketCap"`
	PairCreatedAt int64   `json:"pairCreatedAt"`
	Info          struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

type screenerTokenResponse struct {
	Pairs []screenerPair `json:"pairs"`
}

// Snapshot returns the current market view for a token, or nil when no pair
// exists or retries are exhausted. A missing market cap field decodes to
// zero, which downstream treats as "not qualified" rather than an error.
func (c *MarketClient) Snapshot(ctx context.Context, address string) *models.MarketSnapshot {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, address)

	var parsed screenerTokenResponse
	if err := c.get.getJSON(ctx, url, nil, &parsed); err != nil {
		if c.logger != nil {
			c.logger.Warn("snapshot fetch failed", zap.String("address", address), zap.Error(err))
		}
		return nil
	}
	if len(parsed.Pairs) == 0 {
		return nil
	}

	// The first pair is the most liquid one on this API; use it as the
	// canonical view of the token.
	best := parsed.Pairs[0]
	return snapshotFromPair(address, best)
}

func snapshotFromPair(address string, p screenerPair) *models.MarketSnapshot {
	price, err := decimal.NewFromString(p.PriceUSD)
	if err != nil {
		price = decimal.Zero
	}
	var pairCreated time.Time
	if p.PairCreatedAt > 0 {
		pairCreated = time.UnixMilli(p.PairCreatedAt).UTC()
	}
	return &models.MarketSnapshot{
		Address:       address,
		PairAddress:   p.PairAddr,
		Venue:         p.DexID,
		Name:          p.BaseToken.Name,
		Symbol:        p.BaseToken.Symbol,
		PriceUSD:      price,
		MarketCap:     decimal.NewFromFloat(p.MarketCap),
		PairCreatedAt: pairCreated,
		Txns5m:        p.Txns.M5.Buys + p.Txns.M5.Sells,
		Txns1h:        p.Txns.H1.Buys + p.Txns.H1.Sells,
		Volume5m:      decimal.NewFromFloat(p.Volume.M5),
		Volume1h:      decimal.NewFromFloat(p.Volume.H1),
		URL:           p.URL,
		ImageURL:      p.Info.ImageURL,
	}
}

// ProfilesClient is the secondary listing feed: latest token profiles plus
// the trading pairs of each profiled token. It needs no credential.
type ProfilesClient struct {
	baseURL string
	chainID string
	venues  map[string]struct{}
	logger  *zap.Logger
	get     getter
}

func NewProfilesClient(cfg config.ProfilesConfig, market config.MarketConfig, fetch config.FetchConfig, logger *zap.Logger) *ProfilesClient {
	venues := make(map[string]struct{}, len(cfg.AllowedVenues))
	for _, v := range cfg.AllowedVenues {
		venues[strings.ToLower(v)] = struct{}{}
	}
	return &ProfilesClient{
		baseURL: cfg.BaseURL,
		chainID: cfg.ChainID,
		venues:  venues,
		logger:  logger,
		get: getter{
			client:   &http.Client{Timeout: market.Timeout},
			attempts: fetch.Attempts,
			delay:    fetch.Delay,
			limiter:  rate.NewLimiter(rate.Limit(market.RateLimit), market.RateBurst),
		},
	}
}

type tokenProfile struct {
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
	Icon         string `json:"icon"`
}

// Listings returns candidates discovered through token profiles. FDV and
// creation time come from the token's best allowed pair; profiles whose
// pairs all sit on disallowed venues are skipped.
func (c *ProfilesClient) Listings(ctx context.Context) []models.TokenCandidate {
	url := fmt.Sprintf("%s/token-profiles/latest/v1", c.baseURL)

	var profiles []tokenProfile
	if err := c.get.getJSON(ctx, url, nil, &profiles); err != nil {
		if c.logger != nil {
			c.logger.Warn("profiles fetch failed", zap.Error(err))
		}
		return nil
	}

	var out []models.TokenCandidate
	for _, p := range profiles {
		if p.ChainID != c.chainID || p.TokenAddress == "" {
			continue
		}
		pair, ok := c.bestPair(ctx, p.TokenAddress)
		if !ok {
			continue
		}
		var createdAt time.Time
		if pair.PairCreatedAt > 0 {
			createdAt = time.UnixMilli(pair.PairCreatedAt).UTC()
		}
		out = append(out, models.TokenCandidate{
			Address:   p.TokenAddress,
			Name:      pair.BaseToken.Name,
			Symbol:    pair.BaseToken.Symbol,
			FDV:       decimal.NewFromFloat(pair.MarketCap),
			CreatedAt: createdAt,
			Source:    "profile",
		})
	}
	return out
}

func (c *ProfilesClient) bestPair(ctx context.Context, address string) (screenerPair, bool) {
	url := fmt.Sprintf("%s/token-pairs/v1/%s/%s", c.baseURL, c.chainID, address)

	var pairs []screenerPair
	if err := c.get.getJSON(ctx, url, nil, &pairs); err != nil {
		if c.logger != nil {
			c.logger.Warn("token pairs fetch failed", zap.String("address", address), zap.Error(err))
		}
		return screenerPair{}, false
	}
	for _, p := range pairs {
		if _, ok := c.venues[strings.ToLower(p.DexID)]; ok {
			return p, true
		}
	}
	return screenerPair{}, false
}
