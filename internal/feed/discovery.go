package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tokenwatch/internal/config"
	"tokenwatch/internal/models"
	"tokenwatch/internal/rotation"
)

// DiscoveryClient pulls new and graduated pump.fun listings from a Moralis
// style Solana gateway. Exhausted retries degrade to an empty result; a
// round with no discovery data is benign.
type DiscoveryClient struct {
	baseURL string
	limit   int
	keys    rotation.KeySource
	logger  *zap.Logger
	get     getter
}

func NewDiscoveryClient(cfg config.DiscoveryConfig, fetch config.FetchConfig, keys rotation.KeySource, logger *zap.Logger) *DiscoveryClient {
	return &DiscoveryClient{
		baseURL: cfg.BaseURL,
		limit:   cfg.Limit,
		keys:    keys,
		logger:  logger,
		get: getter{
			client:   &http.Client{Timeout: cfg.Timeout},
			attempts: fetch.Attempts,
			delay:    fetch.Delay,
		},
	}
}

type discoveryListing struct {
	TokenAddress string `json:"tokenAddress"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	FDV          string `json:"fullyDilutedValuation"`
	CreatedAt    string `json:"createdAt"`
}

type discoveryResponse struct {
	Result []discoveryListing `json:"result"`
}

// NewListings returns tokens freshly created on the launchpad.
func (c *DiscoveryClient) NewListings(ctx context.Context) []models.TokenCandidate {
	return c.listings(ctx, "new")
}

// GraduatedListings returns tokens that completed their bonding curve.
func (c *DiscoveryClient) GraduatedListings(ctx context.Context) []models.TokenCandidate {
	return c.listings(ctx, "graduated")
}

func (c *DiscoveryClient) listings(ctx context.Context, kind string) []models.TokenCandidate {
	url := fmt.Sprintf("%s/token/mainnet/exchange/pumpfun/%s?limit=%d", c.baseURL, kind, c.limit)
	header := http.Header{}
	header.Set("X-API-Key", c.keys.Current())

	var parsed discoveryResponse
	if err := c.get.getJSON(ctx, url, header, &parsed); err != nil {
		if c.logger != nil {
			c.logger.Warn("discovery fetch failed", zap.String("kind", kind), zap.Error(err))
		}
		return nil
	}

	out := make([]models.TokenCandidate, 0, len(parsed.Result))
	for _, item := range parsed.Result {
		if item.TokenAddress == "" {
			continue
		}
		fdv, err := decimal.NewFromString(item.FDV)
		if err != nil {
			fdv = decimal.Zero
		}
		createdAt, err := time.Parse(time.RFC3339, item.CreatedAt)
		if err != nil {
			createdAt = time.Time{}
		}
		out = append(out, models.TokenCandidate{
			Address:   item.TokenAddress,
			Name:      item.Name,
			Symbol:    item.Symbol,
			FDV:       fdv,
			CreatedAt: createdAt,
			Source:    kind,
		})
	}
	return out
}
