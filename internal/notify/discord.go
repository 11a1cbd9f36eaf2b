package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"tokenwatch/internal/config"
	"tokenwatch/internal/models"
)

const (
	colorMid  = 0xF1C40F
	colorHigh = 0xE74C3C
)

// webhookSender is the slice of discordgo.Session the notifier needs.
type webhookSender interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type webhook struct {
	id    string
	token string
}

// DiscordNotifier delivers tier alerts as rich embeds to per-tier webhooks.
// One delivery attempt plus exactly one retry; a failed delivery is logged
// and reported to the caller, which must not mark the token notified.
type DiscordNotifier struct {
	sender     webhookSender
	mid        webhook
	high       webhook
	username   string
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewDiscord(cfg config.NotifyConfig, logger *zap.Logger) (*DiscordNotifier, error) {
	mid, err := parseWebhookURL(cfg.MidWebhook)
	if err != nil {
		return nil, fmt.Errorf("mid webhook: %w", err)
	}
	high, err := parseWebhookURL(cfg.HighWebhook)
	if err != nil {
		return nil, fmt.Errorf("high webhook: %w", err)
	}
	// Webhook execution needs no bot token.
	session, err := discordgo.New("")
	if err != nil {
		return nil, err
	}
	return &DiscordNotifier{
		sender:     session,
		mid:        mid,
		high:       high,
		username:   cfg.Username,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}, nil
}

func (n *DiscordNotifier) Notify(ctx context.Context, snap *models.MarketSnapshot, tier models.Tier) error {
	var hook webhook
	switch tier {
	case models.TierMid:
		hook = n.mid
	case models.TierHigh:
		hook = n.high
	default:
		return fmt.Errorf("no channel for tier %s", tier)
	}

	params := &discordgo.WebhookParams{
		Username: n.username,
		Embeds:   []*discordgo.MessageEmbed{buildEmbed(snap, tier)},
	}

	_, err := n.sender.WebhookExecute(hook.id, hook.token, true, params)
	if err == nil {
		return nil
	}
	if n.logger != nil {
		n.logger.Warn("webhook delivery failed, retrying once",
			zap.String("address", snap.Address), zap.String("tier", tier.String()), zap.Error(err))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(n.retryDelay):
	}
	_, err = n.sender.WebhookExecute(hook.id, hook.token, true, params)
	if err != nil && n.logger != nil {
		n.logger.Warn("webhook delivery failed after retry",
			zap.String("address", snap.Address), zap.String("tier", tier.String()), zap.Error(err))
	}
	return err
}

func buildEmbed(snap *models.MarketSnapshot, tier models.Tier) *discordgo.MessageEmbed {
	title := fmt.Sprintf("%s · market cap $%s", displayName(snap), snap.MarketCap.Round(0).String())
	color := colorMid
	if tier == models.TierHigh {
		color = colorHigh
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Tier", Value: tier.String(), Inline: true},
		{Name: "Price", Value: "$" + snap.PriceUSD.String(), Inline: true},
		{Name: "Market Cap", Value: "$" + snap.MarketCap.Round(0).String(), Inline: true},
		{Name: "Volume 1h", Value: "$" + snap.Volume1h.Round(0).String(), Inline: true},
		{Name: "Txns 5m / 1h", Value: fmt.Sprintf("%d / %d", snap.Txns5m, snap.Txns1h), Inline: true},
		{Name: "Venue", Value: orDash(snap.Venue), Inline: true},
		{Name: "Token", Value: snap.Address, Inline: false},
	}

	embed := &discordgo.MessageEmbed{
		Title:     title,
		URL:       snap.URL,
		Color:     color,
		Fields:    fields,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if snap.ImageURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: snap.ImageURL}
	}
	return embed
}

func displayName(snap *models.MarketSnapshot) string {
	if snap.Symbol != "" {
		return snap.Symbol
	}
	if snap.Name != "" {
		return snap.Name
	}
	return snap.Address
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// parseWebhookURL splits a Discord webhook URL into its id and token parts.
func parseWebhookURL(raw string) (webhook, error) {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "/")
	marker := "/webhooks/"
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return webhook{}, fmt.Errorf("not a webhook url")
	}
	rest := raw[idx+len(marker):]
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return webhook{}, fmt.Errorf("malformed webhook url")
	}
	return webhook{id: parts[0], token: parts[1]}, nil
}
