package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"

	"tokenwatch/internal/config"
	"tokenwatch/internal/models"
)

type stubSender struct {
	failNext int
	calls    []struct {
		id     string
		token  string
		params *discordgo.WebhookParams
	}
}

func (s *stubSender) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.calls = append(s.calls, struct {
		id     string
		token  string
		params *discordgo.WebhookParams
	}{webhookID, token, data})
	if s.failNext > 0 {
		s.failNext--
		return nil, errors.New("http 502")
	}
	return &discordgo.Message{}, nil
}

func testNotifier(sender webhookSender) *DiscordNotifier {
	return &DiscordNotifier{
		sender:     sender,
		mid:        webhook{id: "mid-id", token: "mid-token"},
		high:       webhook{id: "high-id", token: "high-token"},
		username:   "tokenwatch",
		retryDelay: time.Millisecond,
	}
}

func testSnapshot() *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Address:   "So1anaTokenAddr",
		Symbol:    "TST",
		Venue:     "raydium",
		PriceUSD:  decimal.NewFromFloat(0.000031),
		MarketCap: decimal.NewFromFloat(31250),
		Volume1h:  decimal.NewFromFloat(12000),
		Txns5m:    12,
		Txns1h:    140,
		URL:       "https://dexscreener.com/solana/pair",
		ImageURL:  "https://cdn.example.com/icon.png",
	}
}

func TestNotifyRoutesByTier(t *testing.T) {
	sender := &stubSender{}
	n := testNotifier(sender)

	if err := n.Notify(context.Background(), testSnapshot(), models.TierMid); err != nil {
		t.Fatalf("Notify mid: %v", err)
	}
	if err := n.Notify(context.Background(), testSnapshot(), models.TierHigh); err != nil {
		t.Fatalf("Notify high: %v", err)
	}
	if len(sender.calls) != 2 {
		t.Fatalf("calls=%d want=2", len(sender.calls))
	}
	if sender.calls[0].id != "mid-id" || sender.calls[1].id != "high-id" {
		t.Fatalf("webhook routing wrong: %s, %s", sender.calls[0].id, sender.calls[1].id)
	}
	if err := n.Notify(context.Background(), testSnapshot(), models.TierNone); err == nil {
		t.Fatalf("tier none must be rejected")
	}
}

func TestNotifyRetriesOnce(t *testing.T) {
	sender := &stubSender{failNext: 1}
	n := testNotifier(sender)

	if err := n.Notify(context.Background(), testSnapshot(), models.TierMid); err != nil {
		t.Fatalf("Notify should succeed on the retry: %v", err)
	}
	if len(sender.calls) != 2 {
		t.Fatalf("calls=%d want=2", len(sender.calls))
	}
}

func TestNotifyGivesUpAfterRetry(t *testing.T) {
	sender := &stubSender{failNext: 5}
	n := testNotifier(sender)

	if err := n.Notify(context.Background(), testSnapshot(), models.TierMid); err == nil {
		t.Fatalf("expected error after exhausted retry")
	}
	if len(sender.calls) != 2 {
		t.Fatalf("calls=%d want=2, exactly one retry", len(sender.calls))
	}
}

func TestNotifyRetryRespectsContext(t *testing.T) {
	sender := &stubSender{failNext: 5}
	n := testNotifier(sender)
	n.retryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := n.Notify(ctx, testSnapshot(), models.TierMid)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("calls=%d want=1, retry must not fire on canceled context", len(sender.calls))
	}
}

func TestBuildEmbed(t *testing.T) {
	snap := testSnapshot()

	embed := buildEmbed(snap, models.TierMid)
	if embed.Color != colorMid {
		t.Fatalf("color=%#x want=%#x", embed.Color, colorMid)
	}
	if embed.Title != "TST · market cap $31250" {
		t.Fatalf("title=%q", embed.Title)
	}
	if embed.Thumbnail == nil || embed.Thumbnail.URL != snap.ImageURL {
		t.Fatalf("thumbnail missing or wrong: %+v", embed.Thumbnail)
	}
	if len(embed.Fields) != 7 {
		t.Fatalf("fields=%d want=7", len(embed.Fields))
	}
	if embed.Fields[0].Value != "mid" {
		t.Fatalf("tier field=%q want=mid", embed.Fields[0].Value)
	}
	if _, err := time.Parse(time.RFC3339, embed.Timestamp); err != nil {
		t.Fatalf("timestamp %q not RFC3339: %v", embed.Timestamp, err)
	}

	embed = buildEmbed(snap, models.TierHigh)
	if embed.Color != colorHigh {
		t.Fatalf("color=%#x want=%#x", embed.Color, colorHigh)
	}

	// No symbol or name: the address is the only stable handle.
	snap.Symbol, snap.Name = "", ""
	snap.ImageURL = ""
	embed = buildEmbed(snap, models.TierMid)
	if embed.Title != "So1anaTokenAddr · market cap $31250" {
		t.Fatalf("title=%q", embed.Title)
	}
	if embed.Thumbnail != nil {
		t.Fatalf("thumbnail should be omitted without an image")
	}
}

func TestParseWebhookURL(t *testing.T) {
	got, err := parseWebhookURL("https://discord.com/api/webhooks/123456/abc-def")
	if err != nil {
		t.Fatalf("parseWebhookURL: %v", err)
	}
	if got.id != "123456" || got.token != "abc-def" {
		t.Fatalf("id=%s token=%s", got.id, got.token)
	}

	if _, err := parseWebhookURL("https://discord.com/api/webhooks/123456/abc/extra"); err == nil {
		t.Fatalf("expected error for extra path segment")
	}
	if _, err := parseWebhookURL("https://example.com/not-a-webhook"); err == nil {
		t.Fatalf("expected error for non-webhook url")
	}
	if _, err := parseWebhookURL(""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestNewDiscordValidatesWebhooks(t *testing.T) {
	cfg := config.NotifyConfig{
		MidWebhook:  "https://discord.com/api/webhooks/1/a",
		HighWebhook: "nonsense",
		RetryDelay:  time.Second,
	}
	if _, err := NewDiscord(cfg, nil); err == nil {
		t.Fatalf("expected error for malformed high webhook")
	}

	cfg.HighWebhook = "https://discord.com/api/webhooks/2/b"
	n, err := NewDiscord(cfg, nil)
	if err != nil {
		t.Fatalf("NewDiscord: %v", err)
	}
	if n.mid.id != "1" || n.high.id != "2" {
		t.Fatalf("webhook ids=%s,%s want=1,2", n.mid.id, n.high.id)
	}
}
