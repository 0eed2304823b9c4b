package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/paperwire/arxiv-digest/internal/sources"
)

// Config holds the webhook settings for a custom bot.
type Config struct {
	WebhookURL string
	// Secret enables signature verification when non-empty.
	Secret string
}

// Bot delivers digest cards to a group chat through a custom bot webhook.
type Bot struct {
	config     Config
	httpClient *sources.HTTPClient
	logger     zerolog.Logger
	now        func() time.Time
}

// NewBot creates a Bot using the given retrying HTTP client.
func NewBot(config Config, httpClient *sources.HTTPClient, logger zerolog.Logger) *Bot {
	return &Bot{
		config:     config,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "feishu").Logger(),
		now:        time.Now,
	}
}

// webhookResponse is the webhook API's reply envelope.
type webhookResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Send posts the digest card for papers to the configured webhook. An
// empty slice sends the rest-day card rather than nothing, so the chat
// still hears from the bot every run.
func (b *Bot) Send(ctx context.Context, papers []Paper) error {
	var msg message
	if len(papers) == 0 {
		msg = emptyCard()
	} else {
		msg = fullCard(papers, b.now())
	}

	if b.config.Secret != "" {
		timestamp := b.now().Unix()
		msg.Timestamp = fmt.Sprintf("%d", timestamp)
		msg.Sign = GenSign(timestamp, b.config.Secret)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.config.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading webhook response: %w", err)
	}

	var result webhookResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decoding webhook response: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("webhook rejected message: code %d: %s", result.Code, result.Msg)
	}

	b.logger.Info().Int("papers", len(papers)).Msg("digest card delivered")
	return nil
}
