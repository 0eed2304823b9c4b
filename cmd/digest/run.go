package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/paperwire/arxiv-digest/internal/config"
	"github.com/paperwire/arxiv-digest/internal/digest"
	"github.com/paperwire/arxiv-digest/internal/enrich"
	"github.com/paperwire/arxiv-digest/internal/feishu"
	"github.com/paperwire/arxiv-digest/internal/history"
	"github.com/paperwire/arxiv-digest/internal/llm"
	"github.com/paperwire/arxiv-digest/internal/observability"
	"github.com/paperwire/arxiv-digest/internal/sources"
	"github.com/paperwire/arxiv-digest/internal/sources/arxiv"
	"github.com/paperwire/arxiv-digest/internal/sources/pwc"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one digest cycle",
	Long: `run fetches the configured feed, enriches every paper not yet
delivered and posts the digest card to the configured webhook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = observability.WithRunContext(logger, uuid.NewString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := llm.NewClient(llm.FactoryConfig{
		Provider:    cfg.LLM.Provider,
		Lang:        cfg.LLM.Lang,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.LLM.OpenAI.APIKey,
			Model:   cfg.LLM.OpenAI.Model,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey:  cfg.LLM.Anthropic.APIKey,
			Model:   cfg.LLM.Anthropic.Model,
			BaseURL: cfg.LLM.Anthropic.BaseURL,
		},
	})
	if err != nil {
		return fmt.Errorf("creating LLM client: %w", err)
	}

	arxivClient := arxiv.New(arxiv.Config{
		BaseURL:       cfg.Arxiv.BaseURL,
		EPrintBaseURL: cfg.Arxiv.EPrintBaseURL,
		HTMLBaseURL:   cfg.Arxiv.HTMLBaseURL,
		Timeout:       cfg.Arxiv.Timeout,
		RateLimit:     cfg.Arxiv.RateLimit,
		MaxResults:    cfg.Arxiv.MaxResults,
	})

	pages := enrich.NewHTMLPages(
		sources.NewHTTPClient(sources.HTTPClientConfig{Timeout: cfg.Arxiv.Timeout}),
		arxivClient.PageURL,
	)

	var repos enrich.RepoResolver = digest.NoRepoResolver{}
	if cfg.PapersWithCode.Enabled {
		repos = pwc.New(
			pwc.Config{BaseURL: cfg.PapersWithCode.BaseURL},
			sources.NewHTTPClient(sources.HTTPClientConfig{}),
		)
	}

	store, err := history.Open(cfg.History.Path, logger)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	bot := feishu.NewBot(
		feishu.Config{WebhookURL: cfg.Feishu.WebhookURL, Secret: cfg.Feishu.Secret},
		sources.NewHTTPClient(sources.HTTPClientConfig{}),
		logger,
	)

	runner := digest.NewRunner(
		digest.Config{
			Categories: cfg.Arxiv.Categories,
			MaxResults: cfg.Arxiv.MaxResults,
			MaxPapers:  cfg.Digest.MaxPapers,
			SendEmpty:  cfg.Digest.SendEmpty,
		},
		arxivClient,
		store,
		bot,
		enrich.Deps{
			LLM:     client,
			Archive: arxivClient,
			Pages:   pages,
			Repos:   repos,
			Logger:  logger,
		},
		logger,
	)

	if err := runner.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("digest run failed")
		return err
	}
	return nil
}
