// Package digest orchestrates one end-to-end run: fetch recent papers,
// drop the already-delivered ones, enrich the rest and deliver the card.
package digest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/paperwire/arxiv-digest/internal/domain"
	"github.com/paperwire/arxiv-digest/internal/enrich"
	"github.com/paperwire/arxiv-digest/internal/feishu"
)

// FeedSource lists recently announced papers.
type FeedSource interface {
	FetchRecent(ctx context.Context, categories []string, maxResults int) ([]domain.SourceRecord, error)
}

// History is the sent-paper ledger.
type History interface {
	Seen(ctx context.Context, arxivID string) (bool, error)
	MarkSent(ctx context.Context, arxivID string) error
}

// Sender delivers a finished digest.
type Sender interface {
	Send(ctx context.Context, papers []feishu.Paper) error
}

// NoRepoResolver is a RepoResolver for deployments with repository lookup
// disabled; every paper resolves to "no code".
type NoRepoResolver struct{}

func (NoRepoResolver) RepositoryURL(_ context.Context, arxivID string) (string, error) {
	return "", domain.NewNotFoundError("repository", arxivID)
}

// Config holds run-level settings.
type Config struct {
	// Categories are the subject categories to pull from the feed.
	Categories []string
	// MaxResults is the maximum papers fetched from the feed.
	MaxResults int
	// MaxPapers caps how many papers one digest may contain.
	MaxPapers int
	// SendEmpty sends the rest-day card when a run has no new papers.
	SendEmpty bool
}

// Runner drives one digest run.
type Runner struct {
	config  Config
	feed    FeedSource
	history History
	sender  Sender
	enrich  enrich.Deps
	logger  zerolog.Logger
}

// NewRunner assembles a Runner from its collaborators. The enrich deps are
// shared by every record of a run.
func NewRunner(config Config, feed FeedSource, history History, sender Sender, enrichDeps enrich.Deps, logger zerolog.Logger) *Runner {
	return &Runner{
		config:  config,
		feed:    feed,
		history: history,
		sender:  sender,
		enrich:  enrichDeps,
		logger:  logger.With().Str("component", "digest").Logger(),
	}
}

// Run executes one digest cycle. Papers whose summary translation fails
// are skipped with an error log; the run itself fails only when the feed,
// the delivery or the ledger fails, or when every candidate paper was
// skipped.
func (r *Runner) Run(ctx context.Context) error {
	records, err := r.feed.FetchRecent(ctx, r.config.Categories, r.config.MaxResults)
	if err != nil {
		return fmt.Errorf("fetching feed: %w", err)
	}
	r.logger.Info().Int("papers", len(records)).Msg("feed fetched")

	fresh, err := r.filterSeen(ctx, records)
	if err != nil {
		return err
	}
	if len(fresh) > r.config.MaxPapers {
		fresh = fresh[:r.config.MaxPapers]
	}

	papers, skipped := r.enrichAll(ctx, fresh)
	if len(papers) == 0 && skipped > 0 {
		return fmt.Errorf("all %d candidate papers failed enrichment", skipped)
	}
	if len(papers) == 0 && !r.config.SendEmpty {
		r.logger.Info().Msg("no new papers and empty sends are disabled")
		return nil
	}

	if err := r.sender.Send(ctx, papers); err != nil {
		return fmt.Errorf("delivering digest: %w", err)
	}

	for _, paper := range papers {
		if err := r.history.MarkSent(ctx, paper.ArxivID); err != nil {
			return fmt.Errorf("recording sent paper %s: %w", paper.ArxivID, err)
		}
	}

	r.logger.Info().Int("delivered", len(papers)).Int("skipped", skipped).Msg("digest run complete")
	return nil
}

func (r *Runner) filterSeen(ctx context.Context, records []domain.SourceRecord) ([]domain.SourceRecord, error) {
	fresh := make([]domain.SourceRecord, 0, len(records))
	for _, record := range records {
		seen, err := r.history.Seen(ctx, record.ArxivID)
		if err != nil {
			return nil, fmt.Errorf("checking history for %s: %w", record.ArxivID, err)
		}
		if !seen {
			fresh = append(fresh, record)
		}
	}
	return fresh, nil
}

// enrichAll turns source records into rendered papers. A record whose
// translation fails is dropped; every other enrichment field degrades to
// absence on its own.
func (r *Runner) enrichAll(ctx context.Context, records []domain.SourceRecord) ([]feishu.Paper, int) {
	papers := make([]feishu.Paper, 0, len(records))
	skipped := 0
	for _, source := range records {
		record := enrich.NewRecord(source, r.enrich)

		tldr, err := record.TranslatedSummary(ctx)
		if err != nil {
			r.logger.Error().Err(err).Str("arxiv_id", source.ArxivID).Msg("summary translation failed, skipping paper")
			skipped++
			continue
		}

		papers = append(papers, feishu.Paper{
			ArxivID:      source.ArxivID,
			Title:        source.Title,
			Authors:      source.AuthorNames(),
			Affiliations: record.AffiliationsFromPage(ctx),
			Score:        record.Score,
			TLDR:         tldr,
			AbsURL:       source.AbsURL,
			PDFURL:       source.PDFLink(),
			CodeURL:      record.CodeURL(ctx),
			FigureURL:    record.FigureURL(ctx),
		})
	}
	return papers, skipped
}
