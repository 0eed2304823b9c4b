package enrich

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/paperwire/arxiv-digest/internal/domain"
	"github.com/paperwire/arxiv-digest/internal/llm"
	"github.com/paperwire/arxiv-digest/internal/observability"
)

// ArchiveFetcher downloads a paper's source archive into a temporary
// location. A missing archive is reported with domain.ErrNotFound.
type ArchiveFetcher interface {
	FetchSourceToTemp(ctx context.Context, arxivID string) (path string, cleanup func(), err error)
}

// PageFetcher retrieves the rendered page for a paper.
type PageFetcher interface {
	FetchPage(ctx context.Context, arxivID string) (*Page, error)
}

// RepoResolver looks up the code repository published for a paper. A paper
// without a repository is reported with domain.ErrNotFound.
type RepoResolver interface {
	RepositoryURL(ctx context.Context, arxivID string) (string, error)
}

// Deps bundles the collaborators a Record draws on. Every field is an
// explicit capability so tests can substitute deterministic fakes.
type Deps struct {
	LLM     llm.Client
	Archive ArchiveFetcher
	Pages   PageFetcher
	Repos   RepoResolver
	Logger  zerolog.Logger
}

// memo is a compute-once cell. Records are never shared across goroutines,
// so no locking is needed; the cell only guarantees the exactly-once
// contract for repeated accessor calls.
type memo[T any] struct {
	done  bool
	value T
}

func (m *memo[T]) get(compute func() T) T {
	if !m.done {
		m.value = compute()
		m.done = true
	}
	return m.value
}

// fallibleMemo memoizes successful results only: a failed computation is
// reported to the caller and retried on the next access.
type fallibleMemo[T any] struct {
	done  bool
	value T
}

func (m *fallibleMemo[T]) get(compute func() (T, error)) (T, error) {
	if m.done {
		return m.value, nil
	}
	value, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	m.value = value
	m.done = true
	return value, nil
}

// Record is a paper record augmented with lazily computed enrichment
// fields. Each field is computed on first access and memoized; which
// network and model calls happen depends entirely on which accessors the
// caller exercises.
type Record struct {
	domain.SourceRecord

	// Score is an optional caller-assigned relevance score.
	Score *float64

	deps   Deps
	logger zerolog.Logger

	doc        memo[*Document]
	summary    fallibleMemo[string]
	affils     memo[[]string]
	pageAffils memo[[]string]
	figureURL  memo[string]
	codeURL    memo[string]
}

// NewRecord wraps a source record with enrichment capabilities.
func NewRecord(source domain.SourceRecord, deps Deps) *Record {
	return &Record{
		SourceRecord: source,
		deps:         deps,
		logger:       observability.WithPaperContext(deps.Logger, source.ArxivID),
	}
}

// AssembledDocument reconstructs the paper's typesetting source. It
// returns nil when the archive is missing, unreadable or contains no
// typesetting files; that absence is itself memoized.
func (r *Record) AssembledDocument(ctx context.Context) *Document {
	return r.doc.get(func() *Document {
		path, cleanup, err := r.deps.Archive.FetchSourceToTemp(ctx, r.ArxivID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				r.logger.Debug().Msg("no source archive for paper")
			} else {
				r.logger.Debug().Err(err).Msg("source archive fetch failed")
			}
			return nil
		}
		defer cleanup()

		return NewAssembler(r.logger).Assemble(path)
	})
}

// TranslatedSummary returns the abstract translated into the configured
// target language. Unlike every other enrichment field this one is
// required downstream, so a model failure propagates; only a successful
// translation is memoized.
func (r *Record) TranslatedSummary(ctx context.Context) (string, error) {
	return r.summary.get(func() (string, error) {
		return TranslateSummary(ctx, r.deps.LLM, r.Title, r.Abstract, r.AssembledDocument(ctx))
	})
}

// Affiliations extracts author affiliations from the assembled document
// via the model. It returns nil when the document is unavailable, has no
// author-information region, or the model reply cannot be parsed.
func (r *Record) Affiliations(ctx context.Context) []string {
	return r.affils.get(func() []string {
		logger := observability.WithStrategyContext(r.logger, "affiliations", "document")
		value, ok := firstSuccess(ctx, logger,
			documentAffiliationStrategy(r.deps.LLM, r.AssembledDocument(ctx), logger))
		if !ok {
			return nil
		}
		return value
	})
}

// AffiliationsFromPage extracts author affiliations from the rendered
// page, falling back to the document-based Affiliations result when the
// page is unavailable or yields nothing.
func (r *Record) AffiliationsFromPage(ctx context.Context) []string {
	return r.pageAffils.get(func() []string {
		logger := observability.WithStrategyContext(r.logger, "affiliations", "page")
		value, ok := firstSuccess(ctx, logger,
			pageAffiliationStrategy(r.deps.Pages, r.ArxivID, logger))
		if ok {
			return value
		}
		return r.Affiliations(ctx)
	})
}

// FigureURL returns the URL of the figure best depicting the paper's
// architecture, or "" when the rendered page is unavailable or has no
// figures.
func (r *Record) FigureURL(ctx context.Context) string {
	return r.figureURL.get(func() string {
		logger := observability.WithStrategyContext(r.logger, "figure", "page")
		value, ok := firstSuccess(ctx, logger,
			frameworkFigureStrategy(r.deps.LLM, r.deps.Pages, r.ArxivID, logger))
		if !ok {
			return ""
		}
		return value
	})
}

// CodeURL returns the paper's published code repository URL, or "" when
// none is known. Lookup failures degrade to "" as well.
func (r *Record) CodeURL(ctx context.Context) string {
	return r.codeURL.get(func() string {
		url, err := r.deps.Repos.RepositoryURL(ctx, r.ArxivID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				r.logger.Debug().Msg("no code repository for paper")
			} else {
				r.logger.Debug().Err(err).Msg("code repository lookup failed")
			}
			return ""
		}
		return url
	})
}
