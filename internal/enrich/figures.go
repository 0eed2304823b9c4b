package enrich

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/paperwire/arxiv-digest/internal/llm"
)

var firstInteger = regexp.MustCompile(`-?\d+`)

const figureSystemPrompt = "You are an assistant who analyses paper figures. Given a list of figure " +
	"descriptions, pick the figure that best depicts the model architecture or framework. Return only " +
	"a single number, nothing else."

// frameworkFigureStrategy selects the URL of the figure best depicting the
// paper's architecture. With a single candidate the model is not consulted.
// Any unusable model reply falls back to the first candidate: the strategy
// always yields a URL when the page has at least one figure.
func frameworkFigureStrategy(client llm.Client, pages PageFetcher, arxivID string, logger zerolog.Logger) Strategy[string] {
	return Strategy[string]{
		Name: "framework-figure",
		Run: func(ctx context.Context) (string, bool, error) {
			page, err := pages.FetchPage(ctx, arxivID)
			if err != nil {
				return "", false, fmt.Errorf("fetching rendered page: %w", err)
			}

			figures := page.Figures()
			if len(figures) == 0 {
				logger.Debug().Msg("no figures on rendered page")
				return "", false, nil
			}
			if len(figures) == 1 {
				return figures[0].URL, true, nil
			}

			idx := selectFigureIndex(ctx, client, figures, logger)
			if idx < 0 || idx >= len(figures) {
				idx = 0
			}
			return figures[idx].URL, true, nil
		},
	}
}

// selectFigureIndex asks the model for a zero-based index into figures.
// Any failure or unparseable reply returns -1 so the caller falls back.
func selectFigureIndex(ctx context.Context, client llm.Client, figures []Figure, logger zerolog.Logger) int {
	var sb strings.Builder
	sb.WriteString("Below are the figure descriptions from a paper. Pick the figure that best shows " +
		"the model framework or architecture and return only its zero-based index. " +
		"Return -1 if no figure qualifies:\n")
	for i, fig := range figures {
		caption := fig.CaptionText()
		if caption == "" {
			caption = "(no description)"
		}
		fmt.Fprintf(&sb, "%d: %s\n", i, caption)
	}

	reply, err := client.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: figureSystemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	})
	if err != nil {
		logger.Debug().Err(err).Msg("figure selection call failed")
		return -1
	}

	token := firstInteger.FindString(reply)
	if token == "" {
		logger.Debug().Str("reply", reply).Msg("no index in figure selection reply")
		return -1
	}
	idx, err := strconv.Atoi(token)
	if err != nil {
		return -1
	}
	return idx
}
