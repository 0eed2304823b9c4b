package enrich

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/paperwire/arxiv-digest/internal/llm"
)

// Author-information region candidates, tried in order.
var authorRegions = []*regexp.Regexp{
	regexp.MustCompile(`(?s)\\author.*?\\maketitle`),
	regexp.MustCompile(`(?s)\\begin\{document\}.*?\\begin\{abstract\}`),
}

const (
	maxPageAffiliations = 5
	affiliationRuneCap  = 80
)

const affiliationSystemPrompt = "You are an assistant who perfectly extracts affiliations of authors " +
	"from the author information of a paper. You should return a list of affiliations sorted by the " +
	"author order, like ['TsingHua University','Peking University']. If an affiliation is consisted of " +
	"multi-level affiliations, like 'Department of Computer Science, TsingHua University', you should " +
	"return the top-level affiliation 'TsingHua University' only. Do not contain duplicated affiliations. " +
	"If there is no affiliation found, you should return an empty list [ ]. You should only return the " +
	"final list of affiliations, and do not return any intermediate results."

// documentAffiliationStrategy extracts affiliations from the assembled
// document by handing its author-information region to the model and
// parsing the reply as a string list.
func documentAffiliationStrategy(client llm.Client, doc *Document, logger zerolog.Logger) Strategy[[]string] {
	return Strategy[[]string]{
		Name: "document",
		Run: func(ctx context.Context) ([]string, bool, error) {
			if doc == nil {
				return nil, false, nil
			}

			region := findAuthorRegion(doc.FullText())
			if region == "" {
				logger.Debug().Msg("no author information region in document")
				return nil, false, nil
			}

			prompt := fmt.Sprintf("Given the author information of a paper in latex format, extract "+
				"the affiliations of the authors in a list format, which is sorted by the author order. "+
				"If there is no affiliation found, return an empty list '[]'. "+
				"Following is the author information:\n%s", region)
			prompt = llm.TruncateToBudget(prompt, llm.PromptTokenBudget)

			reply, err := client.Generate(ctx, []llm.Message{
				{Role: llm.RoleSystem, Content: affiliationSystemPrompt},
				{Role: llm.RoleUser, Content: prompt},
			})
			if err != nil {
				return nil, false, fmt.Errorf("extracting affiliations: %w", err)
			}

			names, err := extractStringList(reply)
			if err != nil {
				logger.Debug().Err(err).Msg("model reply is not a parseable list")
				return nil, false, nil
			}
			return dedupePreservingOrder(names), true, nil
		},
	}
}

// pageAffiliationStrategy scrapes affiliations from the rendered page.
// Entries are truncated to 80 characters, deduplicated by the truncated
// value in first-seen order and capped at 5. An empty scrape is treated
// as absence so the chain can fall back to the document strategy.
func pageAffiliationStrategy(pages PageFetcher, arxivID string, logger zerolog.Logger) Strategy[[]string] {
	return Strategy[[]string]{
		Name: "page",
		Run: func(ctx context.Context) ([]string, bool, error) {
			page, err := pages.FetchPage(ctx, arxivID)
			if err != nil {
				return nil, false, fmt.Errorf("fetching rendered page: %w", err)
			}

			var out []string
			seen := make(map[string]bool)
			for _, text := range page.AffiliationTexts() {
				text = truncateRunes(text, affiliationRuneCap)
				if seen[text] {
					continue
				}
				seen[text] = true
				out = append(out, text)
				if len(out) == maxPageAffiliations {
					break
				}
			}
			if len(out) == 0 {
				logger.Debug().Msg("rendered page has no affiliation elements")
				return nil, false, nil
			}
			return out, true, nil
		},
	}
}

// findAuthorRegion returns the first author-information span found in the
// document text, or "" when none of the region patterns match.
func findAuthorRegion(text string) string {
	for _, re := range authorRegions {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// dedupePreservingOrder removes repeats while keeping first-seen order.
func dedupePreservingOrder(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
