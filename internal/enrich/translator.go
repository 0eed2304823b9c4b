package enrich

import (
	"context"
	"fmt"
	"regexp"

	"github.com/paperwire/arxiv-digest/internal/llm"
)

// Patterns for conditioning-context extraction from the assembled document.
var (
	citeCommand = regexp.MustCompile(`~?\\cite.?\{.*?\}`)
	figureEnv   = regexp.MustCompile(`(?s)\\begin\{figure\}.*?\\end\{figure\}`)
	tableEnv    = regexp.MustCompile(`(?s)\\begin\{table\}.*?\\end\{table\}`)

	introSection      = regexp.MustCompile(`(?s)\\section\{Introduction\}.*?(\\section|\\end\{document\}|\\bibliography|\\appendix|$)`)
	conclusionSection = regexp.MustCompile(`(?s)\\section\{Conclusion\}.*?(\\section|\\end\{document\}|\\bibliography|\\appendix|$)`)
)

const translationSystemPrompt = "You are a professional academic translator. Translate the given " +
	"paper abstract into the requested language completely and faithfully, in an academic register. " +
	"Do not oversimplify or omit content. Return only the translation."

// TranslateSummary produces a translated abstract in the client's
// configured target language. The assembled document, when available,
// contributes its introduction and conclusion as conditioning context. A
// model failure here is a hard failure: the translated summary is a
// required output.
func TranslateSummary(ctx context.Context, client llm.Client, title, abstract string, doc *Document) (string, error) {
	prompt := fmt.Sprintf("Translate the following paper abstract into %s, keeping it complete; "+
		"do not oversimplify or omit content:\n\nTitle: %s\n\nAbstract:\n%s",
		client.Lang(), title, abstract)

	if doc != nil {
		intro, conclusion := extractSectionContext(doc.FullText())
		if intro != "" || conclusion != "" {
			// Truncation below preserves the head, so the title and abstract
			// always survive even when the context is oversized.
			prompt += fmt.Sprintf("\n\nAdditional context from the paper body:\n%s\n%s", intro, conclusion)
		}
	}
	prompt = llm.TruncateToBudget(prompt, llm.PromptTokenBudget)

	reply, err := client.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: translationSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("translating summary: %w", err)
	}
	return reply, nil
}

// extractSectionContext pulls the introduction and conclusion spans out of
// the document text, with citation, figure and table noise removed. Either
// span is empty when its section heading is not present.
func extractSectionContext(text string) (introduction, conclusion string) {
	text = citeCommand.ReplaceAllString(text, "")
	text = figureEnv.ReplaceAllString(text, "")
	text = tableEnv.ReplaceAllString(text, "")

	introduction = introSection.FindString(text)
	conclusion = conclusionSection.FindString(text)
	return introduction, conclusion
}
