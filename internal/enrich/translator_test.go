package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperwire/arxiv-digest/internal/llm"
)

func TestTranslateSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("prompt names the target language, title and abstract", func(t *testing.T) {
		client := &fakeLLM{replies: []string{"la traduction"}, lang: "French"}

		out, err := TranslateSummary(ctx, client, "Deep Nets", "An abstract.", nil)
		require.NoError(t, err)
		assert.Equal(t, "la traduction", out)

		require.Len(t, client.lastMsgs, 2)
		assert.Equal(t, llm.RoleSystem, client.lastMsgs[0].Role)
		prompt := client.lastMsgs[1].Content
		assert.Contains(t, prompt, "French")
		assert.Contains(t, prompt, "Deep Nets")
		assert.Contains(t, prompt, "An abstract.")
	})

	t.Run("document sections join the prompt as context", func(t *testing.T) {
		client := &fakeLLM{replies: []string{"ok"}}
		doc := &Document{
			HasMain: true,
			Main: "\\begin{document}\n\\section{Introduction}\nWe begin.\n" +
				"\\section{Conclusion}\nWe end.\n\\end{document}",
		}

		_, err := TranslateSummary(ctx, client, "T", "A", doc)
		require.NoError(t, err)

		prompt := client.lastMsgs[1].Content
		assert.Contains(t, prompt, "We begin.")
		assert.Contains(t, prompt, "We end.")
	})

	t.Run("model failure propagates", func(t *testing.T) {
		client := &fakeLLM{err: assert.AnError}

		_, err := TranslateSummary(ctx, client, "T", "A", nil)
		assert.Error(t, err)
	})
}

func TestExtractSectionContext(t *testing.T) {
	t.Run("extracts introduction and conclusion spans", func(t *testing.T) {
		text := "\\section{Introduction}\nintro body\n\\section{Method}\nmiddle\n" +
			"\\section{Conclusion}\nfinal body\n\\end{document}"

		intro, conclusion := extractSectionContext(text)
		assert.Contains(t, intro, "intro body")
		assert.NotContains(t, intro, "middle")
		assert.Contains(t, conclusion, "final body")
	})

	t.Run("strips citations figures and tables", func(t *testing.T) {
		text := "\\section{Introduction}\nsee~\\cite{smith2020}\n" +
			"\\begin{figure}fig stuff\\end{figure}\n" +
			"\\begin{table}tab stuff\\end{table}\nrest\n\\end{document}"

		intro, _ := extractSectionContext(text)
		assert.NotContains(t, intro, "cite")
		assert.NotContains(t, intro, "fig stuff")
		assert.NotContains(t, intro, "tab stuff")
		assert.Contains(t, intro, "rest")
	})

	t.Run("missing sections yield empty spans", func(t *testing.T) {
		intro, conclusion := extractSectionContext("\\section{Method}\nonly a method\n")
		assert.Empty(t, intro)
		assert.Empty(t, conclusion)
	})
}
