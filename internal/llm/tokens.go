package llm

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// PromptTokenBudget is the fixed budget every prompt in the pipeline is
// truncated to before submission.
const PromptTokenBudget = 4000

// codec is the shared token encoding used for budget measurement across the
// system. o200k_base matches the gpt-4o family used for estimation.
var codec = sync.OnceValues(func() (tokenizer.Codec, error) {
	return tokenizer.Get(tokenizer.O200kBase)
})

// TruncateToBudget returns text truncated to at most budget tokens,
// preserving the head. Text already within budget is returned unchanged.
// If the encoding is unavailable the text passes through untruncated rather
// than failing the call.
func TruncateToBudget(text string, budget int) string {
	if budget <= 0 {
		return ""
	}

	enc, err := codec()
	if err != nil {
		return text
	}

	ids, _, err := enc.Encode(text)
	if err != nil || len(ids) <= budget {
		return text
	}

	truncated, err := enc.Decode(ids[:budget])
	if err != nil {
		return text
	}
	return truncated
}

// CountTokens returns the token count of text under the shared encoding,
// or -1 when the encoding is unavailable.
func CountTokens(text string) int {
	enc, err := codec()
	if err != nil {
		return -1
	}
	ids, _, err := enc.Encode(text)
	if err != nil {
		return -1
	}
	return len(ids)
}
