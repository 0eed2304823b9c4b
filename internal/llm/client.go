// Package llm provides the language-model capability the enrichment
// pipeline depends on.
//
// The pipeline only needs one contract from a model provider: turn an
// ordered list of chat messages into text, in a configured target natural
// language. Providers (OpenAI, Anthropic) implement this over their raw
// HTTP APIs; retry and timeout policy live inside the provider, not in
// the callers.
package llm

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client defines the language-model capability.
//
// Implementations must be safe for concurrent use. Components receive a
// Client at construction; there is no process-wide accessor, so tests can
// substitute a deterministic fake.
type Client interface {
	// Generate produces a completion for the given messages.
	Generate(ctx context.Context, messages []Message) (string, error)

	// Lang returns the configured target natural language for translations
	// (e.g. "Chinese", "English").
	Lang() string

	// Provider returns the provider name (e.g. "openai", "anthropic").
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}
