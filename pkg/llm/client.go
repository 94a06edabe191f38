// Package llm adapts github.com/mozilla-ai/any-llm-go, a unified
// multi-provider completion client, to this module's Summarizer and
// Parser collaborator interfaces.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"
)

// Client wraps a single any-llm-go backend and model id. It is the shared
// transport both SummarizerClient and ParserClient build their prompts
// on top of.
type Client struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a Client backed by the named provider. providerName is one
// of: openai, anthropic, gemini, ollama, deepseek, mistral, groq,
// llamacpp, llamafile. Without an explicit API-key option, each backend
// falls back to its own environment variable (OPENAI_API_KEY, etc).
func New(providerName, model string, opts ...anyllmlib.Option) (*Client, error) {
	if providerName == "" {
		return nil, fmt.Errorf("llm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("llm: model must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: create %q backend: %w", providerName, err)
	}
	return &Client{backend: backend, model: model}, nil
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// ModelID returns the model name this client was built with.
func (c *Client) ModelID() string { return c.model }

// completeJSON runs one completion call with systemPrompt/userText and
// parses the response content as JSON into out. any-llm-go backends are
// not guaranteed to honor a JSON-mode flag uniformly, so the prompt
// itself instructs the model to respond with JSON only, and any
// surrounding code fence is stripped before parsing.
func (c *Client) completeJSON(ctx context.Context, systemPrompt, userText string, maxTokens int, out any) error {
	params := anyllmlib.CompletionParams{
		Model: c.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: userText},
		},
	}
	if maxTokens > 0 {
		mt := maxTokens
		params.MaxTokens = &mt
	}

	resp, err := c.backend.Completion(ctx, params)
	if err != nil {
		return fmt.Errorf("llm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("llm: empty choices in response")
	}

	content := resp.Choices[0].Message.ContentString()
	content = stripCodeFence(content)

	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("llm: parse json response: %w", err)
	}
	return nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
