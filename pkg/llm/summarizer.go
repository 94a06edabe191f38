package llm

import "context"

// summaryResponse is the §4.8 structured response shape.
type summaryResponse struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// SummarizerClient implements coordinator.LLMClient over a Client.
type SummarizerClient struct {
	client *Client
}

// NewSummarizerClient wraps client for use as a coordinator.LLMClient.
func NewSummarizerClient(client *Client) *SummarizerClient {
	return &SummarizerClient{client: client}
}

func (s *SummarizerClient) ModelID() string { return s.client.ModelID() }

const summarizerSystemPrompt = `You summarize a live, in-progress conversation transcript.
Respond with JSON only, no prose, matching exactly:
{"summary": "<one or two sentence summary of the new text>", "key_points": ["<short point>", ...]}`

// Summarize implements coordinator.LLMClient.
func (s *SummarizerClient) Summarize(ctx context.Context, text string) (string, []string, error) {
	var resp summaryResponse
	if err := s.client.completeJSON(ctx, summarizerSystemPrompt, text, 0, &resp); err != nil {
		return "", nil, err
	}
	return resp.Summary, resp.KeyPoints, nil
}
