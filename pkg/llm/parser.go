package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lokutor-ai/transcribe-coordinator/pkg/coordinator"
)

// parsedResponse is the §4.9 structured response shape.
type parsedResponse struct {
	ParsedText string         `json:"parsed_text"`
	Speakers   []int          `json:"speakers"`
	Timestamps []float64      `json:"timestamps"`
	Stats      map[string]any `json:"stats"`
}

// ParserClient implements coordinator.ParserClient over a Client.
type ParserClient struct {
	client          *Client
	maxOutputTokens int
}

// NewParserClient wraps client for use as a coordinator.ParserClient.
// maxOutputTokens should be cfg.ParserMaxOutputTokens.
func NewParserClient(client *Client, maxOutputTokens int) *ParserClient {
	return &ParserClient{client: client, maxOutputTokens: maxOutputTokens}
}

const parserSystemPrompt = `You normalize a raw streaming transcript fragment into clean, structured text.
Respond with JSON only, no prose, matching exactly:
{"parsed_text": "<cleaned text>", "speakers": [<int>, ...], "timestamps": [<float>, ...], "stats": {}}`

// Parse implements coordinator.ParserClient.
func (p *ParserClient) Parse(ctx context.Context, text string, speakers []int, timestamps []float64) (coordinator.ParsedTranscript, error) {
	userText := buildParserInput(text, speakers, timestamps)

	var resp parsedResponse
	if err := p.client.completeJSON(ctx, parserSystemPrompt, userText, p.maxOutputTokens, &resp); err != nil {
		return coordinator.ParsedTranscript{}, err
	}

	return coordinator.ParsedTranscript{
		ParsedText: resp.ParsedText,
		Speakers:   resp.Speakers,
		Timestamps: resp.Timestamps,
		Stats:      resp.Stats,
	}, nil
}

func buildParserInput(text string, speakers []int, timestamps []float64) string {
	var b strings.Builder
	b.WriteString(text)
	if len(speakers) > 0 {
		if encoded, err := json.Marshal(speakers); err == nil {
			fmt.Fprintf(&b, "\n\nspeaker_hints: %s", encoded)
		}
	}
	if len(timestamps) > 0 {
		if encoded, err := json.Marshal(timestamps); err == nil {
			fmt.Fprintf(&b, "\ntimestamp_hints: %s", encoded)
		}
	}
	return b.String()
}
