package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ParserInvoker wraps an external ParserClient with the accumulation
// bookkeeping described in §4.9: fire-and-forget invocations whose
// failures never propagate back to the transcription stage.
type ParserInvoker struct {
	client ParserClient
	cfg    Config
	logger Logger

	onParsed func(ParsedTranscript)

	mu          sync.Mutex
	totalParsed int
	lastParsed  *ParsedTranscript
}

// NewParserInvoker builds a ParserInvoker. onParsed is called (on the
// background goroutine InvokeAsync launched for that parse) whenever a
// parse completes successfully; it is
// typically wired to store the result in SharedState and feed the
// Summarizer's accumulator.
func NewParserInvoker(client ParserClient, cfg Config, logger Logger, onParsed func(ParsedTranscript)) *ParserInvoker {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &ParserInvoker{client: client, cfg: cfg, logger: logger, onParsed: onParsed}
}

// InvokeAsync launches a parse call in its own goroutine and returns
// immediately (fire-and-forget, §4.3/§4.9). text is passed to the client
// unchanged; neither this method nor the transcription stage trims it.
func (p *ParserInvoker) InvokeAsync(ctx context.Context, text string, speakerHint int) {
	if text == "" {
		return
	}
	go func() {
		result, err := p.client.Parse(ctx, text, []int{speakerHint}, nil)
		if err != nil {
			parserInvocationsTotal.WithLabelValues("error").Inc()
			p.logger.Warn("parser invocation failed", "error", fmt.Errorf("%w: %v", ErrParserFailed, err))
			return
		}
		parserInvocationsTotal.WithLabelValues("ok").Inc()
		result.WallTS = time.Now()

		p.mu.Lock()
		p.totalParsed++
		p.lastParsed = &result
		p.mu.Unlock()

		if p.onParsed != nil {
			p.onParsed(result)
		}
	}()
}

// Stats returns the current ParserStats snapshot for inclusion in a
// result Snapshot.
func (p *ParserInvoker) Stats() ParserStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ParserStats{
		Enabled:     true,
		TotalParsed: p.totalParsed,
		LastParsed:  p.lastParsed,
	}
}
