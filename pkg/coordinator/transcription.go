package coordinator

import (
	"context"
	"strings"
	"time"
)

// TranscriptionStage consumes PCM frames, drives the ASR engine, appends
// stable tokens to SharedState, and owns the Parser-trigger accumulator
// described in §4.3.
type TranscriptionStage struct {
	asr        ASREngine
	state      *SharedState
	logger     Logger
	parser     *ParserInvoker
	summarizer *Summarizer
	textConv   TextConverter
	cfg        Config

	parserAccum       strings.Builder
	lastParserTrigger time.Time
	lastSpeakerHint   int
}

// NewTranscriptionStage builds a TranscriptionStage. parser and summarizer
// may be nil if parsing/summarization is disabled in cfg.
func NewTranscriptionStage(asr ASREngine, state *SharedState, logger Logger, parser *ParserInvoker, summarizer *Summarizer, textConv TextConverter, cfg Config) *TranscriptionStage {
	if logger == nil {
		logger = NoOpLogger{}
	}
	if textConv == nil {
		textConv = IdentityConverter{}
	}
	return &TranscriptionStage{
		asr:               asr,
		state:             state,
		logger:            logger,
		parser:            parser,
		summarizer:        summarizer,
		textConv:          textConv,
		cfg:               cfg,
		lastParserTrigger: time.Now(),
	}
}

// Run drains queue until it observes EndOfStream or ctx is cancelled.
func (t *TranscriptionStage) Run(ctx context.Context, queue <-chan QueueItem) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-queue:
			if !ok || item.End {
				t.onEndOfStream(ctx)
				return
			}
			t.handleFrame(ctx, item.Frame)
		}
	}
}

func (t *TranscriptionStage) handleFrame(ctx context.Context, frame []float32) {
	if err := t.asr.PushAudio(ctx, frame); err != nil {
		t.logger.Warn("asr push failed", "error", err)
		return
	}

	newTokens, err := t.asr.PullTokens(ctx)
	if err != nil {
		t.logger.Warn("asr pull_tokens failed", "error", err)
		return
	}

	var lastNewEnd float64
	if len(newTokens) > 0 {
		t.state.AppendTokens(newTokens)

		texts := make([]string, 0, len(newTokens))
		for _, tok := range newTokens {
			if tok.Text != "" {
				texts = append(texts, tok.Text)
			}
		}
		t.parserAccum.WriteString(strings.Join(texts, t.asr.Separator()))

		last := newTokens[len(newTokens)-1]
		lastNewEnd = last.EndSec
		if last.Speaker >= 0 {
			t.lastSpeakerHint = last.Speaker
		}

		t.recomputeFullTranscription()
	}

	hyp := t.asr.Hypothesis()
	hypText := hyp.Text
	// Substring-equality suppression (§9 open question, implemented as
	// observed in the original): suppress the hypothesis only when it is
	// a full substring of full_transcription, not merely a prefix of it.
	if hypText != "" && strings.Contains(t.state.FullTranscription(), hypText) {
		hypText = ""
	}

	endBuffer := hyp.EndSec
	if endBuffer == 0 {
		endBuffer = lastNewEnd
	}
	t.state.SetTranscriptionBuffer(hypText, endBuffer)

	t.maybeTriggerParser(ctx)
}

func (t *TranscriptionStage) recomputeFullTranscription() {
	tokens := t.state.TokensSnapshot()
	texts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Text != "" {
			texts = append(texts, tok.Text)
		}
	}
	t.state.SetFullTranscription(strings.Join(texts, t.asr.Separator()))
}

func (t *TranscriptionStage) maybeTriggerParser(ctx context.Context) {
	if t.parser == nil {
		return
	}
	now := time.Now()
	if now.Sub(t.lastParserTrigger).Seconds() < t.cfg.ParserTriggerIntervalSec {
		return
	}
	if t.parserAccum.Len() == 0 {
		return
	}
	text := t.parserAccum.String()
	t.parserAccum.Reset()
	t.lastParserTrigger = now
	t.parser.InvokeAsync(ctx, text, t.lastSpeakerHint)
}

// onEndOfStream flushes the parser accumulator. Calling the ASR engine's
// finish routine is the Results Emitter's responsibility (§4.7 final-flush
// step a), so it happens exactly once per session. When transcription is
// disabled this stage does not run and the emitter is given no ASR engine,
// so no finish call is made at all.
func (t *TranscriptionStage) onEndOfStream(ctx context.Context) {
	if t.parser != nil && t.parserAccum.Len() > 0 {
		t.parser.InvokeAsync(ctx, t.parserAccum.String(), t.lastSpeakerHint)
		t.parserAccum.Reset()
	}
}
