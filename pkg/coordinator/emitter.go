package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	emitterPollInterval  = 200 * time.Millisecond
	finalSummaryPollStep = 500 * time.Millisecond
	finalSummaryPollMax  = 10 * time.Second
)

// Emitter runs the 200ms poll loop described in §4.7, producing a
// Snapshot channel that closes on orderly shutdown.
type Emitter struct {
	state      *SharedState
	asr        ASREngine
	summarizer *Summarizer
	parser     *ParserInvoker
	textConv   TextConverter
	cfg        Config
	logger     Logger

	stagesDone <-chan struct{}
}

// NewEmitter builds an Emitter. asr, summarizer, and parser may be nil
// when the corresponding feature is disabled. stagesDone must be closed
// once every running stage goroutine has exited.
func NewEmitter(state *SharedState, asr ASREngine, summarizer *Summarizer, parser *ParserInvoker, textConv TextConverter, cfg Config, logger Logger, stagesDone <-chan struct{}) *Emitter {
	if logger == nil {
		logger = NoOpLogger{}
	}
	if textConv == nil {
		textConv = IdentityConverter{}
	}
	return &Emitter{
		state:      state,
		asr:        asr,
		summarizer: summarizer,
		parser:     parser,
		textConv:   textConv,
		cfg:        cfg,
		logger:     logger,
		stagesDone: stagesDone,
	}
}

// Run starts the poll loop and returns the Snapshot channel it publishes
// to. The channel is closed when the loop exits, whether by orderly
// shutdown or context cancellation.
func (e *Emitter) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 4)
	go e.loop(ctx, out)
	return out
}

func (e *Emitter) loop(ctx context.Context, out chan<- Snapshot) {
	defer close(out)

	ticker := time.NewTicker(emitterPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.state.IsStopping() {
				select {
				case <-e.stagesDone:
					final := e.finalFlush(ctx)
					e.send(ctx, out, final)
					return
				default:
				}
			}

			snap, fingerprint, hasContent := e.buildSnapshot()
			if e.shouldEmit(fingerprint, hasContent) {
				if !e.send(ctx, out, snap) {
					return
				}
			}
		}
	}
}

func (e *Emitter) send(ctx context.Context, out chan<- Snapshot, snap Snapshot) bool {
	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Emitter) shouldEmit(fingerprint string, hasContent bool) bool {
	prev := e.state.LastEmittedFingerprint()
	if !hasContent && fingerprint == prev {
		return false
	}
	e.state.SetLastEmittedFingerprint(fingerprint)
	return true
}

func (e *Emitter) buildSnapshot() (Snapshot, string, bool) {
	ss := e.state.Snapshot()

	var lines []Line
	if e.asr != nil {
		if tokenizer, ok := e.asr.SentenceTokenizer(); ok {
			lines = FormatSentenceMode(ss.Tokens, ss.Sep, tokenizer)
		} else {
			lines, _ = FormatSpeakerMode(ss.Tokens, ss.EndAttributedSpeakerSec, ss.Sep)
		}
	} else {
		lines, _ = FormatSpeakerMode(ss.Tokens, ss.EndAttributedSpeakerSec, ss.Sep)
	}

	for i := range lines {
		lines[i].Text = e.textConv.Convert(lines[i].Text)
	}
	bufferTranscription := e.textConv.Convert(ss.BufferTranscription)
	bufferDiarization := e.textConv.Convert(ss.BufferDiarization)

	elapsed := time.Since(ss.BegLoopWall).Seconds()
	remainingTranscription := elapsed - ss.EndBufferSec
	if remainingTranscription < 0 {
		remainingTranscription = 0
	}
	remainingDiarization := elapsed - ss.EndAttributedSpeakerSec
	if remainingDiarization < 0 {
		remainingDiarization = 0
	}

	snap := Snapshot{
		Lines:                      lines,
		BufferTranscription:        bufferTranscription,
		BufferDiarization:          bufferDiarization,
		RemainingTimeTranscription: remainingTranscription,
		RemainingTimeDiarization:   remainingDiarization,
		DiarizationEnabled:         e.cfg.Diarization,
	}
	if len(ss.Summaries) > 0 {
		snap.Summaries = ss.Summaries
	}
	if e.summarizer != nil {
		stats := e.summarizer.Stats()
		snap.LLMStats = &stats
	}
	if e.parser != nil {
		stats := e.parser.Stats()
		snap.Parser = &stats
	}

	fingerprint := buildFingerprint(lines, bufferTranscription, bufferDiarization)
	hasContent := len(lines) > 0 || bufferTranscription != "" || bufferDiarization != ""

	return snap, fingerprint, hasContent
}

func buildFingerprint(lines []Line, bufferTranscription, bufferDiarization string) string {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "%d %s", l.Speaker, l.Text)
	}
	b.WriteString(bufferTranscription)
	b.WriteString(bufferDiarization)
	return b.String()
}

// finalFlush performs the §4.7 orderly-shutdown sequence: call ASR
// finish, forward any tail to the Summarizer, force a last inference if
// there is pending text, poll up to 10s for it to land, and build one
// final snapshot with remaining times zeroed.
func (e *Emitter) finalFlush(ctx context.Context) Snapshot {
	if e.asr != nil {
		tail, err := e.asr.Finish(ctx)
		if err != nil {
			e.logger.Warn("asr finish failed during final flush", "error", err)
		} else if tail != "" && e.summarizer != nil {
			e.summarizer.Update(ctx, e.textConv.Convert(tail))
		}
	}

	if e.summarizer != nil && e.summarizer.HasPendingText() {
		before := len(e.state.Snapshot().Summaries)
		e.summarizer.ForceInference(ctx)

		deadline := time.Now().Add(finalSummaryPollMax)
		ticker := time.NewTicker(finalSummaryPollStep)
		defer ticker.Stop()
	pollLoop:
		for time.Now().Before(deadline) {
			select {
			case <-ctx.Done():
				break pollLoop
			case <-ticker.C:
				if len(e.state.Snapshot().Summaries) > before {
					break pollLoop
				}
			}
		}
	}

	snap, _, _ := e.buildSnapshot()
	snap.RemainingTimeTranscription = 0
	snap.RemainingTimeDiarization = 0
	return snap
}
