// Package coordinator implements the streaming transcription pipeline
// coordinator: decoder supervision (via the AudioDecoder collaborator),
// inter-stage queues, the transcription and diarization stages, the
// shared-state token store, the formatter, the results emitter, the LLM
// summarizer, the parser, and the watchdog.
package coordinator

import (
	"context"
	"sync"
	"time"
)

// AudioDecoder is the narrow view of the Decoder Supervisor the
// Coordinator depends on (§4.1). pkg/decoder.Supervisor implements it; the
// Coordinator never imports pkg/decoder directly, so the dependency only
// runs one way (decoder -> coordinator, for the QueueItem type).
type AudioDecoder interface {
	// Push writes container bytes to the child decoder's input. It never
	// returns an error for transient I/O failures (those are recovered
	// internally per §4.1/§7); a non-nil error means the decoder is
	// unrecoverable.
	Push(ctx context.Context, data []byte) error
	// CloseInput closes the child decoder's input stream, the mechanism
	// by which a stop signal drains the remaining audio (§6).
	CloseInput(ctx context.Context) error
	// PullFrames runs until ctx is cancelled or the child decoder's output
	// reaches EOF, delivering frames (and finally EndOfStream) into both
	// queues per the adaptive-read and drop policies of §4.1.
	PullFrames(ctx context.Context, transcriptionQueue, diarizationQueue chan<- QueueItem)
	LastActivity() time.Time
	Restart(ctx context.Context) error
	Close(ctx context.Context) error
}

// Dependencies bundles every external collaborator the Coordinator needs.
// Fields left nil correspond to a disabled feature (matched against
// Config) or an absent optional service (Parser, LLM).
type Dependencies struct {
	Decoder       AudioDecoder
	ASR           ASREngine
	Diarizer      Diarizer
	LLM           LLMClient
	Parser        ParserClient
	TextConverter TextConverter
	Logger        Logger
}

// Coordinator is the streaming-pipeline entry point: Process Audio is the
// push interface, ResultStream is the pull interface (§6).
type Coordinator struct {
	cfg      Config
	state    *SharedState
	logger   Logger
	decoder  AudioDecoder
	textConv TextConverter

	transcriptionQueue chan QueueItem
	diarizationQueue   chan QueueItem

	summarizer *Summarizer
	parser     *ParserInvoker

	ctx    context.Context
	cancel context.CancelFunc

	resultCh <-chan Snapshot

	mu              sync.Mutex
	alreadyStopping bool
}

// New validates cfg, wires every enabled stage, and starts the pipeline's
// goroutines. The returned Coordinator is immediately ready to accept
// ProcessAudio calls and to be read from via ResultStream.
func New(cfg Config, deps Dependencies) (*Coordinator, error) {
	cfg, err := NewConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Decoder == nil {
		return nil, ErrNilCollaborator
	}
	if cfg.Transcription && deps.ASR == nil {
		return nil, ErrNilCollaborator
	}
	if cfg.Diarization && deps.Diarizer == nil {
		return nil, ErrNilCollaborator
	}

	logger := deps.Logger
	if logger == nil {
		logger = NoOpLogger{}
	}
	textConv := deps.TextConverter
	if textConv == nil {
		textConv = IdentityConverter{}
	}

	sep := " "
	if deps.ASR != nil {
		sep = deps.ASR.Separator()
	}
	state := NewSharedState(sep)

	ctx, cancel := context.WithCancel(context.Background())

	var summarizer *Summarizer
	if cfg.LLMInference && deps.LLM != nil {
		summarizer = NewSummarizer(deps.LLM, cfg, logger)
		summarizer.OnSummary(func(s Summary) { state.AddSummary(s) })
		summarizer.Start(ctx)
	}

	var parser *ParserInvoker
	if deps.Parser != nil {
		parser = NewParserInvoker(deps.Parser, cfg, logger, func(p ParsedTranscript) {
			state.AddParsedTranscript(p)
			if summarizer != nil && p.ParsedText != "" {
				summarizer.Update(ctx, textConv.Convert(p.ParsedText))
			}
		})
	}

	c := &Coordinator{
		cfg:                cfg,
		state:              state,
		logger:             logger,
		decoder:            deps.Decoder,
		textConv:           textConv,
		transcriptionQueue: NewTranscriptionQueue(),
		diarizationQueue:   NewDiarizationQueue(),
		summarizer:         summarizer,
		parser:             parser,
		ctx:                ctx,
		cancel:             cancel,
	}

	txDone := make(chan struct{})
	diaDone := make(chan struct{})

	if cfg.Transcription {
		stage := NewTranscriptionStage(deps.ASR, state, logger, parser, summarizer, textConv, cfg)
		go func() {
			defer close(txDone)
			stage.Run(ctx, c.transcriptionQueue)
		}()
	} else {
		go func() {
			defer close(txDone)
			drainQueue(ctx, c.transcriptionQueue)
		}()
	}

	if cfg.Diarization {
		stage := NewDiarizationStage(deps.Diarizer, state, logger, cfg.Transcription)
		go func() {
			defer close(diaDone)
			stage.Run(ctx, c.diarizationQueue)
		}()
	} else {
		go func() {
			defer close(diaDone)
			drainQueue(ctx, c.diarizationQueue)
		}()
	}

	stagesDone := make(chan struct{})
	go func() {
		<-txDone
		<-diaDone
		close(stagesDone)
	}()

	go deps.Decoder.PullFrames(ctx, c.transcriptionQueue, c.diarizationQueue)

	var emitterASR ASREngine
	if cfg.Transcription {
		emitterASR = deps.ASR
	}
	emitter := NewEmitter(state, emitterASR, summarizer, parser, textConv, cfg, logger, stagesDone)
	c.resultCh = emitter.Run(ctx)

	watchdog := NewWatchdog(deps.Decoder, state, logger, map[string]<-chan struct{}{
		"transcription": txDone,
		"diarization":   diaDone,
	})
	go watchdog.Run(ctx)

	return c, nil
}

// drainQueue discards items from a disabled stage's queue so the decoder
// never blocks trying to send to it, exiting on EndOfStream or ctx
// cancellation.
func drainQueue(ctx context.Context, queue <-chan QueueItem) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-queue:
			if !ok || item.End {
				return
			}
		}
	}
}

// ProcessAudio is the push interface (§6). An empty byte slice is the stop
// signal: it marks the session as stopping and closes the decoder's
// input. Calls after a stop signal are ignored with a logged warning.
func (c *Coordinator) ProcessAudio(ctx context.Context, data []byte) error {
	if c.state.IsStopping() {
		c.logger.Warn("process_audio called after stop, ignoring")
		return ErrAlreadyStopping
	}

	if len(data) == 0 {
		c.mu.Lock()
		already := c.alreadyStopping
		c.alreadyStopping = true
		c.mu.Unlock()
		if already {
			return ErrAlreadyStopping
		}
		c.state.SetStopping()
		return c.decoder.CloseInput(ctx)
	}

	if err := c.decoder.Push(ctx, data); err != nil {
		c.logger.Error("decoder unavailable", "error", err)
		return err
	}
	return nil
}

// ResultStream is the pull interface (§6): a channel of snapshots, closed
// on orderly shutdown.
func (c *Coordinator) ResultStream() <-chan Snapshot {
	return c.resultCh
}

// Close cancels the pipeline's context and releases the decoder, for
// callers that need to tear down before orderly shutdown completes (e.g.
// process exit). It does not wait for ResultStream to close.
func (c *Coordinator) Close(ctx context.Context) error {
	c.cancel()
	if c.summarizer != nil {
		c.summarizer.StopMonitoring()
	}
	return c.decoder.Close(ctx)
}
