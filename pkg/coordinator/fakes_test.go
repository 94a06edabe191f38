package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeASR is a minimal, configurable ASREngine for tests.
type fakeASR struct {
	mu         sync.Mutex
	pushed     [][]float32
	tokens     [][]ASRToken // one slice of new tokens returned per PullTokens call, in order
	hypothesis HypothesisBuffer
	sep        string
	finishTail string
	finishErr  error
	finishN    int
}

func (f *fakeASR) PushAudio(_ context.Context, frame []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, frame)
	return nil
}

func (f *fakeASR) PullTokens(context.Context) ([]ASRToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tokens) == 0 {
		return nil, nil
	}
	next := f.tokens[0]
	f.tokens = f.tokens[1:]
	return next, nil
}

func (f *fakeASR) Hypothesis() HypothesisBuffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hypothesis
}

func (f *fakeASR) Separator() string {
	if f.sep == "" {
		return " "
	}
	return f.sep
}

func (f *fakeASR) SentenceTokenizer() (SentenceTokenizer, bool) { return nil, false }

func (f *fakeASR) Finish(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishN++
	return f.finishTail, f.finishErr
}

// fakeDiarizer advances the watermark to the last token's end time and
// never assigns real speakers, unless assignFn is set.
type fakeDiarizer struct {
	assignFn func(watermark float64, tokens []ASRToken) (float64, error)
}

func (f *fakeDiarizer) PushAudio(context.Context, []float32) error { return nil }

func (f *fakeDiarizer) AssignSpeakers(_ context.Context, watermark float64, tokens []ASRToken) (float64, error) {
	if f.assignFn != nil {
		return f.assignFn(watermark, tokens)
	}
	if len(tokens) == 0 {
		return watermark, nil
	}
	return tokens[len(tokens)-1].EndSec, nil
}

// fakeLLMClient is a configurable LLMClient.
type fakeLLMClient struct {
	mu        sync.Mutex
	calls     []string
	summary   string
	keyPoints []string
	err       error
}

func (f *fakeLLMClient) ModelID() string { return "fake-model" }

func (f *fakeLLMClient) Summarize(_ context.Context, text string) (string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.err != nil {
		return "", nil, f.err
	}
	return f.summary, f.keyPoints, nil
}

func (f *fakeLLMClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeParserClient is a configurable ParserClient.
type fakeParserClient struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeParserClient) Parse(_ context.Context, text string, speakers []int, timestamps []float64) (ParsedTranscript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.err != nil {
		return ParsedTranscript{}, f.err
	}
	return ParsedTranscript{ParsedText: text, Speakers: speakers, Timestamps: timestamps}, nil
}

func (f *fakeParserClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var errFake = errors.New("fake failure")

// fakeAudioDecoder is a minimal AudioDecoder for coordinator-level tests.
// Push buffers a frame per call (the actual sample values don't matter —
// fakeASR/fakeDiarizer don't inspect them, they respond from their own
// canned queues); PullFrames forwards buffered frames to both queues on
// a short poll, then delivers EndOfStream once CloseInput has been
// called and every buffered frame has drained.
type fakeAudioDecoder struct {
	mu           sync.Mutex
	frames       [][]float32
	stopped      bool
	closed       bool
	lastActivity time.Time
}

func newFakeAudioDecoder() *fakeAudioDecoder {
	return &fakeAudioDecoder{lastActivity: time.Now()}
}

func (f *fakeAudioDecoder) Push(_ context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, make([]float32, len(data)))
	f.lastActivity = time.Now()
	return nil
}

func (f *fakeAudioDecoder) CloseInput(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeAudioDecoder) PullFrames(ctx context.Context, txQueue, diaQueue chan<- QueueItem) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.Lock()
			pending := f.frames
			f.frames = nil
			stopped := f.stopped
			f.mu.Unlock()

			for _, frame := range pending {
				select {
				case txQueue <- FrameItem(frame):
				case <-ctx.Done():
					return
				}
				select {
				case diaQueue <- FrameItem(frame):
				case <-ctx.Done():
					return
				}
			}

			if stopped {
				select {
				case txQueue <- EndOfStream:
				case <-ctx.Done():
				}
				select {
				case diaQueue <- EndOfStream:
				case <-ctx.Done():
				}
				return
			}
		}
	}
}

func (f *fakeAudioDecoder) LastActivity() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActivity
}

func (f *fakeAudioDecoder) Restart(context.Context) error { return nil }

func (f *fakeAudioDecoder) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
