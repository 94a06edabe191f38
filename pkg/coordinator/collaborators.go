package coordinator

import "context"

// The interfaces below are the narrow contracts this package depends on.
// Concrete implementations (the streaming ASR engine, the diarization
// engine, the external decoder process, the LLM/parser backends) are
// external collaborators outside this module's scope; only their shape is
// specified here.

// ASREngine is the streaming speech-to-text collaborator.
type ASREngine interface {
	// PushAudio feeds one PCM frame (mono, 16kHz, [-1,1] float32) into the
	// engine's internal buffer.
	PushAudio(ctx context.Context, frame []float32) error
	// PullTokens returns zero or more newly stabilized tokens since the
	// last call.
	PullTokens(ctx context.Context) ([]ASRToken, error)
	// Hypothesis returns the current unstable tail, not yet committed.
	Hypothesis() HypothesisBuffer
	// Separator returns the single-character joiner used to build
	// full_transcription from committed token texts.
	Separator() string
	// SentenceTokenizer returns the engine's own sentence splitter, if it
	// has one. ok is false when the engine exposes no splitter, in which
	// case the Formatter falls back to a regex-based split.
	SentenceTokenizer() (tokenizer SentenceTokenizer, ok bool)
	// Finish flushes any buffered audio and returns a trailing text tail,
	// if any, to be forwarded to the Summarizer.
	Finish(ctx context.Context) (tail string, err error)
}

// SentenceTokenizer splits committed text into sentence-sized spans.
type SentenceTokenizer interface {
	Sentences(text string) []string
}

// Diarizer is the speaker-attribution collaborator.
type Diarizer interface {
	// PushAudio feeds one coarser PCM frame into the diarizer.
	PushAudio(ctx context.Context, frame []float32) error
	// AssignSpeakers mutates speaker ids in place on tokens whose EndSec is
	// at or before the new watermark it returns. tokens is a snapshot; the
	// caller is responsible for merging mutated speakers back into
	// SharedState.
	AssignSpeakers(ctx context.Context, endAttributedSpeakerSec float64, tokens []ASRToken) (newWatermarkSec float64, err error)
}

// LLMClient produces conversational summaries of accumulated transcript
// text.
type LLMClient interface {
	ModelID() string
	Summarize(ctx context.Context, text string) (summary string, keyPoints []string, err error)
}

// ParserClient normalizes raw transcript text into a structured form.
type ParserClient interface {
	Parse(ctx context.Context, text string, speakers []int, timestamps []float64) (ParsedTranscript, error)
}

// TextConverter performs the emission-boundary text post-conversion
// (e.g. Simplified→Traditional Chinese). The conversion table itself is
// out of scope for this module (§1); IdentityConverter is the default.
type TextConverter interface {
	Convert(text string) string
}

// IdentityConverter returns its input unchanged. It is the default
// TextConverter and satisfies every Non-goal around the conversion table
// while keeping the emission boundary's single post-conversion call site
// wired for a future real converter.
type IdentityConverter struct{}

func (IdentityConverter) Convert(text string) string { return text }
