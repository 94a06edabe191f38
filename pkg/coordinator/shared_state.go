package coordinator

import (
	"sync"
	"time"
)

const maxParsedTranscripts = 50

// SharedState is the single cross-stage mutable region (§4.5, §5). Every
// field is guarded by mu; every method here acquires it for exactly one
// critical section, matching the "single mutex, single critical section
// per operation" policy.
type SharedState struct {
	mu sync.Mutex

	tokens                  []ASRToken
	bufferTranscription     string
	bufferDiarization       string
	endBufferSec            float64
	endAttributedSpeakerSec float64
	fullTranscription       string
	sep                     string
	begLoopWall             time.Time

	summaries         []Summary
	parsedTranscripts []ParsedTranscript

	lastEmittedFingerprint string
	isStopping             bool
}

// NewSharedState creates the SharedState for a fresh session. sep is the
// ASR engine's token-join separator.
func NewSharedState(sep string) *SharedState {
	return &SharedState{
		sep:         sep,
		begLoopWall: time.Now(),
	}
}

// StateSnapshot is a structural copy of SharedState taken under the mutex,
// safe to read without further synchronization (tokens/strings copied).
type StateSnapshot struct {
	Tokens                  []ASRToken
	BufferTranscription     string
	BufferDiarization       string
	EndBufferSec            float64
	EndAttributedSpeakerSec float64
	FullTranscription       string
	Sep                     string
	BegLoopWall             time.Time
	Summaries               []Summary
	ParsedTranscripts       []ParsedTranscript
	IsStopping              bool
}

// Snapshot returns a structural copy of the current state (§4.5
// get_snapshot).
func (s *SharedState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := make([]ASRToken, len(s.tokens))
	copy(tokens, s.tokens)

	summaries := make([]Summary, len(s.summaries))
	copy(summaries, s.summaries)

	parsed := make([]ParsedTranscript, len(s.parsedTranscripts))
	copy(parsed, s.parsedTranscripts)

	return StateSnapshot{
		Tokens:                  tokens,
		BufferTranscription:     s.bufferTranscription,
		BufferDiarization:       s.bufferDiarization,
		EndBufferSec:            s.endBufferSec,
		EndAttributedSpeakerSec: s.endAttributedSpeakerSec,
		FullTranscription:       s.fullTranscription,
		Sep:                     s.sep,
		BegLoopWall:             s.begLoopWall,
		Summaries:               summaries,
		ParsedTranscripts:       parsed,
		IsStopping:              s.isStopping,
	}
}

// AppendTokens appends newly stabilized tokens (transcription stage only).
// Callers must supply tokens already ordered by StartSec (I1); this method
// trusts that ordering rather than re-sorting, since the ASR engine is the
// sole producer and is assumed to emit in order.
func (s *SharedState) AppendTokens(newTokens []ASRToken) {
	if len(newTokens) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, newTokens...)
	for _, t := range newTokens {
		if t.EndSec > s.endBufferSec {
			s.endBufferSec = t.EndSec
		}
	}
}

// SetTranscriptionBuffer stores the live hypothesis text and advances
// end_buffer_sec if the hypothesis extends past it (I3).
func (s *SharedState) SetTranscriptionBuffer(text string, endSec float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bufferTranscription = text
	if endSec > s.endBufferSec {
		s.endBufferSec = endSec
	}
}

// SetFullTranscription overwrites the concatenated committed-token text.
func (s *SharedState) SetFullTranscription(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullTranscription = text
}

// FullTranscription returns the current concatenation, used by the
// transcription stage to test hypothesis-buffer suppression without
// requiring a full Snapshot copy.
func (s *SharedState) FullTranscription() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullTranscription
}

// SetDiarizationBuffer stores the text of the currently unattributed tail.
func (s *SharedState) SetDiarizationBuffer(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bufferDiarization = text
}

// MergeDiarization applies speaker assignments produced by the Diarizer
// (keyed by token index, stable because tokens is append-only) and
// advances the watermark. The watermark never moves backwards (I2).
func (s *SharedState) MergeDiarization(newWatermarkSec float64, speakerByIndex map[int]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx, speaker := range speakerByIndex {
		if idx < 0 || idx >= len(s.tokens) {
			continue
		}
		s.tokens[idx].Speaker = speaker
	}
	if newWatermarkSec > s.endAttributedSpeakerSec {
		s.endAttributedSpeakerSec = newWatermarkSec
	}
}

// TokensSnapshot returns a copy of the current token list, for handing to
// the Diarizer without holding the mutex across an external call.
func (s *SharedState) TokensSnapshot() []ASRToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens := make([]ASRToken, len(s.tokens))
	copy(tokens, s.tokens)
	return tokens
}

// EndAttributedSpeakerSec returns the current watermark.
func (s *SharedState) EndAttributedSpeakerSec() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endAttributedSpeakerSec
}

// Sep returns the ASR engine's token-join separator, for callers (e.g. the
// Diarization Stage) that need to format text outside of a full Snapshot.
func (s *SharedState) Sep() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sep
}

// AddSummary appends a summary unless one with an identical Text already
// exists (I4). Returns true if it was appended.
func (s *SharedState) AddSummary(summary Summary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.summaries {
		if existing.Text == summary.Text {
			return false
		}
	}
	s.summaries = append(s.summaries, summary)
	return true
}

// AddParsedTranscript appends a parse result, trimming to the last 50
// (P4).
func (s *SharedState) AddParsedTranscript(p ParsedTranscript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsedTranscripts = append(s.parsedTranscripts, p)
	if len(s.parsedTranscripts) > maxParsedTranscripts {
		s.parsedTranscripts = s.parsedTranscripts[len(s.parsedTranscripts)-maxParsedTranscripts:]
	}
}

// SetStopping marks the session as draining towards shutdown (I5).
func (s *SharedState) SetStopping() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isStopping = true
}

// IsStopping reports whether a stop signal has been observed.
func (s *SharedState) IsStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isStopping
}

// LastEmittedFingerprint / SetLastEmittedFingerprint are used exclusively
// by the Results Emitter to suppress repeated emissions (§4.7 step 4).
func (s *SharedState) LastEmittedFingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEmittedFingerprint
}

func (s *SharedState) SetLastEmittedFingerprint(fp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEmittedFingerprint = fp
}

// AddDummyToken appends a 1-second-wide placeholder token at the current
// wall-clock offset from session start (§4.5, used only when transcription
// is disabled and diarization is enabled, so the diarizer has something to
// advance against).
func (s *SharedState) AddDummyToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	offset := time.Since(s.begLoopWall).Seconds()
	s.tokens = append(s.tokens, ASRToken{
		StartSec: offset,
		EndSec:   offset + 1.0,
		Text:     "",
		Speaker:  dummySpeakerBase,
		IsDummy:  true,
	})
	if offset+1.0 > s.endBufferSec {
		s.endBufferSec = offset + 1.0
	}
}

// ForceReset clears all fields in place, equivalent to a brand-new
// instance (R2), without allocating a new *SharedState so existing
// references stay valid.
func (s *SharedState) ForceReset(sep string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
	s.bufferTranscription = ""
	s.bufferDiarization = ""
	s.endBufferSec = 0
	s.endAttributedSpeakerSec = 0
	s.fullTranscription = ""
	s.sep = sep
	s.begLoopWall = time.Now()
	s.summaries = nil
	s.parsedTranscripts = nil
	s.lastEmittedFingerprint = ""
	s.isStopping = false
}
