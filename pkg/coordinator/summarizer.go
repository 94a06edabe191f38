package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const summarizerMonitorInterval = 200 * time.Millisecond

// Summarizer owns the LLM-driven accumulation/trigger policy of §4.8: a
// time trigger and a volume trigger, whichever fires first, each running
// the external LLMClient asynchronously and handing the result to
// registered callbacks.
type Summarizer struct {
	client LLMClient
	cfg    Config
	logger Logger

	mu              sync.Mutex
	accumulated     strings.Builder
	charsSinceLast  int
	lastInference   time.Time
	totalInferences int

	callbacksMu sync.Mutex
	callbacks   []func(Summary)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSummarizer builds a Summarizer. lastInference starts at the zero
// time so the first Update call is immediately eligible for the time
// trigger.
func NewSummarizer(client LLMClient, cfg Config, logger Logger) *Summarizer {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Summarizer{client: client, cfg: cfg, logger: logger}
}

// OnSummary registers a callback invoked whenever a new summary is
// produced. Callers typically wire this to SharedState.AddSummary, which
// itself performs the I4 dedup.
func (s *Summarizer) OnSummary(cb func(Summary)) {
	s.callbacksMu.Lock()
	defer s.callbacksMu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// Update feeds newly committed (post text-conversion) text into the
// accumulator and checks the volume trigger immediately; the time trigger
// is checked by the background monitor loop started by Start.
func (s *Summarizer) Update(ctx context.Context, text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	s.accumulated.WriteString(text)
	s.charsSinceLast += len(text)
	volumeTrigger := s.charsSinceLast >= s.cfg.NewTextTriggerChars
	s.mu.Unlock()

	if volumeTrigger {
		s.fire(ctx)
	}
}

// Start launches the background monitor goroutine that evaluates the time
// trigger every summarizerMonitorInterval. Callers must eventually call
// StopMonitoring.
func (s *Summarizer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(summarizerMonitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				elapsed := time.Since(s.lastInference).Seconds()
				nonEmpty := s.accumulated.Len() > 0
				timeTrigger := elapsed >= s.cfg.SummaryIntervalSec
				s.mu.Unlock()
				if nonEmpty && timeTrigger {
					s.fire(ctx)
				}
			}
		}
	}()
}

// StopMonitoring cancels the background monitor and waits for it to exit.
// Outstanding in-flight Summarize calls are not awaited (fire-and-forget).
func (s *Summarizer) StopMonitoring() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// ForceInference ignores both triggers and runs once if the accumulator is
// non-empty (§4.7 final-flush step b, §4.8).
func (s *Summarizer) ForceInference(ctx context.Context) {
	s.mu.Lock()
	nonEmpty := s.accumulated.Len() > 0
	s.mu.Unlock()
	if nonEmpty {
		s.fire(ctx)
	}
}

func (s *Summarizer) fire(ctx context.Context) {
	s.mu.Lock()
	text := s.accumulated.String()
	s.accumulated.Reset()
	s.charsSinceLast = 0
	s.lastInference = time.Now()
	s.mu.Unlock()

	if text == "" {
		return
	}

	go func() {
		summary, keyPoints, err := s.client.Summarize(ctx, text)
		if err != nil {
			summarizerInferencesTotal.WithLabelValues("fire", "error").Inc()
			s.logger.Warn("summarizer inference failed", "error", fmt.Errorf("%w: %v", ErrSummarizerFailed, err))
			// Preserve the accumulator for the next trigger (§7): failures
			// never propagate, and the text that failed to summarize is not
			// lost, just retried alongside whatever has accumulated since.
			s.mu.Lock()
			s.accumulated.WriteString(text)
			s.charsSinceLast += len(text)
			s.mu.Unlock()
			return
		}
		summarizerInferencesTotal.WithLabelValues("fire", "ok").Inc()

		s.mu.Lock()
		s.totalInferences++
		s.mu.Unlock()

		s.callbacksMu.Lock()
		callbacks := make([]func(Summary), len(s.callbacks))
		copy(callbacks, s.callbacks)
		s.callbacksMu.Unlock()

		result := Summary{
			WallTS:    time.Now(),
			Text:      summary,
			KeyPoints: keyPoints,
			TextLen:   len(text),
		}
		for _, cb := range callbacks {
			cb(result)
		}
	}()
}

// Stats returns the current LLMStats snapshot for inclusion in a result
// Snapshot.
func (s *Summarizer) Stats() LLMStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LLMStats{
		TotalInferences: s.totalInferences,
		LastInferenceAt: s.lastInference,
		AccumulatedLen:  s.accumulated.Len(),
	}
}

// HasPendingText reports whether the accumulator currently holds text,
// used by the final-flush sequence to decide whether ForceInference is
// worth calling at all.
func (s *Summarizer) HasPendingText() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated.Len() > 0
}
