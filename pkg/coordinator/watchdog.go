package coordinator

import (
	"context"
	"time"
)

const (
	watchdogInterval    = 15 * time.Second
	watchdogIdleWarn    = 20 * time.Second
	watchdogIdleRestart = 30 * time.Second
	watchdogWarnEvery   = 60 * time.Second
)

// RestartableDecoder is the narrow view of the Decoder Supervisor the
// Watchdog needs (§4.10); pkg/decoder.Supervisor implements it.
type RestartableDecoder interface {
	LastActivity() time.Time
	Restart(ctx context.Context) error
}

// Watchdog periodically inspects stage liveness and decoder idleness,
// restarting the decoder when it has been idle too long (§4.10).
type Watchdog struct {
	decoder RestartableDecoder
	state   *SharedState
	logger  Logger
	stages  map[string]<-chan struct{}

	lastIdleWarn time.Time
}

// NewWatchdog builds a Watchdog. decoder may be nil (e.g. in tests that
// exercise only the emitter/stages); stages maps a human-readable stage
// name to its done channel, for liveness reporting.
func NewWatchdog(decoder RestartableDecoder, state *SharedState, logger Logger, stages map[string]<-chan struct{}) *Watchdog {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Watchdog{decoder: decoder, state: state, logger: logger, stages: stages}
}

// Run loops every watchdogInterval until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watchdog) tick(ctx context.Context) {
	for name, done := range w.stages {
		select {
		case <-done:
			w.logger.Info("watchdog: stage finished", "stage", name)
		default:
			w.logger.Debug("watchdog: stage running", "stage", name)
		}
	}

	if w.decoder == nil {
		return
	}

	idle := time.Since(w.decoder.LastActivity())
	switch {
	case idle > watchdogIdleRestart && !w.state.IsStopping():
		w.logger.Warn("watchdog: decoder idle past restart threshold", "idle_seconds", idle.Seconds())
		if err := w.decoder.Restart(ctx); err != nil {
			w.logger.Error("watchdog: decoder restart failed", "error", err)
		}
	case idle > watchdogIdleWarn:
		if time.Since(w.lastIdleWarn) >= watchdogWarnEvery {
			w.logger.Warn("watchdog: decoder idle", "idle_seconds", idle.Seconds())
			w.lastIdleWarn = time.Now()
		}
	}
}
