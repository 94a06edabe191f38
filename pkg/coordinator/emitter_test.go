package coordinator

import (
	"context"
	"testing"
	"time"
)

func TestEmitterShouldEmitP2(t *testing.T) {
	ss := NewSharedState(" ")
	e := NewEmitter(ss, nil, nil, nil, nil, Config{}, nil, make(chan struct{}))

	if e.shouldEmit("", false) {
		t.Fatalf("expected no emission for repeated empty content")
	}
	if !e.shouldEmit("a", true) {
		t.Fatalf("expected emission when content is present")
	}
	if !e.shouldEmit("a", true) {
		t.Fatalf("expected repeated emission while content stays present (keep-alive)")
	}
	if e.shouldEmit("a", false) {
		t.Fatalf("expected no emission for unchanged fingerprint with no content")
	}
	if !e.shouldEmit("b", false) {
		t.Fatalf("expected emission when fingerprint changes even without content")
	}
}

func TestEmitterBuildSnapshotFallsBackToSpeakerMode(t *testing.T) {
	ss := NewSharedState(" ")
	ss.AppendTokens([]ASRToken{{StartSec: 0, EndSec: 1, Text: "hi", Speaker: 0}})

	asr := &fakeASR{}
	e := NewEmitter(ss, asr, nil, nil, nil, Config{Diarization: true}, nil, make(chan struct{}))

	snap, fp, hasContent := e.buildSnapshot()
	if !hasContent {
		t.Fatalf("expected hasContent true for non-empty tokens")
	}
	if fp == "" {
		t.Fatalf("expected non-empty fingerprint")
	}
	if len(snap.Lines) != 1 || snap.Lines[0].Text != "hi" {
		t.Fatalf("unexpected lines: %+v", snap.Lines)
	}
	if !snap.DiarizationEnabled {
		t.Fatalf("expected diarization_enabled true per cfg")
	}
}

func TestEmitterFinalFlushCallsAsrFinishOnceAndZeroesRemaining(t *testing.T) {
	ss := NewSharedState(" ")
	asr := &fakeASR{finishTail: "trailing text"}
	e := NewEmitter(ss, asr, nil, nil, nil, Config{}, nil, make(chan struct{}))

	snap := e.finalFlush(context.Background())

	if asr.finishN != 1 {
		t.Fatalf("expected asr.Finish called exactly once, got %d", asr.finishN)
	}
	if snap.RemainingTimeTranscription != 0 || snap.RemainingTimeDiarization != 0 {
		t.Fatalf("expected remaining times zeroed, got %+v", snap)
	}
}

func TestEmitterOrderlyShutdownBoundedP5(t *testing.T) {
	ss := NewSharedState(" ")
	ss.SetStopping()
	asr := &fakeASR{}
	stagesDone := make(chan struct{})
	close(stagesDone)

	e := NewEmitter(ss, asr, nil, nil, nil, Config{}, nil, stagesDone)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out := e.Run(ctx)

	count := 0
	deadline := time.After(1500 * time.Millisecond)
loop:
	for {
		select {
		case _, ok := <-out:
			if !ok {
				break loop
			}
			count++
		case <-deadline:
			t.Fatalf("emitter did not close output channel within bound")
		}
	}
	if count > 1 {
		t.Fatalf("expected at most one final snapshot after stop, got %d", count)
	}
}
