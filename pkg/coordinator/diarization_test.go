package coordinator

import (
	"context"
	"testing"
)

func loudFrame(n int) []float32 {
	frame := make([]float32, n)
	for i := range frame {
		if i%2 == 0 {
			frame[i] = 0.5
		} else {
			frame[i] = -0.5
		}
	}
	return frame
}

func TestDiarizationStageAddsDummyTokensWhenTranscriptionDisabled(t *testing.T) {
	ss := NewSharedState(" ")
	diarizer := &fakeDiarizer{}
	d := NewDiarizationStage(diarizer, ss, nil, false)

	for i := 0; i < 4; i++ {
		d.handleFrame(context.Background(), loudFrame(160))
	}

	tokens := ss.TokensSnapshot()
	found := false
	for _, tok := range tokens {
		if tok.IsDummy {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected at least one dummy token once activity is confirmed, got %+v", tokens)
	}
}

func TestDiarizationStageNoDummyTokensWhenTranscriptionEnabled(t *testing.T) {
	ss := NewSharedState(" ")
	diarizer := &fakeDiarizer{}
	d := NewDiarizationStage(diarizer, ss, nil, true)

	for i := 0; i < 4; i++ {
		d.handleFrame(context.Background(), loudFrame(160))
	}

	if len(ss.TokensSnapshot()) != 0 {
		t.Fatalf("expected no dummy tokens when transcription stage owns tokens")
	}
}

func TestDiarizationStageMergesSpeakerAssignments(t *testing.T) {
	ss := NewSharedState(" ")
	ss.AppendTokens([]ASRToken{
		{StartSec: 0, EndSec: 1, Text: "a", Speaker: -1},
		{StartSec: 1, EndSec: 2, Text: "b", Speaker: -1},
	})

	diarizer := &fakeDiarizer{assignFn: func(watermark float64, tokens []ASRToken) (float64, error) {
		tokens[0].Speaker = 1
		tokens[1].Speaker = 2
		return 2, nil
	}}
	d := NewDiarizationStage(diarizer, ss, nil, true)

	d.handleFrame(context.Background(), loudFrame(160))

	tokens := ss.TokensSnapshot()
	if tokens[0].Speaker != 1 || tokens[1].Speaker != 2 {
		t.Fatalf("expected merged speaker assignments, got %+v", tokens)
	}
	if got := ss.EndAttributedSpeakerSec(); got != 2 {
		t.Fatalf("expected watermark advanced to 2, got %v", got)
	}
}

func TestDiarizationStageRunExitsOnEndOfStream(t *testing.T) {
	ss := NewSharedState(" ")
	d := NewDiarizationStage(&fakeDiarizer{}, ss, nil, true)
	queue := NewDiarizationQueue()
	done := make(chan struct{})
	go func() {
		d.Run(context.Background(), queue)
		close(done)
	}()
	queue <- EndOfStream
	select {
	case <-done:
	default:
	}
	<-done
}
