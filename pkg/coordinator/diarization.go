package coordinator

import "context"

// DiarizationStage consumes coarser PCM frames, advances the diarizer, and
// assigns speakers to the prefix of the shared token list (§4.4).
type DiarizationStage struct {
	diarizer             Diarizer
	state                *SharedState
	logger               Logger
	transcriptionEnabled bool
	activity             *ActivityDetector
}

// NewDiarizationStage builds a DiarizationStage. transcriptionEnabled
// controls whether dummy tokens are synthesized (§4.5): they are only
// needed when transcription is off and diarization is the sole producer
// of tokens for the diarizer to advance against.
func NewDiarizationStage(diarizer Diarizer, state *SharedState, logger Logger, transcriptionEnabled bool) *DiarizationStage {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &DiarizationStage{
		diarizer:             diarizer,
		state:                state,
		logger:               logger,
		transcriptionEnabled: transcriptionEnabled,
		activity:             NewActivityDetector(),
	}
}

// Run drains queue until it observes EndOfStream or ctx is cancelled.
func (d *DiarizationStage) Run(ctx context.Context, queue <-chan QueueItem) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-queue:
			if !ok || item.End {
				return
			}
			d.handleFrame(ctx, item.Frame)
		}
	}
}

func (d *DiarizationStage) handleFrame(ctx context.Context, frame []float32) {
	if !d.transcriptionEnabled && d.activity.Process(frame) {
		d.state.AddDummyToken()
	}

	if err := d.diarizer.PushAudio(ctx, frame); err != nil {
		d.logger.Warn("diarizer push failed", "error", err)
		return
	}

	before := d.state.TokensSnapshot()
	working := make([]ASRToken, len(before))
	copy(working, before)

	watermark := d.state.EndAttributedSpeakerSec()
	newWatermark, err := d.diarizer.AssignSpeakers(ctx, watermark, working)
	if err != nil {
		d.logger.Warn("diarizer assign_speakers failed", "error", err)
		return
	}

	speakerByIndex := make(map[int]int)
	for i := range working {
		if working[i].Speaker != before[i].Speaker {
			speakerByIndex[i] = working[i].Speaker
		}
	}
	d.state.MergeDiarization(newWatermark, speakerByIndex)

	_, tail := FormatSpeakerMode(working, newWatermark, d.state.Sep())
	d.state.SetDiarizationBuffer(tail)
}
