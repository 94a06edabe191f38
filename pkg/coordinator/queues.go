package coordinator

// QueueItem is the element type carried by the stage queues: either a PCM
// frame or the end-of-stream sentinel (§4.2). A zero-length Frame with End
// set to false never occurs; callers should test End first.
type QueueItem struct {
	Frame []float32
	End   bool
}

// EndOfStream is the sentinel queue item.
var EndOfStream = QueueItem{End: true}

// FrameItem wraps a PCM frame as a regular (non-sentinel) queue item.
func FrameItem(frame []float32) QueueItem {
	return QueueItem{Frame: frame}
}

const (
	// diarizationQueueSoftCap is the soft capacity enforced by the Decoder
	// Supervisor's drop policy (§4.1, B2), not the Go channel's buffer size
	// itself (the channel is sized generously above this so the supervisor
	// can make its own len()-based drop decision instead of blocking).
	diarizationQueueSoftCap = 5

	// transcriptionQueueCapacity is effectively unbounded for this
	// pipeline's purposes; backpressure comes from the ASR engine's
	// per-call cost, not from the channel filling up.
	transcriptionQueueCapacity = 256

	diarizationQueueCapacity = 64
)

// NewTranscriptionQueue creates the transcription stage's input channel.
func NewTranscriptionQueue() chan QueueItem {
	return make(chan QueueItem, transcriptionQueueCapacity)
}

// NewDiarizationQueue creates the diarization stage's input channel.
func NewDiarizationQueue() chan QueueItem {
	return make(chan QueueItem, diarizationQueueCapacity)
}

// DiarizationQueueHasRoom reports whether the diarization queue has fewer
// than diarizationQueueSoftCap items pending, per the decoder's drop
// policy (B2).
func DiarizationQueueHasRoom(q chan QueueItem) bool {
	return len(q) < diarizationQueueSoftCap
}
