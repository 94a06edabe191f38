package decoder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	startsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcribe_decoder_start_total",
		Help: "Total number of decoder child process starts.",
	}, []string{"result"})

	restartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcribe_decoder_restart_total",
		Help: "Total number of decoder restarts, by trigger.",
	}, []string{"reason"})

	droppedDiarizationFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcribe_decoder_diarization_frames_dropped_total",
		Help: "Total number of diarization frames dropped because the diarization queue was full.",
	})

	writeTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcribe_decoder_write_timeout_total",
		Help: "Total number of push() calls that hit the write or flush timeout.",
	})
)
