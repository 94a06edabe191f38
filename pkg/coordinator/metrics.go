package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	summarizerInferencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcribe_summarizer_inference_total",
		Help: "Total number of summarizer LLM inferences, by trigger and result.",
	}, []string{"trigger", "result"})

	parserInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcribe_parser_invocation_total",
		Help: "Total number of parser invocations, by result.",
	}, []string{"result"})
)
