package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the interview counters exported on /metrics.
type Metrics struct {
	Turns              *prometheus.CounterVec
	Terminations       *prometheus.CounterVec
	LLMLatency         *prometheus.HistogramVec
	InterviewsCreated  prometheus.Counter
	ConfigFallbacks    prometheus.Counter
	TranscriptsIndexed *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_turns_total",
			Help: "Reply turns by outcome.",
		}, []string{"outcome"}),
		Terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_terminations_total",
			Help: "Completed interviews by the signal that ended them.",
		}, []string{"reason"}),
		LLMLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interview_llm_request_duration_seconds",
			Help:    "Latency of language model calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"provider", "outcome"}),
		InterviewsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interviews_created_total",
			Help: "Interviews created.",
		}),
		ConfigFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interview_config_fallbacks_total",
			Help: "Turns that ran on default configuration because the stored snapshot was missing.",
		}),
		TranscriptsIndexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_transcripts_indexed_total",
			Help: "Transcript indexing attempts by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Turns,
			m.Terminations,
			m.LLMLatency,
			m.InterviewsCreated,
			m.ConfigFallbacks,
			m.TranscriptsIndexed,
		)
	}
	return m
}
