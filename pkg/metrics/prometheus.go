package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the pipeline's Prometheus collectors. A nil *Recorder is a no-op.
type Recorder struct {
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	recommendations  *prometheus.CounterVec
	symbolsSkipped   prometheus.Counter
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
}

// New registers the collectors on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		providerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_tracker_provider_requests_total",
				Help: "AI provider completions by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		providerLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stock_tracker_provider_duration_seconds",
				Help:    "AI provider completion latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		recommendations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_tracker_recommendations_total",
				Help: "Persisted recommendations by type and action",
			},
			[]string{"type", "action"},
		),
		symbolsSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "stock_tracker_symbols_skipped_total",
				Help: "Symbols skipped because stock data was unavailable",
			},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_tracker_analysis_runs_total",
				Help: "Analysis runs by type and final status",
			},
			[]string{"type", "status"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stock_tracker_analysis_run_duration_seconds",
				Help:    "Wall time of a full analysis run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
		),
	}
}

// RecordProviderCall records one provider completion attempt.
func (r *Recorder) RecordProviderCall(provider string, ok bool, seconds float64) {
	if r == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	r.providerRequests.WithLabelValues(provider, outcome).Inc()
	r.providerLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordRecommendation records a persisted recommendation.
func (r *Recorder) RecordRecommendation(recType, action string) {
	if r == nil {
		return
	}
	r.recommendations.WithLabelValues(recType, action).Inc()
}

// RecordSkippedSymbol records a symbol dropped from a run.
func (r *Recorder) RecordSkippedSymbol() {
	if r == nil {
		return
	}
	r.symbolsSkipped.Inc()
}

// RecordRun records a finished analysis run.
func (r *Recorder) RecordRun(runType, status string, seconds float64) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(runType, status).Inc()
	r.runDuration.Observe(seconds)
}
