package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "legal"

// AssistantMetrics counts ingestion, retrieval and answer outcomes.
type AssistantMetrics struct {
	service string

	ingestTotal         *prometheus.CounterVec
	ingestPassages      *prometheus.HistogramVec
	answerTotal         *prometheus.CounterVec
	dispatchErrorsTotal *prometheus.CounterVec
	retrievalHits       *prometheus.HistogramVec
}

func NewAssistantMetrics(service string, registerer prometheus.Registerer) *AssistantMetrics {
	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "requests_total",
			Help:      "Ingestion requests by category and status.",
		},
		[]string{"service", "category", "status"},
	)
	ingestPassages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "passages",
			Help:      "Passages produced per successful ingestion.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "category"},
	)
	answerTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "requests_total",
			Help:      "Answered questions by backend family, grounding and failure.",
		},
		[]string{"service", "family", "grounded", "failed"},
	)
	dispatchErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "dispatch_errors_total",
			Help:      "Questions rejected before generation by error kind.",
		},
		[]string{"service", "kind"},
	)
	retrievalHits := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "hits",
			Help:      "Passages retrieved per category search.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12},
		},
		[]string{"service", "category"},
	)

	registerer.MustRegister(ingestTotal, ingestPassages, answerTotal, dispatchErrorsTotal, retrievalHits)

	return &AssistantMetrics{
		service:             service,
		ingestTotal:         ingestTotal,
		ingestPassages:      ingestPassages,
		answerTotal:         answerTotal,
		dispatchErrorsTotal: dispatchErrorsTotal,
		retrievalHits:       retrievalHits,
	}
}

func (m *AssistantMetrics) ObserveIngest(category string, ok bool, passages int) {
	status := "success"
	if !ok {
		status = "error"
	}
	m.ingestTotal.WithLabelValues(m.service, category, status).Inc()
	if ok && passages > 0 {
		m.ingestPassages.WithLabelValues(m.service, category).Observe(float64(passages))
	}
}

func (m *AssistantMetrics) ObserveAnswer(family string, grounded, failed bool) {
	m.answerTotal.WithLabelValues(
		m.service,
		family,
		strconv.FormatBool(grounded),
		strconv.FormatBool(failed),
	).Inc()
}

func (m *AssistantMetrics) ObserveDispatchError(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.dispatchErrorsTotal.WithLabelValues(m.service, kind).Inc()
}

func (m *AssistantMetrics) ObserveRetrieval(category string, hits int) {
	m.retrievalHits.WithLabelValues(m.service, category).Observe(float64(hits))
}
