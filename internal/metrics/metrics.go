// Package metrics собирает метрики движка в Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector - метрики движка на собственном реестре.
// Методы nil-коллектора ничего не делают.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	jobsTotal       *prometheus.CounterVec
	busyRejections  prometheus.Counter
	cancelDiscards  prometheus.Counter
	samplesProduced prometheus.Counter
}

// NewCollector создаёт коллектор с пространством имён namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled by the engine",
		},
		[]string{"kind"},
	)

	c.stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of one loop phase step",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"phase"},
	)

	c.jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Finished jobs by outcome",
		},
		[]string{"outcome"},
	)

	c.busyRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "busy_rejections_total",
		Help:      "Requests rejected because a job was active",
	})

	c.cancelDiscards = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cancel_discards_total",
		Help:      "Cancels that discarded queued requests",
	})

	c.samplesProduced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "synthesized_samples_total",
		Help:      "Samples produced by synthesis",
	})

	c.registry.MustRegister(
		c.requestsTotal,
		c.stepDuration,
		c.jobsTotal,
		c.busyRejections,
		c.cancelDiscards,
		c.samplesProduced,
	)
	return c
}

// Outcome - итог задачи.
type Outcome string

const (
	OutcomeDone     Outcome = "done"
	OutcomeCanceled Outcome = "canceled"
	OutcomeFailed   Outcome = "failed"
)

// RecordRequest учитывает принятый запрос.
func (c *Collector) RecordRequest(kind string) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(kind).Inc()
}

// RecordStep учитывает выполненный этап.
func (c *Collector) RecordStep(phase string, d time.Duration) {
	if c == nil {
		return
	}
	c.stepDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordJob учитывает завершение задачи.
func (c *Collector) RecordJob(outcome Outcome) {
	if c == nil {
		return
	}
	c.jobsTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordBusy учитывает отказ из-за занятости.
func (c *Collector) RecordBusy() {
	if c == nil {
		return
	}
	c.busyRejections.Inc()
}

// RecordCancelDiscard учитывает Cancel, снявший запросы с очереди.
func (c *Collector) RecordCancelDiscard() {
	if c == nil {
		return
	}
	c.cancelDiscards.Inc()
}

// RecordSamples учитывает синтезированные сэмплы.
func (c *Collector) RecordSamples(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.samplesProduced.Add(float64(n))
}

// Handler отдаёт метрики в формате Prometheus.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
