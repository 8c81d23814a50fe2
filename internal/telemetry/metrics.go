package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — prometheus-метрики движка.
//
// Экспонируются через promhttp на /metrics сервера.
type Metrics struct {
	// RunsStarted — количество запущенных runs.
	RunsStarted prometheus.Counter

	// RunsFinished — завершённые runs по терминальному статусу.
	RunsFinished *prometheus.CounterVec

	// ActiveRuns — runs, выполняющиеся в данный момент.
	ActiveRuns prometheus.Gauge

	// NodeDuration — длительность выполнения узлов по типу плагина.
	NodeDuration *prometheus.HistogramVec

	// NodeFailures — ошибки выполнения узлов по типу плагина.
	NodeFailures *prometheus.CounterVec

	// HTTPRequests — HTTP запросы к API по методу и статусу ответа.
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics создаёт и регистрирует метрики.
// reg == nil регистрирует в prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "runs_started_total",
			Help:      "Total number of workflow runs started.",
		}),
		RunsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "runs_finished_total",
			Help:      "Total number of finished workflow runs by terminal status.",
		}, []string{"status"}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "conductor",
			Name:      "active_runs",
			Help:      "Number of workflow runs currently executing.",
		}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "conductor",
			Name:      "node_duration_seconds",
			Help:      "Node execution duration by plugin type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"plugin"}),
		NodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "node_failures_total",
			Help:      "Total number of failed node executions by plugin type.",
		}, []string{"plugin"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "http_requests_total",
			Help:      "Total number of API requests by method and response status.",
		}, []string{"method", "status"}),
	}

	reg.MustRegister(m.RunsStarted, m.RunsFinished, m.ActiveRuns, m.NodeDuration, m.NodeFailures, m.HTTPRequests)
	return m
}

// RunStarted учитывает запуск run.
func (m *Metrics) RunStarted() {
	m.RunsStarted.Inc()
	m.ActiveRuns.Inc()
}

// RunFinished учитывает завершение run.
func (m *Metrics) RunFinished(status string) {
	m.RunsFinished.WithLabelValues(status).Inc()
	m.ActiveRuns.Dec()
}

// NodeExecuted учитывает успешное выполнение узла.
func (m *Metrics) NodeExecuted(pluginType string, d time.Duration) {
	m.NodeDuration.WithLabelValues(pluginType).Observe(d.Seconds())
}

// NodeFailed учитывает ошибку выполнения узла.
func (m *Metrics) NodeFailed(pluginType string) {
	m.NodeFailures.WithLabelValues(pluginType).Inc()
}

// HTTPRequest учитывает обработанный API-запрос.
func (m *Metrics) HTTPRequest(method string, status int) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
