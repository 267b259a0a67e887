package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics глобальный контейнер метрик
type Metrics struct {
	// Метрики симуляции
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	TimestepDuration prometheus.Histogram

	// Метрики решателя
	SolveOperationsTotal *prometheus.CounterVec
	SolveDuration        *prometheus.HistogramVec
	ProblemNodesTotal    *prometheus.HistogramVec
	ProblemArcsTotal     *prometheus.HistogramVec

	// Состояние сети на последнем шаге
	StorageLevel  *prometheus.GaugeVec
	DemandDeficit *prometheus.GaugeVec
	SpillVolume   *prometheus.GaugeVec

	// Метрики кэша аллокаций
	CacheLookupsTotal *prometheus.CounterVec

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics инициализирует метрики
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		// Метрики симуляции
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "runs_total",
				Help:      "Total number of simulation runs",
			},
			[]string{"status"},
		),

		RunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of simulation runs",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"status"},
		),

		TimestepDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "timestep_duration_seconds",
				Help:      "Duration of a single simulation timestep",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),

		// Метрики решателя
		SolveOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_operations_total",
				Help:      "Total number of allocation solves",
			},
			[]string{"mode", "status"},
		),

		SolveDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of allocation solves",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"mode"},
		),

		ProblemNodesTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "problem_nodes_total",
				Help:      "Number of nodes in assembled allocation problems",
				Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
			},
			[]string{"mode"},
		),

		ProblemArcsTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "problem_arcs_total",
				Help:      "Number of arcs in assembled allocation problems",
				Buckets:   []float64{10, 25, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
			[]string{"mode"},
		),

		// Состояние сети
		StorageLevel: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "storage_level",
				Help:      "Storage volume after the last timestep",
			},
			[]string{"node"},
		),

		DemandDeficit: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "demand_deficit",
				Help:      "Unmet demand on the last timestep",
			},
			[]string{"node"},
		),

		SpillVolume: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "spill_volume",
				Help:      "Spill released on the last timestep",
			},
			[]string{"node"},
		),

		// Метрики кэша
		CacheLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_lookups_total",
				Help:      "Total number of allocation cache lookups",
			},
			[]string{"result"},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("hydrosim", "")
	}
	return defaultMetrics
}

// RecordRun записывает метрики завершённого прогона
func (m *Metrics) RecordRun(status string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordTimestep записывает длительность шага симуляции
func (m *Metrics) RecordTimestep(duration time.Duration) {
	m.TimestepDuration.Observe(duration.Seconds())
}

// RecordSolve записывает исход вызова решателя. Длительность решения
// пишется отдельно через Timer поверх SolveDuration.
func (m *Metrics) RecordSolve(mode string, status string) {
	m.SolveOperationsTotal.WithLabelValues(mode, status).Inc()
}

// RecordProblemSize записывает размер собранной задачи
func (m *Metrics) RecordProblemSize(mode string, nodes, arcs int) {
	m.ProblemNodesTotal.WithLabelValues(mode).Observe(float64(nodes))
	m.ProblemArcsTotal.WithLabelValues(mode).Observe(float64(arcs))
}

// RecordNetworkState записывает состояние сети после шага
func (m *Metrics) RecordNetworkState(levels, deficits, spills map[string]float64) {
	for node, level := range levels {
		m.StorageLevel.WithLabelValues(node).Set(level)
	}
	for node, deficit := range deficits {
		m.DemandDeficit.WithLabelValues(node).Set(deficit)
	}
	for node, spill := range spills {
		m.SpillVolume.WithLabelValues(node).Set(spill)
	}
}

// RecordCacheLookup записывает результат обращения к кэшу
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer запускает HTTP сервер для метрик
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		// Игнорируем ошибку записи - response уже отправлен
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint, ошибка записи не критична
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
