package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/talgya/emergence/internal/tick"
)

// metricsSet holds the Prometheus collectors the /metrics endpoint
// exposes. Registered once at Server.Start and kept updated by watch,
// which subscribes to the engine's own tick broadcast stream.
type metricsSet struct {
	ticksTotal      prometheus.Counter
	agentsAlive     prometheus.Gauge
	deathsTotal     prometheus.Counter
	actionsResolved prometheus.Counter
	ledgerAnomalies prometheus.Counter
	phaseDuration   *prometheus.HistogramVec
}

func newMetricsSet() *metricsSet {
	return &metricsSet{
		ticksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emergence_ticks_total",
			Help: "Total number of ticks completed.",
		}),
		agentsAlive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "emergence_agents_alive",
			Help: "Number of agents alive as of the most recent tick.",
		}),
		deathsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emergence_deaths_total",
			Help: "Total number of agent deaths processed.",
		}),
		actionsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emergence_actions_resolved_total",
			Help: "Total number of action requests resolved by the engine.",
		}),
		ledgerAnomalies: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emergence_ledger_anomalies_total",
			Help: "Total number of ledger conservation anomalies raised.",
		}),
		phaseDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "emergence_phase_duration_seconds",
			Help:    "Wall-clock duration of each tick phase.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
	}
}

// watch subscribes to the engine's broadcast stream and keeps the
// metric set current for the lifetime of the process. Call once from a
// background goroutine.
func (m *metricsSet) watch(e *tick.Engine) {
	_, ch := e.Subscribe()
	for b := range ch {
		m.ticksTotal.Inc()
		m.agentsAlive.Set(float64(b.AgentsAlive))
		m.deathsTotal.Add(float64(b.DeathsThisTick))
		m.actionsResolved.Add(float64(b.ActionsResolved))
		m.ledgerAnomalies.Add(float64(b.LedgerAnomalies))
		for phase, d := range b.PhaseDurations {
			m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
		}
	}
}
