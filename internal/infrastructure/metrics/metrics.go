// Package metrics exposes VoltWatch's Prometheus instrumentation.
//
// A single Metrics value is created at startup and shared by the
// packages that record into it. All recording methods are nil-safe so
// components can run without instrumentation in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	ingestsTotal     *prometheus.CounterVec
	alertsDispatched prometheus.Counter
	malformedSamples prometheus.Counter
	rpcFailures      *prometheus.CounterVec
	wsClients        prometheus.Gauge
}

// New creates the collectors and registers them with the given registry.
// Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ingestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voltwatch_consumption_ingests_total",
			Help: "Total consumption reports ingested, by outcome.",
		}, []string{"outcome"}),
		alertsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voltwatch_alerts_dispatched_total",
			Help: "Total threshold alerts dispatched to observers.",
		}),
		malformedSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voltwatch_malformed_samples_total",
			Help: "Total monitoring samples whose amount failed to parse.",
		}),
		rpcFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voltwatch_rpc_failures_total",
			Help: "Total failed RPC calls to remote services, by service and class.",
		}, []string{"service", "class"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voltwatch_websocket_clients",
			Help: "Currently connected WebSocket observers.",
		}),
	}

	reg.MustRegister(
		m.ingestsTotal,
		m.alertsDispatched,
		m.malformedSamples,
		m.rpcFailures,
		m.wsClients,
	)

	// Serve whatever registry we registered into. A *prometheus.Registry
	// is its own Gatherer; the default registerer gathers via the
	// default gatherer.
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint. It
// exposes the registry the collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Ingest records one processed consumption report.
// Outcome is one of "ok", "alert", "rejected".
func (m *Metrics) Ingest(outcome string) {
	if m == nil {
		return
	}
	m.ingestsTotal.WithLabelValues(outcome).Inc()
}

// AlertDispatched records one alert fanned out to observers.
func (m *Metrics) AlertDispatched() {
	if m == nil {
		return
	}
	m.alertsDispatched.Inc()
}

// MalformedSample records a sample amount that failed numeric parsing.
func (m *Metrics) MalformedSample() {
	if m == nil {
		return
	}
	m.malformedSamples.Inc()
}

// RPCFailure records a failed remote call. Class is "timeout",
// "unreachable" or "remote".
func (m *Metrics) RPCFailure(service, class string) {
	if m == nil {
		return
	}
	m.rpcFailures.WithLabelValues(service, class).Inc()
}

// WSClientConnected adjusts the connected observer gauge.
func (m *Metrics) WSClientConnected(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}
