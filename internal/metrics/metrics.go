// Package metrics exports Prometheus counters for controller traffic and
// device actions. A nil *Metrics records nothing.
package metrics

import (
	"net/http"

	"github.com/neuhausf/fauxmo/internal/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fauxmo"

// Metrics implements protocol.Observer.
type Metrics struct {
	requests *prometheus.CounterVec
	actions  *prometheus.CounterVec
	state    *prometheus.GaugeVec
	searches *prometheus.CounterVec
	devices  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Requests answered per device and route.",
			},
			[]string{"device", "route"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "SOAP actions per device, action and result.",
			},
			[]string{"device", "action", "result"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "device_on",
				Help:      "1 if the latest successful action turned the device on.",
			},
			[]string{"device"},
		),
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ssdp_searches_total",
				Help:      "Matching M-SEARCH requests per search target.",
			},
			[]string{"st"},
		),
		devices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "devices",
				Help:      "Number of emulated devices.",
			},
		),
	}
	reg.MustRegister(m.requests)
	reg.MustRegister(m.actions)
	reg.MustRegister(m.state)
	reg.MustRegister(m.searches)
	reg.MustRegister(m.devices)
	return m
}

// NewRegistry returns a registry with the Go runtime and process
// collectors and the fauxmo metrics.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, New(reg)
}

// Handler serves the registry in the Prometheus text format.
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Served(device, route string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(device, route).Inc()
}

func (m *Metrics) Action(device, action string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.actions.WithLabelValues(device, action, result).Inc()
}

func (m *Metrics) StateChanged(device, serial string, state plugin.State) {
	if m == nil {
		return
	}
	v := 0.0
	if state == plugin.StateOn {
		v = 1
	}
	m.state.WithLabelValues(device).Set(v)
}

// Search counts an M-SEARCH that matched at least one device.
func (m *Metrics) Search(st string, devices int) {
	if m == nil || devices == 0 {
		return
	}
	m.searches.WithLabelValues(st).Inc()
}

// SetDevices records how many devices are emulated.
func (m *Metrics) SetDevices(n int) {
	if m == nil {
		return
	}
	m.devices.Set(float64(n))
}
