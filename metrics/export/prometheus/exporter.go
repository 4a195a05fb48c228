package prometheus

import (
	"net/http"

	gateAuth "github.com/MrEthical07/gateAuth"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSource is satisfied by *gateAuth.Engine.
type MetricsSource interface {
	MetricsSnapshot() gateAuth.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter serves Engine metrics from a private registry holding
// only a [Collector].
type PrometheusExporter struct {
	registry *promclient.Registry
}

// NewPrometheusExporter creates an exporter reading from engine.
func NewPrometheusExporter(engine *gateAuth.Engine) *PrometheusExporter {
	return NewPrometheusExporterFromSource(engine)
}

// NewPrometheusExporterFromSource creates an exporter from a custom [MetricsSource].
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	reg := promclient.NewRegistry()
	reg.MustRegister(NewCollector(source))
	return &PrometheusExporter{registry: reg}
}

// Registry returns the exporter's registry so callers can add collectors.
func (p *PrometheusExporter) Registry() *promclient.Registry {
	return p.registry
}

// Handler serves the registry in the exposition format negotiated with the
// scraper.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
