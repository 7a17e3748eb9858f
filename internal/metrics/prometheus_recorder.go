package metrics

import (
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using client_golang collectors.
type PrometheusRecorder struct {
	once             sync.Once
	resolverFailures *prom.CounterVec
	resolverHits     *prom.CounterVec
	cacheSize        prom.Gauge
}

// NewPrometheusRecorder constructs and registers the resolver's metrics
// against reg (a fresh prometheus.Registry if nil). Each call registers a
// new set of collectors, so a second call against the same registry panics
// on duplicate registration; the returned *PrometheusRecorder can be shared
// across workers.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.resolverFailures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "rd2qmd",
			Name:      "resolver_failures_total",
			Help:      "External package link resolutions that fell back to a template, by reason",
		}, []string{"package", "reason"})
		pr.resolverHits = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "rd2qmd",
			Name:      "resolver_hits_total",
			Help:      "External package link resolutions served from a given source",
		}, []string{"source"})
		pr.cacheSize = prom.NewGauge(prom.GaugeOpts{
			Namespace: "rd2qmd",
			Name:      "resolver_cache_entries",
			Help:      "Number of entries currently held in the in-memory pkgindex cache",
		})
		reg.MustRegister(pr.resolverFailures, pr.resolverHits, pr.cacheSize)
	})
	return pr
}

func (p *PrometheusRecorder) IncResolverFailure(pkg, reason string) {
	if p == nil || p.resolverFailures == nil {
		return
	}
	p.resolverFailures.WithLabelValues(pkg, reason).Inc()
}

func (p *PrometheusRecorder) IncResolverHit(source string) {
	if p == nil || p.resolverHits == nil {
		return
	}
	p.resolverHits.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) ObserveCacheSize(n int) {
	if p == nil || p.cacheSize == nil {
		return
	}
	p.cacheSize.Set(float64(n))
}
