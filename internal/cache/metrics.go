package cache

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for cache operations.
type Observer interface {
	RecordHit()
	RecordMiss()
	RecordWrite(err error)
	RecordPrune(count int)
	RecordLoadError()
}

type nopObserver struct{}

func (nopObserver) RecordHit()        {}
func (nopObserver) RecordMiss()       {}
func (nopObserver) RecordWrite(error) {}
func (nopObserver) RecordPrune(int)   {}
func (nopObserver) RecordLoadError()  {}

// NopObserver returns an observer that discards all measurements.
func NopObserver() Observer { return nopObserver{} }

// PrometheusObserver exports cache metrics to Prometheus.
type PrometheusObserver struct {
	lookups    *prometheus.CounterVec
	writes     *prometheus.CounterVec
	pruned     prometheus.Counter
	loadErrors prometheus.Counter
}

// NewPrometheusObserver registers lookup/write/prune metrics against reg.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "media_cache"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	observer := &PrometheusObserver{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Cache lookups partitioned by outcome.",
		}, []string{"outcome"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Cache persistence attempts partitioned by outcome.",
		}, []string{"outcome"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_entries_total",
			Help:      "Entries removed because they aged past the TTL.",
		}),
		loadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Persisted entries skipped at startup because they could not be parsed.",
		}),
	}
	collectors := []prometheus.Collector{observer.lookups, observer.writes, observer.pruned, observer.loadErrors}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, fmt.Errorf("register cache metric: %w", err)
		}
	}
	return observer, nil
}

func (o *PrometheusObserver) RecordHit()  { o.lookups.WithLabelValues("hit").Inc() }
func (o *PrometheusObserver) RecordMiss() { o.lookups.WithLabelValues("miss").Inc() }

func (o *PrometheusObserver) RecordWrite(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.writes.WithLabelValues(outcome).Inc()
}

func (o *PrometheusObserver) RecordPrune(count int) {
	if count > 0 {
		o.pruned.Add(float64(count))
	}
}

func (o *PrometheusObserver) RecordLoadError() { o.loadErrors.Inc() }
