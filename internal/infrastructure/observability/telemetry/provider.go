package telemetry

import (
	"github.com/openstudio/payflow/internal/infrastructure/observability/prometrics"
	"github.com/openstudio/payflow/internal/observability"
)

type provider struct {
	tracer     observability.Tracer
	logger     observability.Logger
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

// New assembles the Observability provider and registers every metric
// the component emits. Unknown keys resolve to no-op instruments so a
// missing registration can never panic a request.
func New(tracer observability.Tracer, logger observability.Logger, reg prometrics.Registry) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	counters := map[observability.MetricKey]observability.Counter{}
	histograms := map[observability.MetricKey]observability.Histogram{}
	if reg != nil {
		counters[observability.MDispatchRequests] = reg.Counter(
			string(observability.MDispatchRequests),
			"Total number of payment dispatch attempts.",
			"method", "outcome",
		)
		histograms[observability.MDispatchDuration] = reg.Histogram(
			string(observability.MDispatchDuration),
			"Duration of payment dispatch in seconds.",
			nil,
			"method",
		)
		counters[observability.MProviderRequests] = reg.Counter(
			string(observability.MProviderRequests),
			"Total number of gateway API calls.",
			"api", "outcome",
		)
		histograms[observability.MProviderRequestDuration] = reg.Histogram(
			string(observability.MProviderRequestDuration),
			"Duration of gateway API calls in seconds.",
			nil,
			"api",
		)
		counters[observability.MHTTPRequests] = reg.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests.",
			"method", "route", "status",
		)
		histograms[observability.MHTTPRequestDuration] = reg.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP requests in seconds.",
			nil,
			"method", "route", "status",
		)
	}

	return &provider{
		tracer:     tracer,
		logger:     logger,
		counters:   counters,
		histograms: histograms,
	}
}

func (p *provider) Tracer() observability.Tracer { return p.tracer }
func (p *provider) Logger() observability.Logger { return p.logger }
func (p *provider) Metrics() observability.Metrics {
	return p
}

func (p *provider) Counter(key observability.MetricKey) observability.Counter {
	if c, ok := p.counters[key]; ok {
		return c
	}
	return observability.NopMetrics().Counter(key)
}

func (p *provider) Histogram(key observability.MetricKey) observability.Histogram {
	if h, ok := p.histograms[key]; ok {
		return h
	}
	return observability.NopMetrics().Histogram(key)
}
