package metrics

import "github.com/kilianp07/smartcharge/core/factory"

// sinkRegistry holds the sink constructors keyed by config type. Importing
// infra/metrics registers "nop", "prometheus" and "influx"; tests may add
// their own.
var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink type names, sorted.
func SinkTypes() []string {
	return sinkRegistry.Types()
}

// NewMetricsSink builds the sinks named in cfgs. No configuration yields a
// NopSink; a single entry is returned as is and several are fanned out
// through a MultiSink, stopping at the first constructor error.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]MetricsSink, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return NewMultiSink(sinks...), nil
}
