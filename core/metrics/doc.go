// Package metrics defines the events recorded about refresh cycles, charge
// state and user mutations. Sinks like PromSink and InfluxSink live in
// infra/metrics and register themselves with RegisterMetricsSink; the factory
// helpers return a MultiSink automatically when several sinks are configured.
package metrics
