package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRefresh forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordRefresh(ev RefreshEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRefresh(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordChargeState forwards charge state to sinks supporting it.
func (m *MultiSink) RecordChargeState(ev ChargeStateEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ChargeStateRecorder); ok {
			if err := rec.RecordChargeState(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordMutation forwards mutation events to sinks supporting it.
func (m *MultiSink) RecordMutation(ev MutationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(MutationRecorder); ok {
			if err := rec.RecordMutation(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
