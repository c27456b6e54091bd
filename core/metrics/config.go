package metrics

import "github.com/kilianp07/smartcharge/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks      []factory.ModuleConfig `json:"sinks"`
	ListenAddr string                 `json:"listen_addr"`
}
