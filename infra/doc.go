// Package infra contains technical adapters: the Kraken API client, state
// stores, the MQTT bridge, metrics exporters and error reporting. These
// packages depend only on the interfaces defined in the core packages.
package infra
