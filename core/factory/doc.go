// Package factory is a small generic registry used to build pluggable
// modules (metrics sinks, persistence backends) from configuration. A module
// is declared by a type name and a map of raw settings that the factory
// decodes into its own typed struct with Decode.
package factory
