// Package dispatch classifies provider dispatches and answers point-in-time
// charging questions over them.
//
// The provider intermittently omits the source tag of planned dispatches.
// Classify backfills missing tags from the last unambiguous source seen, which
// is kept across restarts by a SourceStore.
package dispatch
