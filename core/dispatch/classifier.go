package dispatch

import (
	"sort"
	"strings"

	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/model"
)

// SourceStore holds the last unambiguous dispatch source seen.
type SourceStore interface {
	LastSeenSource() string
	SetLastSeenSource(source string)
}

// Result is the outcome of classifying one batch of dispatches.
type Result struct {
	Records  []model.DispatchRecord
	LastSeen string
	// Sources lists the distinct non-empty sources of the batch, sorted.
	Sources []string
	Mixed   bool
}

// Classify backfills empty sources. A batch carrying exactly one distinct
// source makes it the new last-seen value; a batch mixing several resets it
// to empty; a batch without any tag leaves it unchanged. The input slice is
// not modified.
func Classify(records []model.DispatchRecord, lastSeen string) Result {
	seen := make(map[string]struct{})
	for _, r := range records {
		if r.Source != "" {
			seen[r.Source] = struct{}{}
		}
	}
	sources := make([]string, 0, len(seen))
	for s := range seen {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	res := Result{LastSeen: lastSeen, Sources: sources}
	switch {
	case len(sources) == 1:
		res.LastSeen = sources[0]
	case len(sources) > 1:
		res.LastSeen = ""
		res.Mixed = true
	}

	res.Records = make([]model.DispatchRecord, len(records))
	for i, r := range records {
		if r.Source == "" {
			r.Source = res.LastSeen
		}
		res.Records[i] = r
	}
	return res
}

// Classifier applies Classify against a persistent SourceStore.
type Classifier struct {
	store SourceStore
	log   logger.Logger
}

// NewClassifier returns a classifier backed by store.
func NewClassifier(store SourceStore, log logger.Logger) *Classifier {
	return &Classifier{store: store, log: logger.OrNop(log)}
}

// Classify backfills the batch and records the resulting last-seen source.
// Callers must not run Classify concurrently on the same store.
func (c *Classifier) Classify(records []model.DispatchRecord) []model.DispatchRecord {
	prev := c.store.LastSeenSource()
	res := Classify(records, prev)
	if res.Mixed {
		c.log.Warnf("planned dispatches carry mixed sources %s, clearing last seen source %q",
			strings.Join(res.Sources, ","), prev)
	}
	if res.LastSeen != prev {
		c.store.SetLastSeenSource(res.LastSeen)
		c.log.Debugw("last seen dispatch source updated", map[string]any{"previous": prev, "current": res.LastSeen})
	}
	return res.Records
}
