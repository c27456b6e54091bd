// Package status exposes the charge state over HTTP.
package status

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/system"
	"github.com/kilianp07/smartcharge/infra/journal"
)

// Source is the part of system.System the handlers read from.
type Source interface {
	Status() (system.StatusView, error)
	OffPeakRanges() ([]model.TimeRange, error)
}

// History returns journaled snapshots recorded in [since, until].
type History interface {
	Query(since, until time.Time) ([]journal.Entry, error)
}

// Routes returns the handlers keyed by path, ready for metrics.NewMux.
func Routes(src Source, hist History) map[string]http.Handler {
	routes := map[string]http.Handler{
		"/api/status":  NewStatusHandler(src),
		"/api/offpeak": NewOffPeakHandler(src),
	}
	if hist != nil {
		routes["/api/history"] = NewHistoryHandler(hist)
	}
	return routes
}

// NewStatusHandler serves GET /api/status.
func NewStatusHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		v, err := src.Status()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, v)
	})
}

// NewOffPeakHandler serves GET /api/offpeak with the merged ranges around now.
func NewOffPeakHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ranges, err := src.OffPeakRanges()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if ranges == nil {
			ranges = []model.TimeRange{}
		}
		writeJSON(w, ranges)
	})
}

// NewHistoryHandler serves GET /api/history?since=RFC3339&until=RFC3339.
func NewHistoryHandler(hist History) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		since, err := parseBound(r.URL.Query().Get("since"))
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		until, err := parseBound(r.URL.Query().Get("until"))
		if err != nil {
			http.Error(w, "invalid until", http.StatusBadRequest)
			return
		}
		entries, err := hist.Query(since, until)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []journal.Entry{}
		}
		writeJSON(w, entries)
	})
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
