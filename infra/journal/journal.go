// Package journal keeps a rotating JSON Lines history of published snapshots.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/snapshot"
)

// Config controls where the journal is written and how it rotates.
type Config struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Path == "" {
		c.Path = "smartcharge-journal.jsonl"
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Enabled && c.Path == "" {
		return fmt.Errorf("journal path is required")
	}
	if c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("journal retention must not be negative")
	}
	return nil
}

// Entry is one journal line.
type Entry struct {
	Timestamp time.Time          `json:"ts"`
	Snapshot  *snapshot.Snapshot `json:"snapshot"`
}

// Journal appends snapshots to a size-rotated file.
type Journal struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
	path   string
	log    logger.Logger
	now    func() time.Time
}

// New creates the journal directory if needed.
func New(cfg Config, log logger.Logger) (*Journal, error) {
	cfg.SetDefaults()
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &Journal{
		writer: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		},
		path: cfg.Path,
		log:  logger.OrNop(log),
		now:  time.Now,
	}, nil
}

// Append writes s as one line. Nil snapshots are ignored.
func (j *Journal) Append(s *snapshot.Snapshot) error {
	if s == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return json.NewEncoder(j.writer).Encode(Entry{Timestamp: j.now().UTC(), Snapshot: s})
}

// Run appends every snapshot received until ctx is cancelled or the channel
// is closed.
func (j *Journal) Run(ctx context.Context, snapshots <-chan *snapshot.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-snapshots:
			if !ok {
				return
			}
			if err := j.Append(s); err != nil {
				j.log.Errorf("journal append: %v", err)
			}
		}
	}
}

// Query reads the current and rotated files and returns entries recorded in
// [since, until], oldest first. Zero bounds are open.
func (j *Journal) Query(since, until time.Time) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	ext := filepath.Ext(j.path)
	base := j.path[:len(j.path)-len(ext)]
	files, err := filepath.Glob(base + "*" + ext)
	if err != nil {
		return nil, err
	}
	var res []Entry
	for _, f := range files {
		file, err := os.Open(f)
		if err != nil {
			j.log.Warnf("journal open %s: %v", f, err)
			continue
		}
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			var e Entry
			if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
				continue
			}
			if !since.IsZero() && e.Timestamp.Before(since) {
				continue
			}
			if !until.IsZero() && e.Timestamp.After(until) {
				continue
			}
			res = append(res, e)
		}
		if err := scanner.Err(); err != nil {
			j.log.Warnf("journal read %s: %v", f, err)
		}
		_ = file.Close()
	}
	sort.SliceStable(res, func(a, b int) bool { return res[a].Timestamp.Before(res[b].Timestamp) })
	return res, nil
}

// Close closes the underlying writer.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.writer.Close()
}
