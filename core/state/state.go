// Package state keeps the small amount of data that must survive restarts.
//
// Writes are deferred until Flush so that hosts running on flash storage do
// not wear it on every refresh; the in-memory copy is authoritative between
// flushes and losing an update on a crash is acceptable.
package state

import (
	"context"
	"sync"

	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/model"
)

// Data is the persisted payload.
type Data struct {
	LastSeenPlannedDispatchSource string `json:"last_seen_planned_dispatch_source"`
}

// Default returns the payload used when nothing was persisted yet.
func Default() Data {
	return Data{LastSeenPlannedDispatchSource: model.SourceSmartCharge}
}

// Store is a durable key-value backend for one account.
type Store interface {
	// Load fills the fields present in storage over def. The boolean is false
	// when nothing was stored.
	Load(ctx context.Context, def Data) (Data, bool, error)
	Save(ctx context.Context, d Data) error
	Remove(ctx context.Context) error
}

// Persistent holds Data in memory and writes it to a Store.
type Persistent struct {
	mu    sync.Mutex
	data  Data
	store Store
	lazy  bool
	dirty bool
	log   logger.Logger
}

// NewPersistent wraps store. When lazy is false every change is saved
// immediately.
func NewPersistent(store Store, lazy bool, log logger.Logger) *Persistent {
	return &Persistent{data: Default(), store: store, lazy: lazy, log: logger.OrNop(log)}
}

// Load reads the stored payload. Failures are logged and defaults kept.
func (p *Persistent) Load(ctx context.Context) {
	d, found, err := p.store.Load(ctx, Default())
	if err != nil {
		p.log.Errorf("load persistent data: %v", err)
		return
	}
	if !found {
		p.log.Debugf("no persistent data, using defaults")
		return
	}
	p.mu.Lock()
	p.data = d
	p.dirty = false
	p.mu.Unlock()
}

// Snapshot returns a copy of the in-memory payload.
func (p *Persistent) Snapshot() Data {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data
}

// LastSeenSource implements dispatch.SourceStore.
func (p *Persistent) LastSeenSource() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.LastSeenPlannedDispatchSource
}

// SetLastSeenSource implements dispatch.SourceStore.
func (p *Persistent) SetLastSeenSource(source string) {
	p.mu.Lock()
	if p.data.LastSeenPlannedDispatchSource == source {
		p.mu.Unlock()
		return
	}
	p.data.LastSeenPlannedDispatchSource = source
	p.dirty = true
	lazy := p.lazy
	p.mu.Unlock()
	if !lazy {
		if err := p.Flush(context.Background()); err != nil {
			p.log.Errorf("save persistent data: %v", err)
		}
	}
}

// Flush saves pending changes. It is a no-op when nothing changed.
func (p *Persistent) Flush(ctx context.Context) error {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return nil
	}
	d := p.data
	p.mu.Unlock()
	if err := p.store.Save(ctx, d); err != nil {
		return err
	}
	p.mu.Lock()
	if p.data == d {
		p.dirty = false
	}
	p.mu.Unlock()
	return nil
}

// Remove deletes the stored payload and discards pending changes so a later
// Flush does not recreate it.
func (p *Persistent) Remove(ctx context.Context) error {
	p.mu.Lock()
	p.dirty = false
	p.data = Default()
	p.mu.Unlock()
	return p.store.Remove(ctx)
}
