package persist

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/kilianp07/smartcharge/core/factory"
	"github.com/kilianp07/smartcharge/core/state"
)

// Store is a state.Store holding resources until closed.
type Store interface {
	state.Store
	io.Closer
}

// Config selects and configures a backend.
type Config struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// Lazy defers writes to shutdown. Unset means lazy.
	Lazy *bool `json:"lazy"`
}

// IsLazy reports whether writes are deferred to shutdown.
func (c Config) IsLazy() bool {
	return c.Lazy == nil || *c.Lazy
}

type options struct {
	Path    string `json:"path"`
	Account string `json:"account"`
}

var registry = factory.NewRegistry[Store]()

func init() {
	_ = registry.Register("json", func(conf map[string]any) (Store, error) {
		var o options
		if err := factory.Decode(conf, &o); err != nil {
			return nil, err
		}
		// one file per account inside the configured directory
		return NewJSONStore(filepath.Join(o.Path, "smartcharge."+o.Account+".json")), nil
	})
	_ = registry.Register("sqlite", func(conf map[string]any) (Store, error) {
		var o options
		if err := factory.Decode(conf, &o); err != nil {
			return nil, err
		}
		return NewSQLiteStore(o.Path, o.Account)
	})
}

// Open creates the configured backend for account.
func Open(cfg Config, account string) (Store, error) {
	s, err := registry.Create(factory.ModuleConfig{
		Type: cfg.Backend,
		Conf: map[string]any{"path": cfg.Path, "account": account},
	})
	if err != nil {
		return nil, fmt.Errorf("persistence backend: %w", err)
	}
	return s, nil
}

// Backends lists the available backend names.
func Backends() []string { return registry.Types() }
