package config

import (
	"fmt"
	"log/slog"

	"github.com/roach88/dagclosure/internal/store"
	"github.com/roach88/dagclosure/internal/store/badgerstore"
	"github.com/roach88/dagclosure/internal/store/memstore"
)

// OpenStore opens the store selected by c. logger receives Badger's
// internal output; it may be nil.
func (c StoreConfig) OpenStore(logger *slog.Logger) (store.Store, error) {
	switch c.Driver {
	case DriverSQLite:
		s, err := store.Open(c.Path, store.WithColumns(c.Columns))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case DriverBadger:
		cfg := badgerstore.DefaultConfig(c.Path)
		cfg.SyncWrites = c.SyncWrites
		cfg.Logger = logger
		s, err := badgerstore.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return s, nil
	case DriverMemory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("open store: unknown driver %q", c.Driver)
}
