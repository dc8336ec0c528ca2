package store

import (
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/zerr"
)

// Open returns the store selected by cfg.
func Open(cfg domain.StoreConfig) (ports.SnapshotStore, error) {
	switch cfg.Backend {
	case "", domain.StoreBackendFile:
		return NewFileStore(cfg.Path), nil
	case domain.StoreBackendBadger:
		return OpenBadger(cfg.Path)
	default:
		return nil, zerr.With(domain.ErrUnknownStoreBackend, "backend", cfg.Backend)
	}
}
