package snapshot

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fsnap/internal/adapters/config" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fsnap/internal/adapters/fs"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fsnap/internal/adapters/hasher" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fsnap/internal/adapters/logger" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/fsnap/internal/engine/managed"
)

// NodeID is the unique identifier for the snapshot service Graft node.
const NodeID graft.ID = "engine.snapshot"

func init() {
	graft.Register(graft.Node[*Service]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.ConfigNodeID,
			fs.NodeID,
			hasher.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Service, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			fsys, err := graft.Dep[ports.FileSystem](ctx)
			if err != nil {
				return nil, err
			}
			h, err := graft.Dep[ports.ContentHasher](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			classifier := managed.NewClassifier(cfg.ManagedPaths, cfg.ImmutablePaths, cfg.UnmanagedPaths)
			return New(fsys, h, log, classifier, OptionsFromConfig(cfg))
		},
	})
}
