package hasher

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fsnap/internal/adapters/config"
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
)

// NodeID is the unique identifier for the content hasher Graft node.
const NodeID graft.ID = "adapter.hasher"

func init() {
	graft.Register(graft.Node[ports.ContentHasher]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ConfigNodeID},
		Run: func(ctx context.Context) (ports.ContentHasher, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			return New(cfg.HashFunction)
		},
	})
}
