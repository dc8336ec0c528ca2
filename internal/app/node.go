package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/fsnap/internal/adapters/codec"   //nolint:depguard // Wired in app layer
	"go.trai.ch/fsnap/internal/adapters/fs"      //nolint:depguard // Wired in app layer
	"go.trai.ch/fsnap/internal/adapters/logger"  //nolint:depguard // Wired in app layer
	"go.trai.ch/fsnap/internal/adapters/store"   //nolint:depguard // Wired in app layer
	"go.trai.ch/fsnap/internal/adapters/watcher" //nolint:depguard // Wired in app layer
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/fsnap/internal/engine/snapshot"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			snapshot.NodeID,
			fs.NodeID,
			codec.NodeID,
			store.NodeID,
			watcher.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			store.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	snapshots, err := graft.Dep[*snapshot.Service](ctx)
	if err != nil {
		return nil, err
	}
	fsys, err := graft.Dep[ports.FileSystem](ctx)
	if err != nil {
		return nil, err
	}
	c, err := graft.Dep[ports.SnapshotCodec](ctx)
	if err != nil {
		return nil, err
	}
	s, err := graft.Dep[ports.SnapshotStore](ctx)
	if err != nil {
		return nil, err
	}
	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	return New(snapshots, fsys, c, s, w, log), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	s, err := graft.Dep[ports.SnapshotStore](ctx)
	if err != nil {
		return nil, err
	}
	return &Components{
		App:    app,
		Logger: log,
		Store:  s,
	}, nil
}
