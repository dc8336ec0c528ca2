// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/fsnap/internal/adapters/codec"
	_ "go.trai.ch/fsnap/internal/adapters/config"
	_ "go.trai.ch/fsnap/internal/adapters/fs"
	_ "go.trai.ch/fsnap/internal/adapters/hasher"
	_ "go.trai.ch/fsnap/internal/adapters/logger"
	_ "go.trai.ch/fsnap/internal/adapters/store"
	_ "go.trai.ch/fsnap/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/fsnap/internal/app"
	_ "go.trai.ch/fsnap/internal/engine/snapshot"
)
