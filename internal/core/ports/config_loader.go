package ports

import "go.trai.ch/fsnap/internal/core/domain"

// ConfigLoader defines the interface for loading the project configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load discovers the configuration starting at cwd and walking up. When no
	// configuration file exists, the defaults for cwd are returned.
	Load(cwd string) (*domain.Config, error)
}
