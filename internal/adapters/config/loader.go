// Package config provides the configuration loader for fsnap.
package config

import (
	"errors"
	iofs "io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the only configuration version understood by this loader.
const SupportedVersion = "1"

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	fs afero.Fs
}

// NewLoader creates a Loader reading through fsys.
func NewLoader(fsys afero.Fs) *Loader {
	return &Loader{fs: fsys}
}

// Load finds fsnap.yaml in cwd or the closest parent directory and resolves it.
// Without a configuration file the defaults for cwd are returned.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	configPath, found, err := l.findConfiguration(cwd)
	if err != nil {
		return nil, err
	}
	if !found {
		return domain.DefaultConfig(cwd), nil
	}

	var file Fsnapfile
	if err := l.readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	cfg, err := resolve(filepath.Dir(configPath), &file)
	if err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	return cfg, nil
}

func (l *Loader) findConfiguration(cwd string) (string, bool, error) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		_, err := l.fs.Stat(candidate)
		if err == nil {
			return candidate, true, nil
		}
		if !errors.Is(err, iofs.ErrNotExist) {
			return "", false, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", candidate)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return "", false, nil
		}
		currentDir = parentDir
	}
}

func resolve(root string, file *Fsnapfile) (*domain.Config, error) {
	if file.Version != "" && file.Version != SupportedVersion {
		return nil, zerr.With(domain.ErrUnsupportedConfigVersion, "version", file.Version)
	}

	cfg := domain.DefaultConfig(root)

	if file.ManagedPaths != nil {
		cfg.ManagedPaths = absolutePaths(root, file.ManagedPaths)
	}
	cfg.ImmutablePaths = absolutePaths(root, file.ImmutablePaths)
	cfg.UnmanagedPaths = absolutePaths(root, file.UnmanagedPaths)

	switch file.HashFunction {
	case "":
	case domain.HashXXHash64, domain.HashSHA256:
		cfg.HashFunction = file.HashFunction
	default:
		return nil, zerr.With(domain.ErrUnknownHashFunction, "hash_function", file.HashFunction)
	}

	if file.MaxHashSize > 0 {
		cfg.MaxHashSize = file.MaxHashSize
	}
	if file.ValidityCacheSize > 0 {
		cfg.ValidityCacheSize = file.ValidityCacheSize
	}

	if err := applyConcurrency(&cfg.Concurrency, file.Concurrency); err != nil {
		return nil, err
	}

	switch file.Store.Backend {
	case "":
	case domain.StoreBackendFile, domain.StoreBackendBadger:
		cfg.Store.Backend = file.Store.Backend
	default:
		return nil, zerr.With(domain.ErrUnknownStoreBackend, "backend", file.Store.Backend)
	}
	if file.Store.Path != "" {
		cfg.Store.Path = absolutePath(root, file.Store.Path)
	}

	if file.Log.Level != "" {
		cfg.Log.Level = file.Log.Level
	}
	switch file.Log.Format {
	case "":
	case domain.LogFormatAuto, domain.LogFormatPretty, domain.LogFormatPlain, domain.LogFormatJSON:
		cfg.Log.Format = file.Log.Format
	default:
		return nil, zerr.With(domain.ErrUnknownLogFormat, "format", file.Log.Format)
	}
	if file.Log.File != "" {
		cfg.Log.File = absolutePath(root, file.Log.File)
	}
	if file.Log.MaxInvalidationLogs != 0 {
		cfg.Log.MaxInvalidationLogs = file.Log.MaxInvalidationLogs
	}

	return cfg, nil
}

func applyConcurrency(c *domain.Concurrency, dto ConcurrencyDTO) error {
	for _, f := range []struct {
		name string
		src  int
		dst  *int
	}{
		{"fileTimestamps", dto.FileTimestamps, &c.FileTimestamps},
		{"fileHashes", dto.FileHashes, &c.FileHashes},
		{"contextTimestamps", dto.ContextTimestamps, &c.ContextTimestamps},
		{"contextHashes", dto.ContextHashes, &c.ContextHashes},
		{"contextTshs", dto.ContextTshs, &c.ContextTshs},
		{"managedItems", dto.ManagedItems, &c.ManagedItems},
		{"directories", dto.Directories, &c.Directories},
	} {
		switch {
		case f.src < 0:
			err := zerr.With(domain.ErrInvalidConcurrency, "field", f.name)
			return zerr.With(err, "value", f.src)
		case f.src > 0:
			*f.dst = f.src
		}
	}
	return nil
}

func absolutePaths(root string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, absolutePath(root, p))
	}
	return out
}

func absolutePath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func (l *Loader) readAndUnmarshalYAML(configPath string, target *Fsnapfile) error {
	configFile, err := afero.ReadFile(l.fs, configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
