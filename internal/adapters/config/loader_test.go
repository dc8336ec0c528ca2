package config_test

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fsnap/internal/adapters/config"
	"go.trai.ch/fsnap/internal/core/domain"
)

func writeConfig(t *testing.T, fsys afero.Fs, dir, content string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(dir, domain.DirPerm))
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(dir, domain.ConfigFileName), []byte(content), domain.FilePerm))
}

func TestLoader_Load_Defaults(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/project/src", domain.DirPerm))

	cfg, err := config.NewLoader(fsys).Load("/project/src")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConfig("/project/src"), cfg)
	assert.Equal(t, []string{"/project/src/node_modules"}, cfg.ManagedPaths)
}

func TestLoader_Load_WalksUp(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeConfig(t, fsys, "/project", `
version: "1"
managedPaths: [node_modules, vendor]
immutablePaths: [/opt/store]
unmanagedPaths: [node_modules/local]
hashFunction: sha256
maxHashSize: 1024
validityCacheSize: 10
concurrency:
  fileHashes: 4
  directories: 3
store:
  backend: badger
  path: cache/snapshots
log:
  level: debug
  format: json
  file: logs/fsnap.log
  maxInvalidationLogs: 5
`)
	require.NoError(t, fsys.MkdirAll("/project/a/b", domain.DirPerm))

	cfg, err := config.NewLoader(fsys).Load("/project/a/b")
	require.NoError(t, err)

	assert.Equal(t, "/project", cfg.Root)
	assert.Equal(t, []string{"/project/node_modules", "/project/vendor"}, cfg.ManagedPaths)
	assert.Equal(t, []string{"/opt/store"}, cfg.ImmutablePaths)
	assert.Equal(t, []string{"/project/node_modules/local"}, cfg.UnmanagedPaths)
	assert.Equal(t, domain.HashSHA256, cfg.HashFunction)
	assert.Equal(t, int64(1024), cfg.MaxHashSize)
	assert.Equal(t, 10, cfg.ValidityCacheSize)

	want := domain.DefaultConcurrency()
	want.FileHashes = 4
	want.Directories = 3
	assert.Equal(t, want, cfg.Concurrency)

	assert.Equal(t, domain.StoreConfig{Backend: domain.StoreBackendBadger, Path: "/project/cache/snapshots"}, cfg.Store)
	assert.Equal(t, domain.LogConfig{
		Level:               "debug",
		Format:              domain.LogFormatJSON,
		File:                "/project/logs/fsnap.log",
		MaxInvalidationLogs: 5,
	}, cfg.Log)
}

func TestLoader_Load_EmptyManagedPathsDisablesDefault(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeConfig(t, fsys, "/project", "managedPaths: []\n")

	cfg, err := config.NewLoader(fsys).Load("/project")
	require.NoError(t, err)
	assert.Empty(t, cfg.ManagedPaths)
}

func TestLoader_Load_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "invalid yaml", content: "managedPaths: [", wantErr: domain.ErrConfigParseFailed},
		{name: "unsupported version", content: `version: "2"`, wantErr: domain.ErrUnsupportedConfigVersion},
		{name: "unknown hash", content: "hashFunction: md5", wantErr: domain.ErrUnknownHashFunction},
		{name: "unknown backend", content: "store:\n  backend: redis", wantErr: domain.ErrUnknownStoreBackend},
		{name: "unknown log format", content: "log:\n  format: xml", wantErr: domain.ErrUnknownLogFormat},
		{name: "negative concurrency", content: "concurrency:\n  fileHashes: -1", wantErr: domain.ErrInvalidConcurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fsys := afero.NewMemMapFs()
			writeConfig(t, fsys, "/project", tt.content)

			_, err := config.NewLoader(fsys).Load("/project")
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr.Error())
		})
	}
}
