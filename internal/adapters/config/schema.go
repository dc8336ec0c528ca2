package config

// Fsnapfile represents the structure of the fsnap.yaml configuration file.
type Fsnapfile struct {
	Version           string         `yaml:"version"`
	ManagedPaths      []string       `yaml:"managedPaths"`
	ImmutablePaths    []string       `yaml:"immutablePaths"`
	UnmanagedPaths    []string       `yaml:"unmanagedPaths"`
	HashFunction      string         `yaml:"hashFunction"`
	MaxHashSize       int64          `yaml:"maxHashSize"`
	Concurrency       ConcurrencyDTO `yaml:"concurrency"`
	ValidityCacheSize int            `yaml:"validityCacheSize"`
	Store             StoreDTO       `yaml:"store"`
	Log               LogDTO         `yaml:"log"`
}

// ConcurrencyDTO holds the per-kind queue limits. Zero keeps the default.
type ConcurrencyDTO struct {
	FileTimestamps    int `yaml:"fileTimestamps"`
	FileHashes        int `yaml:"fileHashes"`
	ContextTimestamps int `yaml:"contextTimestamps"`
	ContextHashes     int `yaml:"contextHashes"`
	ContextTshs       int `yaml:"contextTshs"`
	ManagedItems      int `yaml:"managedItems"`
	Directories       int `yaml:"directories"`
}

// StoreDTO selects the snapshot store.
type StoreDTO struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// LogDTO configures logging.
type LogDTO struct {
	Level               string `yaml:"level"`
	Format              string `yaml:"format"`
	File                string `yaml:"file"`
	MaxInvalidationLogs int    `yaml:"maxInvalidationLogs"`
}
