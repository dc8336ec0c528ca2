package facts

import (
	"context"
	"encoding/json"
	"errors"
	iofs "io/fs"
	"strings"

	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/zerr"
)

type manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (r *Reader) readManagedItem(ctx context.Context, path string) (string, error) {
	if info, ok := r.managedItems.peek(path); ok {
		return info, nil
	}

	info, cacheable, err := r.identify(ctx, path)
	if err != nil {
		return "", err
	}
	if cacheable {
		r.managedItems.set(path, info)
	}
	return info, nil
}

// identify resolves the identity of a managed item. Unidentifiable items are not
// cached so that a later manifest can still be picked up.
func (r *Reader) identify(ctx context.Context, path string) (string, bool, error) {
	siblings, err := r.listing(ctx, r.fs.Dir(path))
	if err != nil {
		return "", false, err
	}
	if _, ok := siblings[path]; !ok {
		return domain.ManagedItemMissing, true, nil
	}
	if base(path) == domain.NodeModulesDirName {
		return domain.ManagedItemExists, true, nil
	}

	manifestPath := r.fs.Join(path, domain.ManifestFileName)
	data, err := r.fs.ReadFile(manifestPath)
	if err != nil {
		if !errors.Is(err, iofs.ErrNotExist) {
			return "", false, errors.Join(domain.ErrManifestRead, zerr.With(err, "path", manifestPath))
		}
		if r.isNested(path) {
			return domain.ManagedItemNested, true, nil
		}
		r.warnOnce("manifest:"+path,
			"managed item is not a directory or has no "+domain.ManifestFileName, "path", path)
		return "", false, nil
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", false, errors.Join(domain.ErrManifestParse, zerr.With(err, "path", manifestPath))
	}
	if m.Name == "" {
		r.warnOnce("name:"+path, "package manifest has no name", "path", manifestPath)
		return "", false, nil
	}

	return m.Name + "@" + m.Version, true, nil
}

// isNested reports whether path is a grouping directory holding only node_modules.
func (r *Reader) isNested(path string) bool {
	entries, err := r.fs.ReadDir(path)
	return err == nil && len(entries) == 1 && entries[0].Name() == domain.NodeModulesDirName
}

func (r *Reader) listing(ctx context.Context, dir string) (map[string]struct{}, error) {
	if l, ok := r.listings.get(dir); ok {
		return l, nil
	}
	return r.listingQueue.do(ctx, dir)
}

func (r *Reader) readListing(_ context.Context, dir string) (map[string]struct{}, error) {
	if l, ok := r.listings.peek(dir); ok {
		return l, nil
	}

	entries, err := r.fs.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, iofs.ErrNotExist) {
			return nil, wrapFact(err, dir)
		}
		entries = nil
	}

	l := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		l[r.fs.Join(dir, e.Name())] = struct{}{}
	}
	r.listings.set(dir, l)
	return l, nil
}

func base(path string) string {
	path = strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
