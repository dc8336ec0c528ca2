package app

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/fsnap/internal/adapters/watcher" //nolint:depguard // Wired in app layer
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/ui/output"
	"go.trai.ch/fsnap/internal/ui/style"
	"go.trai.ch/zerr"
)

// Watch checks the snapshot stored under key, then re-checks it after every batch
// of changes to the paths it tracks. It returns when ctx is done.
func (a *App) Watch(ctx context.Context, key string, w io.Writer) (err error) {
	ctx, span := a.tracer.Start(ctx, "watch", trace.WithAttributes(attribute.String("key", key)))
	defer func() { endSpan(span, err) }()

	snap, err := a.load(key)
	if err != nil {
		return err
	}

	filter := newTrackedPaths(snap)
	roots := a.watchRoots(filter)
	if len(roots) == 0 {
		return zerr.With(domain.ErrNoPathsSpecified, "key", key)
	}
	span.SetAttributes(attribute.StringSlice("roots", roots))

	if err := a.watcher.Start(ctx, roots); err != nil {
		return err
	}
	defer func() { _ = a.watcher.Stop() }()

	styles := style.New(output.Renderer(w))
	var mu sync.Mutex
	report := func(changed []string) {
		mu.Lock()
		defer mu.Unlock()

		a.snapshots.Invalidate(changed)
		valid, err := a.snapshots.CheckSnapshotValid(ctx, snap)
		if err != nil {
			return
		}
		if len(changed) == 0 {
			_, _ = fmt.Fprintln(w, styles.Verdict(valid))
			return
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", styles.Verdict(valid),
			styles.Muted.Render(fmt.Sprintf("after %d changed paths", len(changed))))
	}

	report(nil)

	debouncer := watcher.NewDebouncer(a.debounce, report)
	for event := range a.watcher.Events() {
		if filter.match(event.Path) {
			a.logger.Debug("tracked path changed", "path", event.Path)
			debouncer.Add(event.Path)
		}
	}
	debouncer.Flush()
	return nil
}

// watchRoots returns the directories to watch so that every tracked path is covered.
// Roots nested in other roots are dropped.
func (a *App) watchRoots(t *trackedPaths) []string {
	candidates := slices.Concat(t.dirs, lo.Map(lo.Keys(t.exact), func(p string, _ int) string {
		return a.existingAncestor(a.fsys.Dir(p))
	}))
	candidates = lo.Uniq(candidates)
	slices.Sort(candidates)

	roots := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !lo.SomeBy(roots, func(r string) bool { return under(c, r) }) {
			roots = append(roots, c)
		}
	}
	return roots
}

// existingAncestor returns p, or its closest ancestor that exists.
func (a *App) existingAncestor(p string) string {
	for {
		if _, err := a.fsys.Stat(p); err == nil {
			return p
		}
		parent := a.fsys.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}

// trackedPaths matches change events against the paths of a snapshot.
type trackedPaths struct {
	exact map[string]struct{}
	dirs  []string
}

func newTrackedPaths(s *domain.Snapshot) *trackedPaths {
	exact := make(map[string]struct{})
	for _, p := range slices.Concat(s.Files(), s.Missing()) {
		exact[p] = struct{}{}
	}
	return &trackedPaths{
		exact: exact,
		dirs:  lo.Uniq(slices.Concat(s.Directories(), s.ManagedItems())),
	}
}

// match reports whether a change to path can affect a tracked path: path is
// tracked, lies below a tracked directory, or contains a tracked path.
func (t *trackedPaths) match(path string) bool {
	if _, ok := t.exact[path]; ok {
		return true
	}
	for _, d := range t.dirs {
		if path == d || under(path, d) || under(d, path) {
			return true
		}
	}
	for p := range t.exact {
		if under(p, path) {
			return true
		}
	}
	return false
}

// under reports whether path lies strictly below dir.
func under(path, dir string) bool {
	if dir == "/" {
		return path != "/" && strings.HasPrefix(path, "/")
	}
	return strings.HasPrefix(path, dir+"/") || strings.HasPrefix(path, dir+`\`)
}
