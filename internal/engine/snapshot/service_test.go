package snapshot_test

import (
	"context"
	"errors"
	iofs "io/fs"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fsnap/internal/adapters/fs"
	"go.trai.ch/fsnap/internal/adapters/hasher"
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/fsnap/internal/core/ports/mocks"
	"go.trai.ch/fsnap/internal/engine/managed"
	"go.trai.ch/fsnap/internal/engine/snapshot"
	"go.uber.org/mock/gomock"
)

var (
	// mtime is odd so the reader assumes millisecond accuracy.
	mtime = time.UnixMilli(1_700_000_000_001)
	start = mtime.Add(10 * time.Second).UnixMilli()
)

type workspace struct {
	t  *testing.T
	fs afero.Fs
}

func newWorkspace(t *testing.T, files map[string]string) *workspace {
	t.Helper()
	w := &workspace{t: t, fs: afero.NewMemMapFs()}
	for path, content := range files {
		w.write(path, content, mtime)
	}
	return w
}

func (w *workspace) write(path, content string, at time.Time) {
	w.t.Helper()
	require.NoError(w.t, afero.WriteFile(w.fs, path, []byte(content), domain.FilePerm))
	require.NoError(w.t, w.fs.Chtimes(path, at, at))
}

func quietLogger(t *testing.T) *mocks.MockLogger {
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	return logger
}

func newService(t *testing.T, fsys ports.FileSystem) *snapshot.Service {
	t.Helper()
	h, err := hasher.New(domain.HashXXHash64)
	require.NoError(t, err)

	classifier := managed.NewClassifier([]string{"/nm"}, []string{"/frozen"}, nil)
	svc, err := snapshot.New(fsys, h, quietLogger(t), classifier, snapshot.Options{
		Concurrency: domain.DefaultConcurrency(),
		MaxHashSize: domain.DefaultMaxHashSize,
	})
	require.NoError(t, err)
	return svc
}

// session starts a fresh service over the workspace, as a later build would.
func (w *workspace) session() *snapshot.Service {
	return newService(w.t, fs.New(w.fs))
}

func mustCreate(
	t *testing.T, svc *snapshot.Service, files, dirs, missing []string, opts snapshot.CreateOptions,
) *domain.Snapshot {
	t.Helper()
	snap, err := svc.CreateSnapshot(context.Background(), start, files, dirs, missing, opts)
	require.NoError(t, err)
	require.NotNil(t, snap)
	return snap
}

func valid(t *testing.T, svc *snapshot.Service, snap *domain.Snapshot) bool {
	t.Helper()
	ok, err := svc.CheckSnapshotValid(context.Background(), snap)
	require.NoError(t, err)
	return ok
}

func TestCreateSnapshot_Empty(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, nil)
	svc := w.session()

	snap := mustCreate(t, svc, nil, nil, nil, snapshot.CreateOptions{})
	assert.Zero(t, snap.Flags())
	assert.False(t, snap.HasChildren())
	assert.True(t, valid(t, svc, snap))
	assert.True(t, valid(t, w.session(), snap))
}

func TestCreateSnapshot_Timestamp(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/a.txt": "a"})
	svc := w.session()

	snap := mustCreate(t, svc, []string{"/a.txt"}, nil, nil, snapshot.CreateOptions{})
	assert.Equal(t, domain.FlagFileTimestamps, snap.Flags())

	ts, ok := domain.FileTimestamps.Lookup(snap, "/a.txt")
	require.True(t, ok)
	assert.Equal(t, mtime.UnixMilli(), ts.Timestamp)
	assert.True(t, valid(t, svc, snap))
	assert.True(t, valid(t, w.session(), snap))

	w.write("/a.txt", "b", mtime.Add(time.Millisecond))
	assert.False(t, valid(t, w.session(), snap))
}

func TestCreateSnapshot_Idempotent(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/src/a.js": "a", "/src/b.js": "b"})
	svc := w.session()
	files := []string{"/src/a.js", "/src/b.js"}

	first := mustCreate(t, svc, files, []string{"/src"}, []string{"/src/c.js"}, snapshot.CreateOptions{})
	second := mustCreate(t, svc, files, []string{"/src"}, []string{"/src/c.js"}, snapshot.CreateOptions{})

	assert.True(t, valid(t, svc, first))
	assert.True(t, valid(t, svc, second))
}

func TestCreateSnapshot_ChangedAfterStart(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, nil)
	w.write("/late.txt", "x", time.UnixMilli(start+5))

	snap := mustCreate(t, w.session(), []string{"/late.txt"}, nil, nil, snapshot.CreateOptions{})
	assert.False(t, valid(t, w.session(), snap), "a file touched after the start time cannot be trusted")
}

func TestCreateSnapshot_Missing(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, nil)
	snap := mustCreate(t, w.session(), nil, nil, []string{"/b.txt"}, snapshot.CreateOptions{})

	assert.Equal(t, map[string]bool{"/b.txt": false}, domain.MissingExistence.Get(snap))
	assert.True(t, valid(t, w.session(), snap))

	w.write("/b.txt", "now here", mtime)
	assert.False(t, valid(t, w.session(), snap))
}

func TestCreateSnapshot_Directory(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/src/a.js": "a", "/src/lib/b.js": "b"})
	snap := mustCreate(t, w.session(), nil, []string{"/src"}, nil, snapshot.CreateOptions{})

	assert.Equal(t, domain.FlagContextTimestamps, snap.Flags())
	assert.True(t, valid(t, w.session(), snap))

	w.write("/src/lib/new.js", "n", mtime)
	assert.False(t, valid(t, w.session(), snap))
}

func TestCreateSnapshot_Hash(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/a.txt": "a", "/src/b.js": "b"})
	opts := snapshot.CreateOptions{Hash: true}
	snap := mustCreate(t, w.session(), []string{"/a.txt"}, []string{"/src"}, nil, opts)

	assert.Equal(t, domain.FlagFileHashes|domain.FlagContextHashes, snap.Flags())

	// Touching without changing content keeps the snapshot valid.
	w.write("/a.txt", "a", mtime.Add(time.Hour))
	w.write("/src/b.js", "b", mtime.Add(time.Hour))
	assert.True(t, valid(t, w.session(), snap))

	w.write("/src/b.js", "changed", mtime)
	assert.False(t, valid(t, w.session(), snap))
}

func TestCreateSnapshot_TimestampAndHash(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/a.txt": "a", "/src/b.js": "b"})
	opts := snapshot.CreateOptions{Hash: true, Timestamp: true}
	snap := mustCreate(t, w.session(), []string{"/a.txt"}, []string{"/src"}, nil, opts)

	assert.Equal(t, domain.FlagFileTshs|domain.FlagContextTshs, snap.Flags())
	tsh, ok := domain.FileTshs.Lookup(snap, "/a.txt")
	require.True(t, ok)
	assert.Equal(t, mtime.UnixMilli(), tsh.Timestamp)
	assert.NotEmpty(t, tsh.Hash)
	assert.True(t, valid(t, w.session(), snap))

	// A changed timestamp with unchanged content falls back to the hash.
	w.write("/a.txt", "a", time.UnixMilli(start+100))
	w.write("/src/b.js", "b", time.UnixMilli(start+100))
	assert.True(t, valid(t, w.session(), snap))

	w.write("/a.txt", "changed", time.UnixMilli(start+200))
	assert.False(t, valid(t, w.session(), snap))
}

func TestCreateSnapshot_ManagedPaths(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{
		"/nm/pkg/package.json": `{"name":"pkg","version":"1.0.0"}`,
		"/nm/pkg/index.js":     "v1",
	})
	snap := mustCreate(t, w.session(), []string{"/nm/pkg/index.js"}, nil, nil, snapshot.CreateOptions{})

	assert.Equal(t, domain.FlagManagedItemInfo|domain.FlagManagedFiles, snap.Flags())
	assert.Equal(t, map[string]string{"/nm/pkg": "pkg@1.0.0"}, domain.ManagedItemInfo.Get(snap))
	assert.Equal(t, set("/nm/pkg/index.js", "/nm/pkg/package.json"), domain.ManagedFiles.Get(snap))

	w.write("/nm/pkg/index.js", "v2", mtime.Add(time.Millisecond))
	assert.True(t, valid(t, w.session(), snap), "edits inside a package do not invalidate")

	w.write("/nm/pkg/package.json", `{"name":"pkg","version":"1.0.1"}`, mtime)
	assert.False(t, valid(t, w.session(), snap), "a version bump does")
}

func TestCreateSnapshot_ManagedFallback(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/nm/loose/index.js": "x"})
	snap := mustCreate(t, w.session(), []string{"/nm/loose/index.js"}, nil, nil, snapshot.CreateOptions{})

	assert.Equal(t, domain.FlagFileTimestamps, snap.Flags(), "unidentified items are tracked file by file")
	_, ok := domain.FileTimestamps.Lookup(snap, "/nm/loose/index.js")
	assert.True(t, ok)
}

func TestCreateSnapshot_NestedManagedItem(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{
		"/nm/group/node_modules/dep/package.json": `{"name":"dep","version":"1.0.0"}`,
	})
	snap := mustCreate(t, w.session(), nil, []string{"/nm/group"}, nil, snapshot.CreateOptions{})

	assert.Equal(t, map[string]string{"/nm/group": domain.ManagedItemNested}, domain.ManagedItemInfo.Get(snap))
	assert.Equal(t, set("/nm/group/package.json"), domain.ManagedMissing.Get(snap))
	assert.Equal(t, set("/nm/group"), domain.ManagedContexts.Get(snap))
}

func TestCreateSnapshot_ImmutablePaths(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/frozen/lib.js": "x"})
	snap := mustCreate(t, w.session(), []string{"/frozen/lib.js"}, nil, nil, snapshot.CreateOptions{})

	assert.Equal(t, domain.FlagManagedFiles, snap.Flags())

	w.write("/frozen/lib.js", "y", mtime.Add(time.Millisecond))
	assert.True(t, valid(t, w.session(), snap))
}

func TestCreateSnapshot_IgnoredPathsAreNotRecorded(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/a": "a", "/b": "b"})
	svc := w.session()
	svc.AddFileTimestamps(map[string]*domain.TimestampFact{"/a": domain.IgnoredTimestamp})

	snap := mustCreate(t, svc, []string{"/a", "/b"}, nil, nil, snapshot.CreateOptions{})
	_, ok := domain.FileTimestamps.Lookup(snap, "/a")
	assert.False(t, ok)
	_, ok = domain.FileTimestamps.Lookup(snap, "/b")
	assert.True(t, ok)
}

func TestCreateSnapshot_ReadError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fsys := mocks.NewMockFileSystem(ctrl)
	fsys.EXPECT().Stat("/a").Return(nil, errors.New("input/output error"))
	fsys.EXPECT().Stat(gomock.Any()).Return(nil, iofs.ErrNotExist).AnyTimes()

	svc := newService(t, fsys)
	snap, err := svc.CreateSnapshot(context.Background(), start, []string{"/a", "/b"}, nil, nil, snapshot.CreateOptions{})
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, domain.ErrSnapshotFailed)
	assert.ErrorContains(t, err, "input/output error")
}

func TestCheckSnapshotValid_ReadErrorIsInvalid(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/a": "a"})
	snap := mustCreate(t, w.session(), []string{"/a"}, nil, nil, snapshot.CreateOptions{})

	ctrl := gomock.NewController(t)
	fsys := mocks.NewMockFileSystem(ctrl)
	fsys.EXPECT().Stat("/a").Return(nil, errors.New("permission denied"))

	ok, err := newService(t, fsys).CheckSnapshotValid(context.Background(), snap)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckSnapshotValid_ContextCanceled(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/a": "a"})
	snap := mustCreate(t, w.session(), []string{"/a"}, nil, nil, snapshot.CreateOptions{})

	release := make(chan struct{})
	defer close(release)

	ctrl := gomock.NewController(t)
	fsys := mocks.NewMockFileSystem(ctrl)
	fsys.EXPECT().Stat("/a").DoAndReturn(func(string) (iofs.FileInfo, error) {
		<-release
		return nil, iofs.ErrNotExist
	}).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(t, fsys).CheckSnapshotValid(ctx, snap)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckSnapshotValid_CoalescesConcurrentCallers(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/a": "a", "/b": "b", "/c": "c"})
	snap := mustCreate(t, w.session(), []string{"/a", "/b", "/c"}, nil, nil, snapshot.CreateOptions{})

	svc := w.session()
	var wg sync.WaitGroup
	results := make([]bool, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.CheckSnapshotValid(context.Background(), snap)
			assert.NoError(t, err)
			results[i] = ok
		}()
	}
	wg.Wait()

	for _, ok := range results {
		assert.True(t, ok)
	}
}

func TestCheckSnapshotValid_InvalidateRechecks(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/a": "a"})
	svc := w.session()
	snap := mustCreate(t, svc, []string{"/a"}, nil, nil, snapshot.CreateOptions{})
	require.True(t, valid(t, svc, snap))

	w.write("/a", "b", mtime.Add(time.Millisecond))
	assert.True(t, valid(t, svc, snap), "verdicts are memoized until invalidated")

	svc.Invalidate([]string{"/a"})
	assert.False(t, valid(t, svc, snap))
}

func TestCheckSnapshotValid_IgnoredTimestamp(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/a": "a"})
	snap := mustCreate(t, w.session(), []string{"/a"}, nil, nil, snapshot.CreateOptions{})

	w.write("/a", "b", mtime.Add(time.Millisecond))
	svc := w.session()
	svc.AddFileTimestamps(map[string]*domain.TimestampFact{"/a": domain.IgnoredTimestamp})
	assert.True(t, valid(t, svc, snap))
}

func TestSharingIsolation(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{
		"/s/1": "1", "/s/2": "2", "/s/3": "3", "/s/4": "4", "/s/5": "5",
	})
	svc := w.session()

	a := mustCreate(t, svc, []string{"/s/1", "/s/2", "/s/3", "/s/4"}, nil, nil, snapshot.CreateOptions{})
	b := mustCreate(t, svc, []string{"/s/1", "/s/2", "/s/3", "/s/5"}, nil, nil, snapshot.CreateOptions{})

	require.Len(t, b.Children(), 1, "the overlap is shared")
	assert.Equal(t, b.Children(), a.Children())
	assert.Equal(t, []string{"/s/1", "/s/2", "/s/3", "/s/4"}, a.Files())
	assert.Equal(t, []string{"/s/1", "/s/2", "/s/3", "/s/5"}, b.Files())

	w.write("/s/4", "changed", mtime.Add(time.Millisecond))
	check := w.session()
	assert.False(t, valid(t, check, a))
	assert.True(t, valid(t, check, b))

	w.write("/s/2", "changed", mtime.Add(time.Millisecond))
	check = w.session()
	assert.False(t, valid(t, check, a))
	assert.False(t, valid(t, check, b))
}

func TestCheckSnapshotValid_ReadsCategoriesWithChildren(t *testing.T) {
	t.Parallel()

	files := []string{"/s/1", "/s/2", "/s/3", "/s/4"}
	w := newWorkspace(t, map[string]string{"/s/1": "1", "/s/2": "2", "/s/3": "3", "/s/4": "4"})
	snap := mustCreate(t, w.session(), files, nil, nil, snapshot.CreateOptions{})

	// A concurrent capture moves /s/1-3 into a shared child after the checker
	// took its view of snap.
	view := snap.Clone()
	shared := domain.NewSnapshot()
	moved := domain.FileTimestamps.Carve(snap, shared, func(p string) bool { return p != "/s/4" }, 3)
	require.Len(t, moved, 3)
	assert.Empty(t, view.Children())

	w.write("/s/1", "changed", mtime.Add(time.Minute))
	check := w.session()
	assert.False(t, snapshot.CompareExported(context.Background(), check, view))
	assert.False(t, valid(t, check, snap))
}

// debugLog records the debug messages of a session.
type debugLog struct {
	mu   sync.Mutex
	msgs []string
}

func (l *debugLog) count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.msgs {
		if m == msg {
			n++
		}
	}
	return n
}

func (w *workspace) recordingSession(maxLogs int) (*snapshot.Service, *debugLog) {
	w.t.Helper()

	log := &debugLog{}
	logger := mocks.NewMockLogger(gomock.NewController(w.t))
	logger.EXPECT().Debug(gomock.Any(), gomock.Any()).Do(func(msg string, _ ...any) {
		log.mu.Lock()
		defer log.mu.Unlock()
		log.msgs = append(log.msgs, msg)
	}).AnyTimes()
	logger.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()

	h, err := hasher.New(domain.HashXXHash64)
	require.NoError(w.t, err)
	svc, err := snapshot.New(fs.New(w.fs), h, logger, managed.NewClassifier(nil, nil, nil),
		snapshot.Options{MaxInvalidationLogs: maxLogs})
	require.NoError(w.t, err)
	return svc, log
}

// warm reads the current timestamps of paths, so that a check compares all of
// them before returning instead of stopping at the first fetched mismatch.
func warm(t *testing.T, svc *snapshot.Service, paths []string) {
	t.Helper()
	for _, p := range paths {
		_, err := svc.GetFileTimestamp(context.Background(), p)
		require.NoError(t, err)
	}
}

const (
	reasonChanged = "changed after snapshot start"
	logLimitMsg   = "invalidation log limit reached, further reasons are not logged"
)

func changedTree(t *testing.T) (*workspace, []string) {
	t.Helper()
	files := []string{"/s/1", "/s/2", "/s/3", "/s/4", "/s/5"}
	contents := make(map[string]string, len(files))
	for _, f := range files {
		contents[f] = f
	}
	return newWorkspace(t, contents), files
}

func TestCheckSnapshotValid_InvalidationLogBudget(t *testing.T) {
	t.Parallel()

	w, files := changedTree(t)
	snap := mustCreate(t, w.session(), files, nil, nil, snapshot.CreateOptions{})
	for _, f := range files {
		w.write(f, "changed", mtime.Add(time.Minute))
	}

	svc, log := w.recordingSession(2)
	warm(t, svc, files)
	assert.False(t, valid(t, svc, snap))

	assert.Equal(t, 2, log.count(reasonChanged))
	assert.Equal(t, 1, log.count(logLimitMsg))

	svc.Invalidate(files)
	warm(t, svc, files)
	assert.False(t, valid(t, svc, snap))
	assert.Equal(t, 2, log.count(reasonChanged))
	assert.Equal(t, 1, log.count(logLimitMsg), "the limit is announced once per session")
}

func TestCheckSnapshotValid_InvalidationLogsAreDeduplicated(t *testing.T) {
	t.Parallel()

	w, files := changedTree(t)
	first := mustCreate(t, w.session(), files, nil, nil, snapshot.CreateOptions{})
	second := mustCreate(t, w.session(), files, nil, nil, snapshot.CreateOptions{})
	for _, f := range files {
		w.write(f, "changed", mtime.Add(time.Minute))
	}

	svc, log := w.recordingSession(0)
	warm(t, svc, files)
	assert.False(t, valid(t, svc, first))
	assert.Equal(t, len(files), log.count(reasonChanged))

	assert.False(t, valid(t, svc, second))
	assert.Equal(t, len(files), log.count(reasonChanged), "same path and reason are logged once")
	assert.Zero(t, log.count(logLimitMsg))
}

func TestMergeSnapshots_ResetDropsInheritedVerdict(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/a": "a", "/b": "b"})
	svc := w.session()
	a := mustCreate(t, svc, []string{"/a"}, nil, nil, snapshot.CreateOptions{})
	b := mustCreate(t, svc, []string{"/b"}, nil, nil, snapshot.CreateOptions{})
	require.True(t, valid(t, svc, a))
	require.True(t, valid(t, svc, b))

	merged := snapshot.Merge(a, b)
	generation := snapshot.GenerationExported(svc)
	svc.Invalidate([]string{"/a"})
	snapshot.RememberExported(svc, merged, generation)
	assert.False(t, snapshot.KnownValidExported(svc, merged))

	snapshot.RememberExported(svc, merged, snapshot.GenerationExported(svc))
	assert.True(t, snapshot.KnownValidExported(svc, merged))
}

func TestMergeSnapshots(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/a": "a", "/b": "b"})
	svc := w.session()

	ctx := context.Background()
	a, err := svc.CreateSnapshot(ctx, start, []string{"/a"}, nil, nil, snapshot.CreateOptions{})
	require.NoError(t, err)
	b, err := svc.CreateSnapshot(ctx, start-5, []string{"/b"}, nil, []string{"/c"}, snapshot.CreateOptions{})
	require.NoError(t, err)

	require.True(t, valid(t, svc, a))
	require.True(t, valid(t, svc, b))

	merged := svc.MergeSnapshots(a, b)
	assert.Equal(t, domain.FlagFileTimestamps|domain.FlagMissingExistence, merged.Flags())
	assert.Equal(t, []string{"/a", "/b"}, merged.Files())
	assert.Equal(t, []string{"/c"}, merged.Missing())

	mergedStart, ok := merged.StartTime()
	require.True(t, ok)
	assert.Equal(t, start-5, mergedStart)

	// The merged verdict is inherited even though /a changed since.
	w.write("/a", "changed", mtime.Add(time.Millisecond))
	assert.True(t, valid(t, svc, merged))
	assert.False(t, valid(t, w.session(), merged))
}

func TestMerge_LaterWins(t *testing.T) {
	t.Parallel()

	a := domain.NewSnapshot()
	domain.FileHashes.Set(a, map[string]string{"/x": "1", "/y": "1"})
	b := domain.NewSnapshot()
	domain.FileHashes.Set(b, map[string]string{"/y": "2"})
	child := domain.NewSnapshot()
	b.AddChild(child)

	merged := snapshot.Merge(a, b)
	assert.Equal(t, map[string]string{"/x": "1", "/y": "2"}, domain.FileHashes.Get(merged))
	assert.Equal(t, []*domain.Snapshot{child}, merged.Children())
	_, ok := merged.StartTime()
	assert.False(t, ok)
}

func TestService_Accessors(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{
		"/src/a.js":            "a",
		"/nm/pkg/package.json": `{"name":"pkg","version":"2.0.0"}`,
	})
	svc := w.session()
	ctx := context.Background()

	ts, err := svc.GetFileTimestamp(ctx, "/src/a.js")
	require.NoError(t, err)
	assert.Equal(t, mtime.UnixMilli(), ts.Timestamp)

	h, err := svc.GetFileHash(ctx, "/src/a.js")
	require.NoError(t, err)
	assert.NotEmpty(t, h)

	cts, err := svc.GetContextTimestamp(ctx, "/src")
	require.NoError(t, err)
	assert.NotEmpty(t, cts.TimestampHash)

	ch, err := svc.GetContextHash(ctx, "/src")
	require.NoError(t, err)
	assert.NotEmpty(t, ch)

	tsh, err := svc.GetContextTsh(ctx, "/src")
	require.NoError(t, err)
	assert.Equal(t, ch, tsh.Hash)

	info, err := svc.GetManagedItemInfo(ctx, "/nm/pkg")
	require.NoError(t, err)
	assert.Equal(t, "pkg@2.0.0", info)
}

func TestService_LogStatistics(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t, map[string]string{"/a": "a", "/b": "b", "/c": "c"})
	h, err := hasher.New("")
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info("snapshots", gomock.Any()).Times(1)
	logger.EXPECT().Info("snapshot optimization", gomock.Any()).Times(1)
	logger.EXPECT().Info("fact cache", gomock.Any()).Times(6)
	logger.EXPECT().Info("timestamp accuracy", gomock.Any()).Times(1)

	svc, err := snapshot.New(fs.New(w.fs), h, logger, nil, snapshot.Options{})
	require.NoError(t, err)
	mustCreate(t, svc, []string{"/a", "/b", "/c"}, nil, nil, snapshot.CreateOptions{})

	svc.LogStatistics()
}
