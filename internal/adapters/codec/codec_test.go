package codec_test

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fsnap/internal/adapters/codec"
	"go.trai.ch/fsnap/internal/adapters/fs"
	"go.trai.ch/fsnap/internal/adapters/hasher"
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports/mocks"
	"go.trai.ch/fsnap/internal/engine/managed"
	"go.trai.ch/fsnap/internal/engine/snapshot"
	"go.uber.org/mock/gomock"
)

func newCodec(t *testing.T) *codec.Codec {
	t.Helper()
	c, err := codec.New()
	require.NoError(t, err)
	return c
}

func fullSnapshot() *domain.Snapshot {
	s := domain.NewSnapshot()
	s.SetStartTime(1_700_000_000_000)
	domain.FileTimestamps.Set(s, map[string]*domain.TimestampFact{
		"/a":    {SafeTime: 11, Timestamp: 10},
		"/gone": nil,
	})
	domain.FileHashes.Set(s, map[string]string{"/b": "beef", "/absent": domain.HashAbsent})
	domain.FileTshs.Set(s, map[string]*domain.TimestampAndHash{
		"/c": {SafeTime: 21, Timestamp: 20, Hash: "c0ffee"},
	})
	domain.ContextTimestamps.Set(s, map[string]*domain.TimestampFact{
		"/src": {SafeTime: domain.SafeTimeNever, TimestampHash: "abc"},
	})
	domain.ContextHashes.Set(s, map[string]string{"/lib": "1234"})
	domain.ContextTshs.Set(s, map[string]*domain.TimestampAndHash{
		"/dist": {SafeTime: 31, Timestamp: 30, TimestampHash: "t", Hash: "h"},
		"/none": nil,
	})
	domain.MissingExistence.Set(s, map[string]bool{"/m": false, "/n": true})
	domain.ManagedItemInfo.Set(s, map[string]string{"/nm/pkg": "pkg@1.0.0"})
	domain.ManagedFiles.Set(s, map[string]struct{}{"/nm/pkg/package.json": {}})
	domain.ManagedContexts.Set(s, map[string]struct{}{"/nm/pkg": {}})
	domain.ManagedMissing.Set(s, map[string]struct{}{"/nm/other/package.json": {}})
	return s
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	in := fullSnapshot()

	data, err := c.Encode(in)
	require.NoError(t, err)
	assert.Equal(t, "FSNP", string(data[:4]))
	assert.Equal(t, codec.Version, data[4])

	out, err := c.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, in.Flags(), out.Flags())
	start, ok := out.StartTime()
	require.True(t, ok)
	assert.Equal(t, int64(1_700_000_000_000), start)

	assert.Equal(t, domain.FileTimestamps.Get(in), domain.FileTimestamps.Get(out))
	assert.Equal(t, domain.FileHashes.Get(in), domain.FileHashes.Get(out))
	assert.Equal(t, domain.FileTshs.Get(in), domain.FileTshs.Get(out))
	assert.Equal(t, domain.ContextTimestamps.Get(in), domain.ContextTimestamps.Get(out))
	assert.Equal(t, domain.ContextHashes.Get(in), domain.ContextHashes.Get(out))
	assert.Equal(t, domain.ContextTshs.Get(in), domain.ContextTshs.Get(out))
	assert.Equal(t, domain.MissingExistence.Get(in), domain.MissingExistence.Get(out))
	assert.Equal(t, domain.ManagedItemInfo.Get(in), domain.ManagedItemInfo.Get(out))
	assert.Equal(t, domain.ManagedFiles.Get(in), domain.ManagedFiles.Get(out))
	assert.Equal(t, domain.ManagedContexts.Get(in), domain.ManagedContexts.Get(out))
	assert.Equal(t, domain.ManagedMissing.Get(in), domain.ManagedMissing.Get(out))

	ts, ok := domain.FileTimestamps.Lookup(out, "/gone")
	assert.True(t, ok, "absent facts survive as entries")
	assert.Nil(t, ts)
}

func TestCodec_PresenceWithoutEntries(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	in := domain.NewSnapshot()
	domain.FileHashes.Set(in, nil)

	data, err := c.Encode(in)
	require.NoError(t, err)
	out, err := c.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, domain.FlagFileHashes, out.Flags())
	assert.Equal(t, map[string]string{}, domain.FileHashes.Get(out))
	_, ok := out.StartTime()
	assert.False(t, ok)
}

func TestCodec_SharedChildrenAreWrittenOnce(t *testing.T) {
	t.Parallel()

	shared := domain.NewSnapshot()
	domain.FileHashes.Set(shared, map[string]string{"/shared": "1"})

	left := domain.NewSnapshot()
	domain.FileHashes.Set(left, map[string]string{"/left": "2"})
	left.AddChild(shared)

	right := domain.NewSnapshot()
	right.AddChild(shared)

	root := domain.NewSnapshot()
	root.AddChild(left)
	root.AddChild(right)

	c := newCodec(t)
	data, err := c.Encode(root)
	require.NoError(t, err)
	out, err := c.Decode(data)
	require.NoError(t, err)

	children := out.Children()
	require.Len(t, children, 2)
	require.Len(t, children[0].Children(), 1)
	require.Len(t, children[1].Children(), 1)
	assert.Same(t, children[0].Children()[0], children[1].Children()[0])
	assert.Equal(t, []string{"/left", "/shared"}, out.Files())
}

func TestCodec_Deterministic(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	first, err := c.Encode(fullSnapshot())
	require.NoError(t, err)
	second, err := c.Encode(fullSnapshot())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCodec_DecodeErrors(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	valid, err := c.Encode(fullSnapshot())
	require.NoError(t, err)

	withVersion := append([]byte{}, valid...)
	withVersion[4] = 99

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty", data: nil, wantErr: domain.ErrCodecMalformed},
		{name: "bad magic", data: append([]byte("JUNK"), valid[4:]...), wantErr: domain.ErrCodecUnsupported},
		{name: "unknown version", data: withVersion, wantErr: domain.ErrCodecUnsupported},
		{name: "corrupt frame", data: append([]byte("FSNP\x01"), "not zstd"...), wantErr: domain.ErrCodecCompress},
		{name: "truncated frame", data: valid[:8], wantErr: domain.ErrCodecCompress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := c.Decode(tt.data)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCodec_RoundTripKeepsVerdicts(t *testing.T) {
	t.Parallel()

	mtime := time.UnixMilli(1_700_000_000_001)
	start := mtime.Add(time.Minute).UnixMilli()

	memFs := afero.NewMemMapFs()
	for path, content := range map[string]string{
		"/w/a.txt":               "a",
		"/w/b.txt":               "b",
		"/w/c.txt":               "c",
		"/w/src/d.js":            "d",
		"/w/nm/pkg/package.json": `{"name":"pkg","version":"1.0.0"}`,
	} {
		require.NoError(t, afero.WriteFile(memFs, path, []byte(content), domain.FilePerm))
		require.NoError(t, memFs.Chtimes(path, mtime, mtime))
	}

	session := func() *snapshot.Service {
		h, err := hasher.New(domain.HashXXHash64)
		require.NoError(t, err)
		logger := mocks.NewMockLogger(gomock.NewController(t))
		logger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
		logger.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
		svc, err := snapshot.New(fs.New(memFs), h, logger,
			managed.NewClassifier([]string{"/w/nm"}, nil, nil), snapshot.Options{})
		require.NoError(t, err)
		return svc
	}

	ctx := context.Background()
	svc := session()
	files := []string{"/w/a.txt", "/w/b.txt", "/w/c.txt", "/w/nm/pkg/index.js"}
	_, err := svc.CreateSnapshot(ctx, start, files, nil, nil, snapshot.CreateOptions{})
	require.NoError(t, err)
	snap, err := svc.CreateSnapshot(ctx, start, files[:3], []string{"/w/src"}, []string{"/w/e.txt"},
		snapshot.CreateOptions{})
	require.NoError(t, err)

	c := newCodec(t)
	data, err := c.Encode(snap)
	require.NoError(t, err)
	decoded, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, snap.Files(), decoded.Files())
	assert.Equal(t, snap.Directories(), decoded.Directories())
	assert.Equal(t, snap.Missing(), decoded.Missing())

	verdicts := func() (bool, bool) {
		check := session()
		original, err := check.CheckSnapshotValid(ctx, snap)
		require.NoError(t, err)
		restored, err := check.CheckSnapshotValid(ctx, decoded)
		require.NoError(t, err)
		return original, restored
	}

	original, restored := verdicts()
	assert.True(t, original)
	assert.Equal(t, original, restored)

	require.NoError(t, afero.WriteFile(memFs, "/w/e.txt", []byte("e"), domain.FilePerm))
	original, restored = verdicts()
	assert.False(t, original)
	assert.Equal(t, original, restored)
}
