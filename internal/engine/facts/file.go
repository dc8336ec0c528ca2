package facts

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	iofs "io/fs"

	"go.trai.ch/fsnap/internal/core/domain"
)

func (r *Reader) readFileTimestamp(_ context.Context, path string) (*domain.TimestampFact, error) {
	if ts, ok := r.fileTimestamps.peek(path); ok {
		return ts, nil
	}

	info, err := r.fs.Stat(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			r.fileTimestamps.set(path, nil)
			return nil, nil
		}
		return nil, wrapFact(err, path)
	}

	ts := r.timestampOf(info)
	r.fileTimestamps.set(path, ts)
	return ts, nil
}

func (r *Reader) readFileHash(_ context.Context, path string) (string, error) {
	if h, ok := r.fileHashes.peek(path); ok {
		return h, nil
	}

	hash, err := r.hashFile(path)
	if err != nil {
		return "", err
	}
	r.fileHashes.set(path, hash)
	return hash, nil
}

func (r *Reader) hashFile(path string) (string, error) {
	info, err := r.fs.Stat(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return domain.HashAbsent, nil
		}
		return "", wrapFact(err, path)
	}
	if info.IsDir() {
		return domain.HashDirectory, nil
	}
	if r.maxHashSize > 0 && info.Size() > r.maxHashSize {
		r.warnOnce("size:"+path, "ignoring file for hashing as it is too large", "path", path, "size", info.Size())
		return domain.HashTooLarge, nil
	}

	f, err := r.fs.Open(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return domain.HashAbsent, nil
		}
		return "", wrapFact(err, path)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	h := r.hasher.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", wrapFact(err, path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// timestampOf builds the timestamp fact for info. A file is only safe once the
// filesystem's mtime granularity has passed after its mtime.
func (r *Reader) timestampOf(info iofs.FileInfo) *domain.TimestampFact {
	mod := info.ModTime()
	if mod.IsZero() || mod.UnixMilli() == 0 {
		return &domain.TimestampFact{SafeTime: domain.SafeTimeNever}
	}
	mtime := mod.UnixMilli()
	r.applyMtime(mtime)
	return &domain.TimestampFact{
		SafeTime:  mtime + r.accuracy.Load(),
		Timestamp: mtime,
	}
}

// applyMtime lowers the assumed mtime granularity when mtime proves the filesystem
// records finer timestamps.
func (r *Reader) applyMtime(mtime int64) {
	for {
		cur := r.accuracy.Load()
		next := cur
		switch {
		case cur > 1 && mtime%2 != 0:
			next = 1
		case cur > 10 && mtime%20 != 0:
			next = 10
		case cur > 100 && mtime%200 != 0:
			next = 100
		case cur > 1000 && mtime%2000 != 0:
			next = 1000
		}
		if next == cur || r.accuracy.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Accuracy returns the current assumed mtime granularity in milliseconds.
func (r *Reader) Accuracy() int64 {
	return r.accuracy.Load()
}
