// Package codec persists snapshot forests in a compact binary form.
//
// An encoded snapshot starts with the magic "FSNP" and a version byte, followed by
// a zstd frame. The frame holds protobuf wire format fields: every node of the
// forest (field 1, children before their parents, shared children once) and the
// index of the root node (field 2).
package codec

import (
	"bytes"
	"errors"
	"maps"
	"slices"

	"github.com/klauspost/compress/zstd"
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/zerr"
	"google.golang.org/protobuf/encoding/protowire"
)

var _ ports.SnapshotCodec = (*Codec)(nil)

// Version is the format version written by Encode.
const Version byte = 1

var magic = []byte("FSNP")

const (
	forestNode protowire.Number = 1
	forestRoot protowire.Number = 2
)

const (
	nodeFlags     protowire.Number = 1
	nodeStartTime protowire.Number = 2
	nodeChild     protowire.Number = 14
)

const (
	entryPath  protowire.Number = 1
	entryValue protowire.Number = 2
)

// Codec encodes and decodes snapshots. It is safe for concurrent use.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New creates a Codec.
func New() (*Codec, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrCodecCompress.Error())
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrCodecCompress.Error())
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Encode serializes s and all of its descendants.
func (c *Codec) Encode(s *domain.Snapshot) ([]byte, error) {
	w := &forestWriter{index: make(map[*domain.Snapshot]uint64)}
	root := w.write(s)

	payload := w.buf
	payload = protowire.AppendTag(payload, forestRoot, protowire.VarintType)
	payload = protowire.AppendVarint(payload, root)

	out := make([]byte, 0, len(magic)+1+len(payload)/2)
	out = append(out, magic...)
	out = append(out, Version)
	return c.enc.EncodeAll(payload, out), nil
}

// Decode rebuilds a snapshot forest from data produced by Encode.
func (c *Codec) Decode(data []byte) (*domain.Snapshot, error) {
	if len(data) < len(magic)+1 {
		return nil, malformed("data too short")
	}
	if !bytes.Equal(data[:len(magic)], magic) {
		return nil, errors.Join(domain.ErrCodecUnsupported, zerr.With(zerr.New("bad magic"), "magic", string(data[:len(magic)])))
	}
	if v := data[len(magic)]; v != Version {
		return nil, errors.Join(domain.ErrCodecUnsupported, zerr.With(zerr.New("unknown version"), "version", v))
	}

	payload, err := c.dec.DecodeAll(data[len(magic)+1:], nil)
	if err != nil {
		return nil, errors.Join(domain.ErrCodecCompress, err)
	}
	return readForest(payload)
}

type forestWriter struct {
	buf   []byte
	index map[*domain.Snapshot]uint64
	next  uint64
}

// write appends n after its children and returns its index.
func (w *forestWriter) write(n *domain.Snapshot) uint64 {
	if i, ok := w.index[n]; ok {
		return i
	}

	children := n.Children()
	childIndices := make([]uint64, len(children))
	for i, child := range children {
		childIndices[i] = w.write(child)
	}

	var b []byte
	b = protowire.AppendTag(b, nodeFlags, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(n.Flags()))
	if start, ok := n.StartTime(); ok {
		b = protowire.AppendTag(b, nodeStartTime, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(start))
	}
	for _, cat := range categories {
		b = cat.appendTo(b, n)
	}
	for _, ci := range childIndices {
		b = protowire.AppendTag(b, nodeChild, protowire.VarintType)
		b = protowire.AppendVarint(b, ci)
	}

	w.buf = protowire.AppendTag(w.buf, forestNode, protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, b)

	i := w.next
	w.next++
	w.index[n] = i
	return i
}

func readForest(b []byte) (*domain.Snapshot, error) {
	var (
		nodes   []*domain.Snapshot
		root    uint64
		hasRoot bool
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireError(n)
		}
		b = b[n:]

		switch {
		case num == forestNode && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireError(n)
			}
			node, err := readNode(v, nodes)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
			b = b[n:]
		case num == forestRoot && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireError(n)
			}
			root, hasRoot = v, true
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireError(n)
			}
			b = b[n:]
		}
	}

	if !hasRoot || root >= uint64(len(nodes)) {
		return nil, malformed("missing root node")
	}
	return nodes[root], nil
}

// readNode decodes one node. Children must already be decoded.
func readNode(b []byte, decoded []*domain.Snapshot) (*domain.Snapshot, error) {
	s := domain.NewSnapshot()
	var flags domain.Flags
	var children []uint64
	decoders := make(map[protowire.Number]entryDecoder, len(categories))

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireError(n)
		}
		b = b[n:]

		switch {
		case num == nodeFlags && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireError(n)
			}
			flags = domain.Flags(v)
			b = b[n:]
		case num == nodeStartTime && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireError(n)
			}
			s.SetStartTime(protowire.DecodeZigZag(v))
			b = b[n:]
		case num == nodeChild && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, wireError(n)
			}
			children = append(children, v)
			b = b[n:]
		case typ == protowire.BytesType && byNumber[num] != nil:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, wireError(n)
			}
			d, ok := decoders[num]
			if !ok {
				d = byNumber[num].decoder()
				decoders[num] = d
			}
			if err := d.add(v); err != nil {
				return nil, err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireError(n)
			}
			b = b[n:]
		}
	}

	for _, cat := range categories {
		d, ok := decoders[cat.number()]
		if flags&cat.flag() == 0 {
			if ok {
				return nil, malformed("entries for a category that is not present")
			}
			continue
		}
		if !ok {
			d = cat.decoder()
		}
		d.install(s)
	}

	for _, ci := range children {
		if ci >= uint64(len(decoded)) {
			return nil, malformed("child index out of range")
		}
		s.AddChild(decoded[ci])
	}
	return s, nil
}

// category encodes the entries of one snapshot category.
type category interface {
	number() protowire.Number
	flag() domain.Flags
	appendTo(b []byte, s *domain.Snapshot) []byte
	decoder() entryDecoder
}

type entryDecoder interface {
	add(entry []byte) error
	install(s *domain.Snapshot)
}

// fieldCodec is the category encoding shared by every Field. Each entry is a
// message holding the path and, unless put returns nil, the encoded value.
type fieldCodec[V any] struct {
	num   protowire.Number
	field domain.Field[V]
	put   func(v V) []byte
	get   func(b []byte) (V, error)
}

func (f fieldCodec[V]) number() protowire.Number { return f.num }

func (f fieldCodec[V]) flag() domain.Flags { return f.field.Flag() }

func (f fieldCodec[V]) appendTo(b []byte, s *domain.Snapshot) []byte {
	m := f.field.Get(s)
	for _, path := range slices.Sorted(maps.Keys(m)) {
		var e []byte
		e = protowire.AppendTag(e, entryPath, protowire.BytesType)
		e = protowire.AppendString(e, path)
		if v := f.put(m[path]); v != nil {
			e = protowire.AppendTag(e, entryValue, protowire.BytesType)
			e = protowire.AppendBytes(e, v)
		}
		b = protowire.AppendTag(b, f.num, protowire.BytesType)
		b = protowire.AppendBytes(b, e)
	}
	return b
}

func (f fieldCodec[V]) decoder() entryDecoder {
	return &fieldDecoder[V]{codec: f, entries: make(map[string]V)}
}

type fieldDecoder[V any] struct {
	codec   fieldCodec[V]
	entries map[string]V
}

func (d *fieldDecoder[V]) add(entry []byte) error {
	var (
		path    string
		hasPath bool
		value   V
	)
	for len(entry) > 0 {
		num, typ, n := protowire.ConsumeTag(entry)
		if n < 0 {
			return wireError(n)
		}
		entry = entry[n:]

		if typ != protowire.BytesType || (num != entryPath && num != entryValue) {
			n := protowire.ConsumeFieldValue(num, typ, entry)
			if n < 0 {
				return wireError(n)
			}
			entry = entry[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(entry)
		if n < 0 {
			return wireError(n)
		}
		entry = entry[n:]

		if num == entryPath {
			path, hasPath = string(v), true
			continue
		}
		var err error
		if value, err = d.codec.get(v); err != nil {
			return err
		}
	}

	if !hasPath {
		return malformed("entry without a path")
	}
	d.entries[path] = value
	return nil
}

func (d *fieldDecoder[V]) install(s *domain.Snapshot) {
	d.codec.field.Set(s, d.entries)
}

// categories lists every snapshot category in presence mask order.
var categories = []category{
	fieldCodec[*domain.TimestampFact]{3, domain.FileTimestamps, putTimestamp, getTimestamp},
	fieldCodec[string]{4, domain.FileHashes, putString, getString},
	fieldCodec[*domain.TimestampAndHash]{5, domain.FileTshs, putTsh, getTsh},
	fieldCodec[*domain.TimestampFact]{6, domain.ContextTimestamps, putTimestamp, getTimestamp},
	fieldCodec[string]{7, domain.ContextHashes, putString, getString},
	fieldCodec[*domain.TimestampAndHash]{8, domain.ContextTshs, putTsh, getTsh},
	fieldCodec[bool]{9, domain.MissingExistence, putBool, getBool},
	fieldCodec[string]{10, domain.ManagedItemInfo, putString, getString},
	fieldCodec[struct{}]{11, domain.ManagedFiles, putMember, getMember},
	fieldCodec[struct{}]{12, domain.ManagedContexts, putMember, getMember},
	fieldCodec[struct{}]{13, domain.ManagedMissing, putMember, getMember},
}

var byNumber = func() map[protowire.Number]category {
	m := make(map[protowire.Number]category, len(categories))
	for _, c := range categories {
		m[c.number()] = c
	}
	return m
}()

func malformed(reason string) error {
	return errors.Join(domain.ErrCodecMalformed, zerr.New(reason))
}

func wireError(n int) error {
	return errors.Join(domain.ErrCodecMalformed, protowire.ParseError(n))
}
