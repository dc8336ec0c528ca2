package codec

import (
	"go.trai.ch/fsnap/internal/core/domain"
	"google.golang.org/protobuf/encoding/protowire"
)

// Fields of an encoded timestamp fact. A nil fact has no value at all.
const (
	factSafeTime      protowire.Number = 1
	factTimestamp     protowire.Number = 2
	factTimestampHash protowire.Number = 3
	factHash          protowire.Number = 4
)

func putString(v string) []byte { return []byte(v) }

func getString(b []byte) (string, error) { return string(b), nil }

func putMember(struct{}) []byte { return nil }

func getMember([]byte) (struct{}, error) { return struct{}{}, nil }

func putBool(v bool) []byte {
	return protowire.AppendVarint(nil, protowire.EncodeBool(v))
}

func getBool(b []byte) (bool, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return false, wireError(n)
	}
	return protowire.DecodeBool(v), nil
}

func putTimestamp(ts *domain.TimestampFact) []byte {
	if ts == nil {
		return nil
	}
	return appendFact(make([]byte, 0, 32), ts.SafeTime, ts.Timestamp, ts.TimestampHash, "")
}

func getTimestamp(b []byte) (*domain.TimestampFact, error) {
	var ts domain.TimestampFact
	err := readFact(b, &ts.SafeTime, &ts.Timestamp, &ts.TimestampHash, nil)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func putTsh(tsh *domain.TimestampAndHash) []byte {
	if tsh == nil {
		return nil
	}
	return appendFact(make([]byte, 0, 64), tsh.SafeTime, tsh.Timestamp, tsh.TimestampHash, tsh.Hash)
}

func getTsh(b []byte) (*domain.TimestampAndHash, error) {
	var tsh domain.TimestampAndHash
	err := readFact(b, &tsh.SafeTime, &tsh.Timestamp, &tsh.TimestampHash, &tsh.Hash)
	if err != nil {
		return nil, err
	}
	return &tsh, nil
}

func appendFact(b []byte, safeTime, timestamp int64, timestampHash, hash string) []byte {
	b = protowire.AppendTag(b, factSafeTime, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(safeTime))
	b = protowire.AppendTag(b, factTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(timestamp))
	if timestampHash != "" {
		b = protowire.AppendTag(b, factTimestampHash, protowire.BytesType)
		b = protowire.AppendString(b, timestampHash)
	}
	if hash != "" {
		b = protowire.AppendTag(b, factHash, protowire.BytesType)
		b = protowire.AppendString(b, hash)
	}
	return b
}

// readFact decodes the fields written by appendFact. hash may be nil for plain
// timestamp facts.
func readFact(b []byte, safeTime, timestamp *int64, timestampHash, hash *string) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return wireError(n)
		}
		b = b[n:]

		switch {
		case (num == factSafeTime || num == factTimestamp) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return wireError(n)
			}
			if num == factSafeTime {
				*safeTime = protowire.DecodeZigZag(v)
			} else {
				*timestamp = protowire.DecodeZigZag(v)
			}
			b = b[n:]
		case num == factTimestampHash && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return wireError(n)
			}
			*timestampHash = v
			b = b[n:]
		case num == factHash && typ == protowire.BytesType && hash != nil:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return wireError(n)
			}
			*hash = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return wireError(n)
			}
			b = b[n:]
		}
	}
	return nil
}
