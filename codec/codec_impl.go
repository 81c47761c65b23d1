package codec

import (
	"encoding/binary"

	"github.com/bibdex/bibdex/model"
)

/*
on-disk layouts (little-endian):
	Record:   pos(4) len(4)                  = 8
	Key:      text(64) id(8)                 = 72
	HashKey:  hash(8) id(8)                  = 16
	TkRecord: count(4) name(64)              = 68
*/

const (
	RecordSize   = 8
	KeySize      = model.KeyLen + 8
	HashKeySize  = 16
	TkRecordSize = 4 + model.KeyLen
)

type RecordCodec struct{}

func (RecordCodec) Size() int { return RecordSize }

func (RecordCodec) Marshal(dst []byte, r model.Record) {
	binary.LittleEndian.PutUint32(dst[0:4], r.Pos)
	binary.LittleEndian.PutUint32(dst[4:8], r.Len)
}

func (RecordCodec) Unmarshal(src []byte) model.Record {
	return model.Record{
		Pos: binary.LittleEndian.Uint32(src[0:4]),
		Len: binary.LittleEndian.Uint32(src[4:8]),
	}
}

type KeyCodec struct{}

func (KeyCodec) Size() int { return KeySize }

func (KeyCodec) Marshal(dst []byte, k model.Key) {
	copy(dst[:model.KeyLen], k.Raw[:])
	binary.LittleEndian.PutUint64(dst[model.KeyLen:], uint64(k.ID))
}

func (KeyCodec) Unmarshal(src []byte) model.Key {
	var k model.Key
	copy(k.Raw[:], src[:model.KeyLen])
	k.ID = int64(binary.LittleEndian.Uint64(src[model.KeyLen:]))
	return k
}

type HashKeyCodec struct{}

func (HashKeyCodec) Size() int { return HashKeySize }

func (HashKeyCodec) Marshal(dst []byte, k model.HashKey) {
	binary.LittleEndian.PutUint64(dst[0:8], k.Hash)
	binary.LittleEndian.PutUint64(dst[8:16], uint64(k.ID))
}

func (HashKeyCodec) Unmarshal(src []byte) model.HashKey {
	return model.HashKey{
		Hash: binary.LittleEndian.Uint64(src[0:8]),
		ID:   int64(binary.LittleEndian.Uint64(src[8:16])),
	}
}

type TkRecordCodec struct{}

func (TkRecordCodec) Size() int { return TkRecordSize }

func (TkRecordCodec) Marshal(dst []byte, r model.TkRecord) {
	binary.LittleEndian.PutUint32(dst[0:4], r.Count)
	copy(dst[4:], r.Name[:])
}

func (TkRecordCodec) Unmarshal(src []byte) model.TkRecord {
	var r model.TkRecord
	r.Count = binary.LittleEndian.Uint32(src[0:4])
	copy(r.Name[:], src[4:4+model.KeyLen])
	return r
}
