package codec

// EntryCodec pins the on-disk layout of a fixed-size record type.
// Implementations use little-endian and a fixed field order so files
// written by one build are readable by another.
type EntryCodec[T any] interface {
	// Size is the fixed encoded size in bytes.
	Size() int

	// Marshal writes e into dst, which must hold at least Size bytes.
	Marshal(dst []byte, e T)

	// Unmarshal decodes an entry from src.
	Unmarshal(src []byte) T
}
