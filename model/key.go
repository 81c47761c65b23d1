package model

import "bytes"

// KeyLen is the fixed on-disk length of a textual key.
const KeyLen = 64

// Key is a primary-index entry: a NUL-padded textual key plus the slot id
// of the record it points at. Ordering looks at the text only, the id is
// satellite data.
type Key struct {
	Raw [KeyLen]byte
	ID  int64
}

// NewKey builds a key from text, truncating with NormalizeKey first.
func NewKey(text string, id int64) Key {
	k := Key{ID: id}
	copy(k.Raw[:], NormalizeKey(text))
	return k
}

// NormalizeKey truncates text to KeyLen bytes, replacing the tail with an
// ellipsis when it does not fit.
func NormalizeKey(text string) string {
	if len(text) > KeyLen {
		return text[:KeyLen-3] + "..."
	}
	return text
}

// Text returns the key text up to the first NUL.
func (k Key) Text() string {
	return string(k.text())
}

func (k Key) text() []byte {
	if i := bytes.IndexByte(k.Raw[:], 0); i >= 0 {
		return k.Raw[:i]
	}
	return k.Raw[:]
}

// Less compares keys as NUL-terminated strings.
func (k Key) Less(than Key) bool {
	return bytes.Compare(k.text(), than.text()) < 0
}

func (k Key) Equal(than Key) bool {
	return bytes.Equal(k.text(), than.text())
}
