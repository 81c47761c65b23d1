package model

import "bytes"

// TkRecord is one author tally: an occurrence count plus the NUL-padded
// name. Ordering is by count so records heap directly.
type TkRecord struct {
	Count uint32
	Name  [KeyLen]byte
}

func NewTkRecord(count uint32, name string) TkRecord {
	r := TkRecord{Count: count}
	copy(r.Name[:], NormalizeKey(name))
	return r
}

// NameText returns the name up to the first NUL.
func (r TkRecord) NameText() string {
	if i := bytes.IndexByte(r.Name[:], 0); i >= 0 {
		return string(r.Name[:i])
	}
	return string(r.Name[:])
}

func (r TkRecord) Less(than TkRecord) bool {
	return r.Count < than.Count
}

func (r TkRecord) Equal(than TkRecord) bool {
	return r.Count == than.Count
}
