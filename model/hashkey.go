package model

// HashKey indexes a token by its hash. The inverted index and the top-K
// dedupe tree both key on it; the id points into the owning record file.
// Ordering is by hash only.
type HashKey struct {
	Hash uint64
	ID   int64
}

func (k HashKey) Less(than HashKey) bool {
	return k.Hash < than.Hash
}

func (k HashKey) Equal(than HashKey) bool {
	return k.Hash == than.Hash
}
