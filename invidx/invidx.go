package invidx

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/btree"

	"github.com/bibdex/bibdex/bptree"
	"github.com/bibdex/bibdex/codec"
	"github.com/bibdex/bibdex/model"
	"github.com/bibdex/bibdex/pager"
)

const postingSetDegree = 32

// Index is the fuzzy-search side of the database: one B+ tree mapping
// token hashes to posting slots, one record file holding the extents the
// postings point at. Distinct tokens hashing alike conflate; the caller
// prints the referenced source region, so the reader disambiguates.
type Index struct {
	tree    *bptree.Tree[model.HashKey]
	index   *pager.Pager
	records *pager.Pager
	nextID  int64
	hash    func(string) uint64
}

// New opens the inverted index of database name inside dir.
func New(dir, name string, createNew bool, hash func(string) uint64) (*Index, error) {
	idxPath := filepath.Join(dir, fmt.Sprintf("%s_ii_idx.bin", name))
	recPath := filepath.Join(dir, fmt.Sprintf("%s_ii_rec.bin", name))

	idxPager, err := pager.New(idxPath, bptree.NodeSize(codec.HashKeySize), createNew)
	if err != nil {
		return nil, err
	}
	recPager, err := pager.New(recPath, codec.RecordSize, createNew)
	if err != nil {
		_ = idxPager.Close()
		return nil, err
	}
	tree, err := bptree.New[model.HashKey](idxPager, codec.HashKeyCodec{})
	if err != nil {
		_ = idxPager.Close()
		_ = recPager.Close()
		return nil, err
	}
	nextID, err := recPager.AllocateID()
	if err != nil {
		_ = idxPager.Close()
		_ = recPager.Close()
		return nil, err
	}
	return &Index{
		tree:    tree,
		index:   idxPager,
		records: recPager,
		nextID:  nextID,
		hash:    hash,
	}, nil
}

// Build indexes every token of one field value against the extent.
// One posting slot is written per token occurrence.
func (ix *Index) Build(tokens []string, pos, length uint32) error {
	for _, tok := range tokens {
		if err := ix.insert(tok, pos, length); err != nil {
			return err
		}
	}
	return nil
}

// BuildText splits text on whitespace and indexes the tokens.
func (ix *Index) BuildText(text string, pos, length uint32) error {
	return ix.Build(strings.Fields(text), pos, length)
}

// Find returns the extents containing every queried token, in ascending
// extent order.
func (ix *Index) Find(tokens []string) ([]model.Record, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	result, err := ix.findSingle(tokens[0])
	if err != nil {
		return nil, err
	}
	for _, tok := range tokens[1:] {
		next, err := ix.findSingle(tok)
		if err != nil {
			return nil, err
		}
		result = intersect(result, next)
	}
	out := make([]model.Record, 0, result.Len())
	result.Ascend(func(r model.Record) bool {
		out = append(out, r)
		return true
	})
	return out, nil
}

// Close releases both files.
func (ix *Index) Close() error {
	err := ix.records.Close()
	if err2 := ix.index.Close(); err == nil {
		err = err2
	}
	return err
}

// Sync flushes both files.
func (ix *Index) Sync() error {
	err := ix.records.Sync()
	if err2 := ix.index.Sync(); err == nil {
		err = err2
	}
	return err
}

func (ix *Index) insert(token string, pos, length uint32) error {
	buf := make([]byte, codec.RecordSize)
	codec.RecordCodec{}.Marshal(buf, model.Record{Pos: pos, Len: length})
	if err := ix.records.Save(ix.nextID, buf); err != nil {
		return err
	}
	if err := ix.tree.Insert(model.HashKey{Hash: ix.hash(token), ID: ix.nextID}); err != nil {
		return err
	}
	ix.nextID++
	return nil
}

// findSingle collects the extents of every posting whose hash matches the
// token into an ordered set.
func (ix *Index) findSingle(token string) (*btree.BTreeG[model.Record], error) {
	set := newPostingSet()
	h := ix.hash(token)
	it, err := ix.tree.FindGEQ(model.HashKey{Hash: h, ID: -1})
	if err != nil {
		return nil, err
	}
	rc := codec.RecordCodec{}
	buf := make([]byte, codec.RecordSize)
	for it.Valid() && it.Entry().Hash == h {
		ok, err := ix.records.Recover(it.Entry().ID, buf)
		if err != nil {
			return nil, err
		}
		if ok {
			set.ReplaceOrInsert(rc.Unmarshal(buf))
		}
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func newPostingSet() *btree.BTreeG[model.Record] {
	return btree.NewG[model.Record](postingSetDegree, model.Record.Less)
}

func intersect(a, b *btree.BTreeG[model.Record]) *btree.BTreeG[model.Record] {
	out := newPostingSet()
	a.Ascend(func(r model.Record) bool {
		if b.Has(r) {
			out.ReplaceOrInsert(r)
		}
		return true
	})
	return out
}
