package topk

import (
	"container/heap"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bibdex/bibdex/bptree"
	"github.com/bibdex/bibdex/codec"
	"github.com/bibdex/bibdex/model"
	"github.com/bibdex/bibdex/pager"
)

// Ranker tallies author occurrences and answers top-K queries. A dedupe
// B+ tree keyed by name hash locates each author's tally slot; MakeTopK
// streams the whole tally file through a bounded min-heap.
type Ranker struct {
	tree    *bptree.Tree[model.HashKey]
	index   *pager.Pager
	records *pager.Pager
	nextID  int64
	hash    func(string) uint64
	kept    []model.TkRecord
}

// New opens the top-K files of database name inside dir.
func New(dir, name string, createNew bool, hash func(string) uint64) (*Ranker, error) {
	idxPath := filepath.Join(dir, fmt.Sprintf("%s_topk_idx.bin", name))
	recPath := filepath.Join(dir, fmt.Sprintf("%s_topk_rec.bin", name))

	idxPager, err := pager.New(idxPath, bptree.NodeSize(codec.HashKeySize), createNew)
	if err != nil {
		return nil, err
	}
	recPager, err := pager.New(recPath, codec.TkRecordSize, createNew)
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
	return &Ranker{
		tree:    tree,
		index:   idxPager,
		records: recPager,
		nextID:  nextID,
		hash:    hash,
	}, nil
}

// Insert bumps the tally for name, creating it on first sight. A hash hit
// against a different stored name is a collision; the new name gets its
// own slot, and lookups keep landing on whichever entry came first.
func (r *Ranker) Insert(name string) error {
	h := r.hash(name)
	it, err := r.tree.Find(model.HashKey{Hash: h, ID: -1})
	if err != nil {
		return err
	}
	if !it.Valid() {
		return r.appendNew(h, name)
	}
	slot := it.Entry().ID
	buf := make([]byte, codec.TkRecordSize)
	ok, err := r.records.Recover(slot, buf)
	if err != nil {
		return err
	}
	tc := codec.TkRecordCodec{}
	if !ok {
		return r.appendNew(h, name)
	}
	rec := tc.Unmarshal(buf)
	if rec.NameText() != model.NormalizeKey(name) {
		return r.appendNew(h, name)
	}
	rec.Count++
	tc.Marshal(buf, rec)
	return r.records.Save(slot, buf)
}

// MakeTopK streams every tally through a min-heap of size n and retains
// the n largest counts.
func (r *Ranker) MakeTopK(n int) error {
	total, err := r.records.AllocateID()
	if err != nil {
		return err
	}
	h := make(minHeap, 0, n+1)
	tc := codec.TkRecordCodec{}
	buf := make([]byte, codec.TkRecordSize)
	for slot := int64(0); slot < total; slot++ {
		ok, err := r.records.Recover(slot, buf)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		heap.Push(&h, tc.Unmarshal(buf))
		for len(h) > n {
			heap.Pop(&h)
		}
	}
	r.kept = []model.TkRecord(h)
	return nil
}

// Top returns up to k retained tallies, largest count first. Call MakeTopK
// before asking.
func (r *Ranker) Top(k int) []model.TkRecord {
	out := make([]model.TkRecord, len(r.kept))
	copy(out, r.kept)
	sort.Slice(out, func(i, j int) bool { return out[j].Less(out[i]) })
	if k < len(out) {
		out = out[:k]
	}
	return out
}

// Close releases both files.
func (r *Ranker) Close() error {
	err := r.records.Close()
	if err2 := r.index.Close(); err == nil {
		err = err2
	}
	return err
}

// Sync flushes both files.
func (r *Ranker) Sync() error {
	err := r.records.Sync()
	if err2 := r.index.Sync(); err == nil {
		err = err2
	}
	return err
}

func (r *Ranker) appendNew(h uint64, name string) error {
	buf := make([]byte, codec.TkRecordSize)
	codec.TkRecordCodec{}.Marshal(buf, model.NewTkRecord(1, name))
	if err := r.records.Save(r.nextID, buf); err != nil {
		return err
	}
	if err := r.tree.Insert(model.HashKey{Hash: h, ID: r.nextID}); err != nil {
		return err
	}
	r.nextID++
	return nil
}

type minHeap []model.TkRecord

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].Less(h[j]) }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(model.TkRecord)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
