package bptree

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/bibdex/bibdex/codec"
	"github.com/bibdex/bibdex/pager"
)

// ErrCorruptedIndex reports a node slot that could not be read back.
var ErrCorruptedIndex = errors.New("bibdex err: corrupted index")

// Entry is the contract a tree entry type satisfies. Equal need not agree
// with Less on satellite fields; ordering follows Less alone.
type Entry[T any] interface {
	Less(than T) bool
	Equal(than T) bool
}

// header lives in slot 0 of the index file: the root page id (always 1)
// and the highest page id allocated so far.
type header struct {
	rootID int64
	count  int64
}

// NodeSize returns the on-disk size of a node whose entries encode to
// entrySize bytes. Index pagers must be sized with it.
func NodeSize(entrySize int) int64 {
	return int64(24 + (Order+1)*entrySize + (Order+2)*8)
}

// Tree is a disk-backed B+ tree over a pager of node-sized slots.
// Payloads live elsewhere; entries carry slot ids pointing at them.
type Tree[T Entry[T]] struct {
	pager *pager.Pager
	codec codec.EntryCodec[T]
	size  int64
	head  header
}

// New builds a tree over p. A fresh pager gets an initial root at page 1
// and a header in slot 0; otherwise the header is loaded from the file.
func New[T Entry[T]](p *pager.Pager, c codec.EntryCodec[T]) (*Tree[T], error) {
	t := &Tree[T]{
		pager: p,
		codec: c,
		size:  NodeSize(c.Size()),
	}
	if p.Empty() {
		t.head = header{rootID: 1}
		root := &node[T]{pageID: t.head.rootID}
		if err := t.writeNode(root); err != nil {
			return nil, err
		}
		t.head.count++
		if err := t.saveHeader(); err != nil {
			return nil, err
		}
		return t, nil
	}
	buf := make([]byte, t.size)
	ok, err := p.Recover(0, buf)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(ErrCorruptedIndex, "missing header")
	}
	t.head.rootID = int64(binary.LittleEndian.Uint64(buf[0:8]))
	t.head.count = int64(binary.LittleEndian.Uint64(buf[8:16]))
	return t, nil
}

// Begin returns an iterator at the leftmost leaf entry.
func (t *Tree[T]) Begin() (*Iterator[T], error) {
	n, err := t.readNode(t.head.rootID)
	if err != nil {
		return nil, err
	}
	for !n.isLeaf() {
		if n, err = t.readNode(n.children[0]); err != nil {
			return nil, err
		}
	}
	return &Iterator[T]{tree: t, node: n}, nil
}

// Find returns an iterator at v, or an invalid iterator when absent.
func (t *Tree[T]) Find(v T) (*Iterator[T], error) {
	it, err := t.FindGEQ(v)
	if err != nil {
		return nil, err
	}
	if it.Valid() && it.Entry().Equal(v) {
		return it, nil
	}
	return t.end(), nil
}

// FindGEQ returns an iterator at the first entry >= v.
func (t *Tree[T]) FindGEQ(v T) (*Iterator[T], error) {
	root, err := t.readNode(t.head.rootID)
	if err != nil {
		return nil, err
	}
	return t.findHelper(v, root)
}

// Insert adds v to the tree. Duplicates are permitted.
func (t *Tree[T]) Insert(v T) error {
	root, err := t.readNode(t.head.rootID)
	if err != nil {
		return err
	}
	st, err := t.insertHelper(root, v)
	if err != nil {
		return err
	}
	if st == stateOverflow {
		return t.splitRoot()
	}
	return nil
}

// Scan walks entries in leaf order, calling fn until it returns false or
// limit entries have been visited. A non-positive limit scans everything.
func (t *Tree[T]) Scan(limit int, fn func(T) bool) error {
	it, err := t.Begin()
	if err != nil {
		return err
	}
	seen := 0
	for it.Valid() {
		if limit > 0 && seen == limit {
			return nil
		}
		if !fn(it.Entry()) {
			return nil
		}
		seen++
		if err := it.Next(); err != nil {
			return err
		}
	}
	return nil
}

type state int

const (
	stateOK state = iota
	stateOverflow
)

func (t *Tree[T]) insertHelper(n *node[T], v T) (state, error) {
	pos := int64(0)
	// advance past equal entries so duplicates keep insertion order and
	// land in the subtree lookups descend into
	for pos < n.count && (n.entries[pos].Less(v) || n.entries[pos].Equal(v)) {
		pos++
	}
	if n.children[pos] != 0 {
		child, err := t.readNode(n.children[pos])
		if err != nil {
			return stateOK, err
		}
		st, err := t.insertHelper(child, v)
		if err != nil {
			return stateOK, err
		}
		if st == stateOverflow {
			if err := t.splitChild(n, pos); err != nil {
				return stateOK, err
			}
		}
	} else {
		n.insertAt(pos, v)
		if err := t.writeNode(n); err != nil {
			return stateOK, err
		}
	}
	if n.isOverflow() {
		return stateOverflow, nil
	}
	return stateOK, nil
}

// splitChild splits the overflowed child at parent.children[pos]. The left
// node reuses the overflowed page; the median entry moves into the parent.
// Leaves keep a copy of the median in the right node and join the leaf
// chain; internal nodes give the median up exclusively.
func (t *Tree[T]) splitChild(parent *node[T], pos int64) error {
	ov, err := t.readNode(parent.children[pos])
	if err != nil {
		return err
	}
	left := &node[T]{pageID: ov.pageID, right: ov.right}
	right, err := t.newNode()
	if err != nil {
		return err
	}
	iter := int64(0)
	copyHalf(left, ov, &iter, true)
	parent.insertAt(pos, ov.entries[iter])
	if ov.isLeaf() {
		right.right = left.right
		left.right = right.pageID
		parent.children[pos+1] = right.pageID
	} else {
		iter++
	}
	copyHalf(right, ov, &iter, false)
	return t.writeTrio(parent, left, right, pos)
}

// splitRoot splits an overflowed root into two fresh children. The root
// page id never changes, so the header keeps pointing at page 1.
func (t *Tree[T]) splitRoot() error {
	ov, err := t.readNode(t.head.rootID)
	if err != nil {
		return err
	}
	left, err := t.newNode()
	if err != nil {
		return err
	}
	right, err := t.newNode()
	if err != nil {
		return err
	}
	iter := int64(0)
	copyHalf(left, ov, &iter, true)
	promoted := ov.entries[iter]
	if ov.isLeaf() {
		left.right = right.pageID
	} else {
		iter++
	}
	copyHalf(right, ov, &iter, false)
	root := &node[T]{pageID: ov.pageID, count: 1}
	root.entries[0] = promoted
	return t.writeTrio(root, left, right, 0)
}

func (t *Tree[T]) findHelper(v T, n *node[T]) (*Iterator[T], error) {
	pos := int64(0)
	if !n.isLeaf() {
		// equal keys route right so duplicates stay reachable
		for pos < n.count && (n.entries[pos].Less(v) || n.entries[pos].Equal(v)) {
			pos++
		}
		child, err := t.readNode(n.children[pos])
		if err != nil {
			return nil, err
		}
		return t.findHelper(v, child)
	}
	for pos < n.count && n.entries[pos].Less(v) {
		pos++
	}
	it := &Iterator[T]{tree: t, node: n, index: pos}
	if pos == n.count {
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return it, nil
}

func (t *Tree[T]) newNode() (*node[T], error) {
	t.head.count++
	n := &node[T]{pageID: t.head.count}
	if err := t.saveHeader(); err != nil {
		return nil, err
	}
	return n, nil
}

// writeTrio rewires parent's child pointers at pos and persists all three.
func (t *Tree[T]) writeTrio(parent, left, right *node[T], pos int64) error {
	parent.children[pos] = left.pageID
	parent.children[pos+1] = right.pageID
	if err := t.writeNode(parent); err != nil {
		return err
	}
	if err := t.writeNode(left); err != nil {
		return err
	}
	return t.writeNode(right)
}

func (t *Tree[T]) readNode(id int64) (*node[T], error) {
	buf := make([]byte, t.size)
	ok, err := t.pager.Recover(id, buf)
	if err != nil {
		return nil, err
	}
	// a page past the last whole node slot was read short
	total, err := t.pager.AllocateID()
	if err != nil {
		return nil, err
	}
	if !ok || id >= total {
		return nil, errors.Wrapf(ErrCorruptedIndex, "page %d", id)
	}
	n := &node[T]{}
	n.pageID = int64(binary.LittleEndian.Uint64(buf[0:8]))
	n.count = int64(binary.LittleEndian.Uint64(buf[8:16]))
	n.right = int64(binary.LittleEndian.Uint64(buf[16:24]))
	off := 24
	es := t.codec.Size()
	for i := 0; i < Order+1; i++ {
		n.entries[i] = t.codec.Unmarshal(buf[off : off+es])
		off += es
	}
	for i := 0; i < Order+2; i++ {
		n.children[i] = int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		off += 8
	}
	return n, nil
}

func (t *Tree[T]) writeNode(n *node[T]) error {
	buf := make([]byte, t.size)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(n.pageID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(n.count))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(n.right))
	off := 24
	es := t.codec.Size()
	for i := 0; i < Order+1; i++ {
		t.codec.Marshal(buf[off:off+es], n.entries[i])
		off += es
	}
	for i := 0; i < Order+2; i++ {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(n.children[i]))
		off += 8
	}
	return t.pager.Save(n.pageID, buf)
}

func (t *Tree[T]) saveHeader() error {
	buf := make([]byte, t.size)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(t.head.rootID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(t.head.count))
	return t.pager.Save(0, buf)
}

func (t *Tree[T]) end() *Iterator[T] {
	return &Iterator[T]{tree: t, node: &node[T]{pageID: -1}}
}
