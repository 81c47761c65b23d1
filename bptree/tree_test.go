package bptree

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bibdex/bibdex/codec"
	"github.com/bibdex/bibdex/model"
	"github.com/bibdex/bibdex/pager"
)

func newTestTree(t *testing.T, dir string, createNew bool) (*Tree[model.Key], *pager.Pager) {
	t.Helper()
	p, err := pager.New(filepath.Join(dir, "idx.bin"), NodeSize(codec.KeySize), createNew)
	assert.Nil(t, err)
	tr, err := New[model.Key](p, codec.KeyCodec{})
	assert.Nil(t, err)
	return tr, p
}

// validate walks the whole tree checking occupancy bounds, key
// partitioning, and that internal nodes stay off the leaf chain.
func validate(t *testing.T, tr *Tree[model.Key]) {
	t.Helper()
	var walk func(id int64, root bool)
	walk = func(id int64, root bool) {
		n, err := tr.readNode(id)
		assert.Nil(t, err)
		if !root {
			assert.GreaterOrEqual(t, n.count, int64(leftHalf), "page %d under-filled", id)
		}
		assert.LessOrEqual(t, n.count, int64(Order), "page %d over-filled", id)
		if n.isLeaf() {
			return
		}
		assert.Equal(t, int64(0), n.right, "internal page %d on leaf chain", id)
		for i := int64(0); i <= n.count; i++ {
			child, err := tr.readNode(n.children[i])
			assert.Nil(t, err)
			for j := int64(0); j < child.count; j++ {
				if i < n.count {
					assert.True(t, child.entries[j].Less(n.entries[i]),
						"page %d child %d not below separator", id, i)
				}
				if i == n.count {
					assert.False(t, child.entries[j].Less(n.entries[n.count-1]),
						"page %d last child below separator", id)
				}
			}
			walk(n.children[i], false)
		}
	}
	walk(tr.head.rootID, true)
}

func collect(t *testing.T, tr *Tree[model.Key]) []string {
	t.Helper()
	var keys []string
	err := tr.Scan(0, func(k model.Key) bool {
		keys = append(keys, k.Text())
		return true
	})
	assert.Nil(t, err)
	return keys
}

func TestTree_Empty(t *testing.T) {
	tr, p := newTestTree(t, t.TempDir(), true)
	defer p.Close()

	it, err := tr.Begin()
	assert.Nil(t, err)
	assert.False(t, it.Valid())

	it, err = tr.Find(model.NewKey("anything", -1))
	assert.Nil(t, err)
	assert.False(t, it.Valid())
}

func TestTree_InsertFind(t *testing.T) {
	tr, p := newTestTree(t, t.TempDir(), true)
	defer p.Close()

	words := []string{"delta", "alpha", "echo", "bravo", "charlie"}
	for i, w := range words {
		assert.Nil(t, tr.Insert(model.NewKey(w, int64(i))))
	}

	for i, w := range words {
		it, err := tr.Find(model.NewKey(w, -1))
		assert.Nil(t, err)
		assert.True(t, it.Valid())
		assert.Equal(t, w, it.Entry().Text())
		assert.Equal(t, int64(i), it.Entry().ID)
	}

	it, err := tr.Find(model.NewKey("foxtrot", -1))
	assert.Nil(t, err)
	assert.False(t, it.Valid())

	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta", "echo"}, collect(t, tr))
}

func TestTree_Duplicates(t *testing.T) {
	tr, p := newTestTree(t, t.TempDir(), true)
	defer p.Close()

	for i := 0; i < 5; i++ {
		assert.Nil(t, tr.Insert(model.NewKey("same", int64(i))))
	}
	assert.Nil(t, tr.Insert(model.NewKey("other", 99)))

	var ids []int64
	err := tr.Scan(0, func(k model.Key) bool {
		if k.Text() == "same" {
			ids = append(ids, k.ID)
		}
		return true
	})
	assert.Nil(t, err)
	// duplicates keep insertion order
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, ids)
}

func TestTree_ManyKeysOrdered(t *testing.T) {
	tr, p := newTestTree(t, t.TempDir(), true)
	defer p.Close()

	for i := 0; i < 500; i++ {
		assert.Nil(t, tr.Insert(model.NewKey(fmt.Sprintf("key%03d", i), int64(i))))
	}
	validate(t, tr)

	keys := collect(t, tr)
	assert.Equal(t, 500, len(keys))
	for i, k := range keys {
		assert.Equal(t, fmt.Sprintf("key%03d", i), k)
	}

	// lower bound at the midpoint walks the upper half in order
	it, err := tr.FindGEQ(model.NewKey("key250", -1))
	assert.Nil(t, err)
	for i := 250; i < 500; i++ {
		assert.True(t, it.Valid())
		assert.Equal(t, fmt.Sprintf("key%03d", i), it.Entry().Text())
		assert.Nil(t, it.Next())
	}
	assert.False(t, it.Valid())
}

func TestTree_RandomOrder(t *testing.T) {
	tr, p := newTestTree(t, t.TempDir(), true)
	defer p.Close()

	rng := rand.New(rand.NewSource(1))
	perm := rng.Perm(1000)
	for _, i := range perm {
		assert.Nil(t, tr.Insert(model.NewKey(fmt.Sprintf("k%04d", i), int64(i))))
	}
	validate(t, tr)

	keys := collect(t, tr)
	assert.Equal(t, 1000, len(keys))
	for i := 1; i < len(keys); i++ {
		assert.LessOrEqual(t, keys[i-1], keys[i])
	}

	it, err := tr.Find(model.NewKey("k0777", -1))
	assert.Nil(t, err)
	assert.True(t, it.Valid())
	assert.Equal(t, int64(777), it.Entry().ID)
}

func TestTree_FindGEQBoundary(t *testing.T) {
	tr, p := newTestTree(t, t.TempDir(), true)
	defer p.Close()

	// sparse keys so lower bounds land between entries and past the end
	for i := 0; i < 200; i += 2 {
		assert.Nil(t, tr.Insert(model.NewKey(fmt.Sprintf("k%03d", i), int64(i))))
	}

	it, err := tr.FindGEQ(model.NewKey("k101", -1))
	assert.Nil(t, err)
	assert.True(t, it.Valid())
	assert.Equal(t, "k102", it.Entry().Text())

	it, err = tr.FindGEQ(model.NewKey("k199", -1))
	assert.Nil(t, err)
	assert.False(t, it.Valid())
}

func TestTree_Reopen(t *testing.T) {
	dir := t.TempDir()
	tr, p := newTestTree(t, dir, true)
	for i := 0; i < 300; i++ {
		assert.Nil(t, tr.Insert(model.NewKey(fmt.Sprintf("key%03d", i), int64(i))))
	}
	assert.Nil(t, p.Close())

	tr, p = newTestTree(t, dir, false)
	defer p.Close()
	validate(t, tr)

	keys := collect(t, tr)
	assert.Equal(t, 300, len(keys))

	it, err := tr.Find(model.NewKey("key123", -1))
	assert.Nil(t, err)
	assert.True(t, it.Valid())
	assert.Equal(t, int64(123), it.Entry().ID)
}

func BenchmarkTree_Insert(b *testing.B) {
	p, err := pager.New(filepath.Join(b.TempDir(), "idx.bin"), NodeSize(codec.KeySize), true)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()
	tr, err := New[model.Key](p, codec.KeyCodec{})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := tr.Insert(model.NewKey(fmt.Sprintf("key%08d", i), int64(i))); err != nil {
			b.Fatal(err)
		}
	}
}
