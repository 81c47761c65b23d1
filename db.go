package bibdex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bibdex/bibdex/bptree"
	"github.com/bibdex/bibdex/codec"
	"github.com/bibdex/bibdex/fio"
	"github.com/bibdex/bibdex/invidx"
	"github.com/bibdex/bibdex/model"
	"github.com/bibdex/bibdex/pager"
	"github.com/bibdex/bibdex/topk"
)

// selectLimit caps Select output so a stray listing cannot flood a
// terminal.
const selectLimit = 64

// Match is one query hit: the byte extent of the matched record in the
// source document and the key text that matched. Fuzzy search leaves the
// key empty.
type Match struct {
	Record model.Record
	Key    string
}

// subDatabase is one primary index: a key tree over an index file plus a
// record file holding the extents the keys point at.
type subDatabase struct {
	nextID  int64
	index   *pager.Pager
	records *pager.Pager
	tree    *bptree.Tree[model.Key]
}

// DB is the engine facade. At most one database is open per DB value;
// the open directory is flock-guarded against other processes.
type DB struct {
	opts options

	name   string
	opened bool
	lock   *flock.Flock

	author *subDatabase
	title  *subDatabase
	inv    *invidx.Index
	ranker *topk.Ranker
}

// New builds an engine. No database is open until Create or Open.
func New(opts ...Option) *DB {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &DB{opts: o}
}

// IsOpen reports whether a database is live.
func (db *DB) IsOpen() bool {
	return db.opened
}

// Name returns the open database's name.
func (db *DB) Name() string {
	return db.name
}

// Create makes a fresh database directory and opens it.
func (db *DB) Create(name string) error {
	if db.opened {
		return ErrAnotherDatabaseOpen
	}
	dir := filepath.Join(db.opts.baseDir, name)
	if _, err := os.Stat(dir); err == nil {
		return ErrDatabaseExists
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return db.open(name, true)
}

// Open opens an existing database.
func (db *DB) Open(name string) error {
	if db.opened {
		return ErrAnotherDatabaseOpen
	}
	return db.open(name, false)
}

// Close flushes every pager, releases the file handles and the directory
// lock. The DB value can open another database afterwards.
func (db *DB) Close() error {
	if !db.opened {
		return nil
	}
	var first error
	keep := func(err error) {
		if first == nil && err != nil {
			first = err
		}
	}
	for _, sub := range []*subDatabase{db.author, db.title} {
		keep(sub.index.Sync())
		keep(sub.records.Sync())
		keep(sub.index.Close())
		keep(sub.records.Close())
	}
	keep(db.inv.Sync())
	keep(db.inv.Close())
	keep(db.ranker.Sync())
	keep(db.ranker.Close())
	if db.lock != nil {
		keep(db.lock.Unlock())
	}
	db.opts.logger.Info("database closed", zap.String("name", db.name))
	db.opened = false
	db.author, db.title, db.inv, db.ranker, db.lock = nil, nil, nil, nil, nil
	return first
}

// Insert saves the extent into the field's record file and indexes the
// key text for it.
func (db *DB) Insert(rec model.Record, text string, field model.Field) error {
	if !db.opened {
		return ErrDatabaseNotOpen
	}
	sub, err := db.sub(field)
	if err != nil {
		return err
	}
	buf := make([]byte, codec.RecordSize)
	codec.RecordCodec{}.Marshal(buf, rec)
	if err := sub.records.Save(sub.nextID, buf); err != nil {
		return err
	}
	if err := sub.tree.Insert(model.NewKey(text, sub.nextID)); err != nil {
		return err
	}
	sub.nextID++
	return nil
}

// IndexTokens adds one posting per token against the extent.
func (db *DB) IndexTokens(tokens []string, rec model.Record) error {
	if !db.opened {
		return ErrDatabaseNotOpen
	}
	return db.inv.Build(tokens, rec.Pos, rec.Len)
}

// TallyAuthor bumps the author's occurrence count for top-K ranking.
func (db *DB) TallyAuthor(name string) error {
	if !db.opened {
		return ErrDatabaseNotOpen
	}
	return db.ranker.Insert(name)
}

// Find returns every entry of the field whose key starts with prefix, in
// lexicographic order.
func (db *DB) Find(prefix string, field model.Field) ([]Match, error) {
	if !db.opened {
		return nil, ErrDatabaseNotOpen
	}
	if prefix == "" {
		return nil, ErrEmptyInquiry
	}
	sub, err := db.sub(field)
	if err != nil {
		return nil, err
	}
	// seek with the same truncation the writer applied
	prefix = model.NormalizeKey(prefix)
	it, err := sub.tree.FindGEQ(model.NewKey(prefix, -1))
	if err != nil {
		return nil, err
	}
	rc := codec.RecordCodec{}
	buf := make([]byte, codec.RecordSize)
	var results []Match
	for it.Valid() {
		key := it.Entry()
		if !strings.HasPrefix(key.Text(), prefix) {
			break
		}
		ok, err := sub.records.Recover(key.ID, buf)
		if err != nil {
			return nil, err
		}
		if ok {
			results = append(results, Match{Record: rc.Unmarshal(buf), Key: key.Text()})
		}
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Search intersects the posting sets of the queried words.
func (db *DB) Search(words []string) ([]Match, error) {
	if !db.opened {
		return nil, ErrDatabaseNotOpen
	}
	if len(words) == 0 {
		return nil, ErrEmptyInquiry
	}
	recs, err := db.inv.Find(words)
	if err != nil {
		return nil, err
	}
	results := make([]Match, 0, len(recs))
	for _, r := range recs {
		results = append(results, Match{Record: r})
	}
	return results, nil
}

// MakeTopK builds the retained top-n tally set.
func (db *DB) MakeTopK(n int) error {
	if !db.opened {
		return ErrDatabaseNotOpen
	}
	return db.ranker.MakeTopK(n)
}

// Top returns up to k authors by occurrence count, largest first.
func (db *DB) Top(k int) ([]model.TkRecord, error) {
	if !db.opened {
		return nil, ErrDatabaseNotOpen
	}
	return db.ranker.Top(k), nil
}

// Select lists the field's keys in leaf order, capped at 64 entries.
func (db *DB) Select(field model.Field, w io.Writer) error {
	if !db.opened {
		return ErrDatabaseNotOpen
	}
	sub, err := db.sub(field)
	if err != nil {
		return err
	}
	count := 0
	err = sub.tree.Scan(selectLimit+1, func(k model.Key) bool {
		count++
		if count > selectLimit {
			fmt.Fprintf(w, "...\nThere are more than %d records, please use `find`.\n", selectLimit)
			return false
		}
		fmt.Fprintf(w, "[%d] %s\n", count, k.Text())
		return true
	})
	return err
}

func (db *DB) open(name string, createNew bool) error {
	dir := filepath.Join(db.opts.baseDir, name)
	if !createNew {
		if _, err := os.Stat(dir); err != nil {
			return errors.Wrapf(ErrDatabaseNotExist, "%s_idx_%s.bin", name, model.FieldAuthor)
		}
	}

	lock := fio.NewFlock(dir)
	ok, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDirIsUsing
	}

	fail := func(err error) error {
		db.closePartial()
		_ = lock.Unlock()
		return err
	}

	if db.author, err = openSub(dir, name, model.FieldAuthor, createNew); err != nil {
		return fail(err)
	}
	if db.title, err = openSub(dir, name, model.FieldTitle, createNew); err != nil {
		return fail(err)
	}
	if db.inv, err = invidx.New(dir, name, createNew, db.opts.hashFn); err != nil {
		return fail(err)
	}
	if db.ranker, err = topk.New(dir, name, createNew, db.opts.hashFn); err != nil {
		return fail(err)
	}

	db.lock = lock
	db.name = name
	db.opened = true
	db.opts.logger.Info("database opened",
		zap.String("name", name),
		zap.Bool("create", createNew))
	return nil
}

func (db *DB) closePartial() {
	for _, sub := range []*subDatabase{db.author, db.title} {
		if sub != nil {
			_ = sub.index.Close()
			_ = sub.records.Close()
		}
	}
	if db.inv != nil {
		_ = db.inv.Close()
	}
	if db.ranker != nil {
		_ = db.ranker.Close()
	}
	db.author, db.title, db.inv, db.ranker = nil, nil, nil, nil
}

func (db *DB) sub(field model.Field) (*subDatabase, error) {
	switch field {
	case model.FieldAuthor:
		return db.author, nil
	case model.FieldTitle:
		return db.title, nil
	}
	return nil, ErrUnknownField
}

func openSub(dir, name string, field model.Field, createNew bool) (*subDatabase, error) {
	idxPath := filepath.Join(dir, fmt.Sprintf("%s_idx_%s.bin", name, field))
	recPath := filepath.Join(dir, fmt.Sprintf("%s_rec_%s.bin", name, field))

	idxPager, err := pager.New(idxPath, bptree.NodeSize(codec.KeySize), createNew)
	if err != nil {
		return nil, err
	}
	recPager, err := pager.New(recPath, codec.RecordSize, createNew)
	if err != nil {
		_ = idxPager.Close()
		return nil, err
	}
	tree, err := bptree.New[model.Key](idxPager, codec.KeyCodec{})
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
	return &subDatabase{
		nextID:  nextID,
		index:   idxPager,
		records: recPager,
		tree:    tree,
	}, nil
}
