package benchmark

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bibdex/bibdex"
	"github.com/bibdex/bibdex/model"
)

var db *bibdex.DB

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "bibdex-bench")
	if err != nil {
		panic(err)
	}
	db = bibdex.New(bibdex.WithBaseDir(dir))
	if err := db.Create("bench"); err != nil {
		panic(err)
	}
	code := m.Run()
	_ = db.Close()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// Benchmark_Insert .
func Benchmark_Insert(b *testing.B) {
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		rec := model.Record{Pos: uint32(i), Len: 10}
		err := db.Insert(rec, fmt.Sprintf("author%08d", i), model.FieldAuthor)
		assert.Nil(b, err)
	}
}

// Benchmark_Find .
func Benchmark_Find(b *testing.B) {
	for i := 0; i < 10000; i++ {
		rec := model.Record{Pos: uint32(i), Len: 10}
		err := db.Insert(rec, fmt.Sprintf("title%08d", i), model.FieldTitle)
		assert.Nil(b, err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := db.Find(fmt.Sprintf("title%08d", i%10000), model.FieldTitle)
		if err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark_TallyAuthor .
func Benchmark_TallyAuthor(b *testing.B) {
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		err := db.TallyAuthor(fmt.Sprintf("author%04d", i%500))
		assert.Nil(b, err)
	}
}
