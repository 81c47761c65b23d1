package fio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileIO_WriteAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	fio, err := NewFileIO(path, true)
	assert.Nil(t, err)
	defer fio.Close()

	n, err := fio.WriteAt([]byte("hello"), 0)
	assert.Nil(t, err)
	assert.Equal(t, 5, n)

	// writing past the end extends the file
	n, err = fio.WriteAt([]byte("x"), 16)
	assert.Nil(t, err)
	assert.Equal(t, 1, n)

	size, err := fio.Size()
	assert.Nil(t, err)
	assert.Equal(t, int64(17), size)
}

func TestFileIO_ReadAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	fio, err := NewFileIO(path, true)
	assert.Nil(t, err)
	defer fio.Close()

	_, err = fio.WriteAt([]byte("hello world"), 0)
	assert.Nil(t, err)

	buf := make([]byte, 5)
	n, err := fio.ReadAt(buf, 6)
	assert.Nil(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))

	// short read at end of file
	_, err = fio.ReadAt(buf, 9)
	assert.Equal(t, io.EOF, err)
}

func TestFileIO_Truncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	fio, err := NewFileIO(path, true)
	assert.Nil(t, err)
	_, err = fio.WriteAt([]byte("hello"), 0)
	assert.Nil(t, err)
	assert.Nil(t, fio.Close())

	// reopen without truncation keeps content
	fio, err = NewFileIO(path, false)
	assert.Nil(t, err)
	size, err := fio.Size()
	assert.Nil(t, err)
	assert.Equal(t, int64(5), size)
	assert.Nil(t, fio.Close())

	// truncation drops it
	fio, err = NewFileIO(path, true)
	assert.Nil(t, err)
	size, err = fio.Size()
	assert.Nil(t, err)
	assert.Equal(t, int64(0), size)
	assert.Nil(t, fio.Close())

	_ = os.Remove(path)
}
