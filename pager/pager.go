package pager

import (
	"os"

	"github.com/pkg/errors"

	"github.com/bibdex/bibdex/fio"
)

var (
	// ErrDatabaseNotExist reports a missing database file opened without create.
	ErrDatabaseNotExist = errors.New("bibdex err: database does not exist")
	// ErrDatabaseOpeningError reports a database file that is present but unreadable.
	ErrDatabaseOpeningError = errors.New("bibdex err: database file opening error")
	// ErrShortWrite reports a record write that did not cover the full record.
	ErrShortWrite = errors.New("bibdex err: short record write")
)

// tombstone marks an erased slot.
const tombstone = 'X'

// Pager maps fixed-size records to slots of a single file.
// Slot n lives at byte offset n*recordSize.
type Pager struct {
	io         fio.IOManager
	recordSize int64
	empty      bool
}

// New opens the record file at path. When createNew is false the file must
// already exist; when true it is truncated and Empty reports true.
func New(path string, recordSize int64, createNew bool) (*Pager, error) {
	if !createNew {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, errors.Wrap(ErrDatabaseNotExist, path)
		}
	}
	f, err := fio.NewFileIO(path, createNew)
	if err != nil {
		return nil, errors.Wrap(ErrDatabaseOpeningError, path)
	}
	return &Pager{
		io:         f,
		recordSize: recordSize,
		empty:      createNew,
	}, nil
}

// Empty reports whether the pager was created on a fresh file.
func (p *Pager) Empty() bool {
	return p.empty
}

// RecordSize returns the fixed record size in bytes.
func (p *Pager) RecordSize() int64 {
	return p.recordSize
}

// AllocateID returns the slot index just past the current end of file.
func (p *Pager) AllocateID() (int64, error) {
	size, err := p.io.Size()
	if err != nil {
		return 0, err
	}
	return size / p.recordSize, nil
}

// Save writes one record at the given slot, extending the file when the
// slot is past the end.
func (p *Pager) Save(slot int64, data []byte) error {
	n, err := p.io.WriteAt(data, slot*p.recordSize)
	if err != nil {
		return err
	}
	if n != len(data) {
		return ErrShortWrite
	}
	return nil
}

// Recover reads one record at the given slot into buf. It returns false
// when no bytes could be read.
func (p *Pager) Recover(slot int64, buf []byte) (bool, error) {
	n, _ := p.io.ReadAt(buf, slot*p.recordSize)
	return n > 0, nil
}

// Erase stamps a tombstone byte at the slot. The byte is a primitive only:
// nothing above the pager reads it back.
func (p *Pager) Erase(slot int64) error {
	_, err := p.io.WriteAt([]byte{tombstone}, slot*p.recordSize)
	return err
}

// Sync flushes buffered writes to the OS.
func (p *Pager) Sync() error {
	return p.io.Sync()
}

// Close releases the underlying file handle.
func (p *Pager) Close() error {
	return p.io.Close()
}
