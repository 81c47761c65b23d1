package bibdex

import (
	"fmt"

	"github.com/bibdex/bibdex/bptree"
	"github.com/bibdex/bibdex/pager"
)

var (
	// ErrDatabaseNotExist and ErrDatabaseOpeningError surface from the
	// pagers wrapped with the offending file name.
	ErrDatabaseNotExist     = pager.ErrDatabaseNotExist
	ErrDatabaseOpeningError = pager.ErrDatabaseOpeningError
	ErrCorruptedIndex       = bptree.ErrCorruptedIndex

	ErrDatabaseNotOpen     = addPrefix("no open database")
	ErrDatabaseExists      = addPrefix("database already exists")
	ErrAnotherDatabaseOpen = addPrefix("another database is open")
	ErrEmptyInquiry        = addPrefix("inquiry should not be empty")
	ErrDirIsUsing          = addPrefix("database directory is locked")
	ErrUnknownField        = addPrefix("unknown field")
)

func addPrefix(errStr string) error {
	return fmt.Errorf("bibdex err: %s", errStr)
}

// ArgumentCountError reports a command given the wrong number of
// arguments, together with its usage line.
type ArgumentCountError struct {
	Expected int
	Got      int
	Usage    string
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("bibdex err: expected %d argument(s), but got %d", e.Expected, e.Got)
}
