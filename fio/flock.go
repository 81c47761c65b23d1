package fio

import (
	"path/filepath"

	"github.com/gofrs/flock"
)

const flockName = "flock"

// NewFlock guards a database directory against concurrent opens.
func NewFlock(dirPath string) *flock.Flock {
	return flock.New(filepath.Join(dirPath, flockName))
}
