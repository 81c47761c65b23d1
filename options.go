package bibdex

import (
	"go.uber.org/zap"

	"github.com/bibdex/bibdex/utils"
)

type options struct {
	baseDir string
	logger  *zap.Logger
	hashFn  func(string) uint64
}

type Option func(*options)

// WithBaseDir sets the directory databases live under. Default "database".
func WithBaseDir(dir string) Option {
	return func(o *options) {
		o.baseDir = dir
	}
}

// WithLogger sets the engine logger. Default is a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHashFn overrides the token hash. It only needs to be deterministic
// within one database lifetime.
func WithHashFn(fn func(string) uint64) Option {
	return func(o *options) {
		o.hashFn = fn
	}
}

func defaultOptions() options {
	return options{
		baseDir: "database",
		logger:  zap.NewNop(),
		hashFn:  utils.TokenHash,
	}
}
