package utils

import "github.com/cespare/xxhash/v2"

// TokenHash is the default hash for tokens and author names. xxhash is
// stable across platforms and builds, so index files stay portable.
func TokenHash(s string) uint64 {
	return xxhash.Sum64String(s)
}
