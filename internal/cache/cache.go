// Package cache stores the results of rewriting module files so that an
// unchanged file is not parsed again.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/dekarrin/pastprint/internal/pygrammar"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrNotFound            = errors.New("the requested entry was not found")
	ErrConstraintViolation = errors.New("a uniqueness constraint was violated")
)

// Entry is one cached rewrite.
type Entry struct {
	ID uuid.UUID

	// Path is the file the source was read from.
	Path string

	// Digest identifies the source, the grammar, and the policy that
	// produced Result. See Digest.
	Digest string

	Result  string
	Created time.Time
}

// Store holds cached rewrites. There is at most one entry per path; putting
// a new entry for a path replaces the old one.
type Store interface {
	// Get returns the entry for path if its digest is digest. A missing entry
	// and one with a different digest both give ErrNotFound.
	Get(ctx context.Context, path, digest string) (Entry, error)

	// Put stores e, assigning it a new ID and creation time, and returns the
	// stored entry.
	Put(ctx context.Context, e Entry) (Entry, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error

	Close() error
}

// Digest returns the hex-encoded BLAKE2b-256 sum of the policy name, the
// grammar in use, and the source. Changing any of them gives a new digest.
func Digest(policy string, src []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(policy))
	h.Write([]byte{0})
	h.Write([]byte(pygrammar.Text))
	h.Write([]byte{0})
	h.Write(src)
	return hex.EncodeToString(h.Sum(nil))
}
