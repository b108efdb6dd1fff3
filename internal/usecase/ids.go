package usecase

import (
	"crypto/rand"
	"io"
	"sync"

	"github.com/oklog/ulid/v2"
)

// PendingPrefix starts every pending marker identifier.
const PendingPrefix = "pending-"

// PendingIDs allocates pending marker identifiers. IDs are ULIDs from a
// monotonic source, so they are unique per widget and sort by allocation.
type PendingIDs struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewPendingIDs creates an allocator seeded from crypto/rand.
func NewPendingIDs() *PendingIDs {
	return &PendingIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next returns a fresh identifier.
func (g *PendingIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return PendingPrefix + ulid.MustNew(ulid.Now(), g.entropy).String()
}
