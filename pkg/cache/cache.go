// Package cache defines the response cache contract and key derivation.
//
// The cache is best-effort: a miss is a normal, silent outcome and a
// write failure must never fail the overall request. Backends live in
// the memory and rediscache subpackages.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/chatcore-ai/chatcore/pkg/models"
)

// Cache is a key/value store for chat results with TTL expiry.
type Cache interface {
	// Startup prepares the backend. For the networked backend this is
	// where the fallback decision is made, once for the process lifetime.
	Startup(ctx context.Context) error
	// Shutdown releases backend resources.
	Shutdown(ctx context.Context) error
	// Get returns the entry for key. A miss, an expired entry, and a
	// backend failure all report ok=false; none of them is an error the
	// caller has to handle.
	Get(ctx context.Context, key string) (*models.CacheEntry, bool)
	// Set stores entry under key for ttl. Failures are returned so the
	// caller can log them, but callers treat Set as fire-and-forget.
	Set(ctx context.Context, key string, entry *models.CacheEntry, ttl time.Duration) error
}

// keyVersion namespaces the hashing scheme. Bumping it on a scheme
// change guarantees new keys cannot collide with entries written under
// the previous scheme.
const keyVersion = "chat:v2:"

// Key derives the deterministic cache key for a (user, content) pair.
// The NUL separator keeps ("ab","c") and ("a","bc") from colliding.
func Key(userID, content string) string {
	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return keyVersion + hex.EncodeToString(h.Sum(nil)[:16])
}
