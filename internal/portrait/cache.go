package portrait

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"server/internal/domain"
)

// fingerprintSchema invalidates cached entries when the fingerprint layout or
// prompt-building logic changes.
const fingerprintSchema = "portrait-v2"

// DefaultCacheTTL is the fixed expiry window for completed generations.
const DefaultCacheTTL = 24 * time.Hour

// Fingerprint derives the cache key for a request: a SHA-256 over the schema
// tag, the entire image payload, and every semantically relevant option
// field. The whole payload is hashed; a prefix-based scheme collides for
// images sharing a common header.
func Fingerprint(req GenerationRequest) string {
	h := sha256.New()
	fields := []string{
		fingerprintSchema,
		req.Image.Base64,
		req.Image.MimeType,
		req.Options.Pose,
		req.Options.Background,
		req.Options.Clothing,
		req.Options.Lighting,
		req.Options.Style,
		req.Options.BodyType,
		fmt.Sprintf("%.4f", req.Options.Strength),
		req.Options.QualityMode,
	}
	for _, f := range fields {
		io.WriteString(h, f)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type cacheEntry struct {
	result   domain.GenerationResult
	storedAt time.Time
}

// ResultCache memoizes completed generations by fingerprint with a fixed
// time-to-live. Expired entries are evicted lazily on lookup; no size bound
// is enforced since a single deployment instance sees modest volume.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewResultCache builds a cache with the given expiry window. A non-positive
// ttl falls back to DefaultCacheTTL.
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached result for a fingerprint, treating expired entries
// as absent and removing them.
func (c *ResultCache) Get(fingerprint string) (domain.GenerationResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if !ok {
		return domain.GenerationResult{}, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have refreshed it.
		if current, still := c.entries[fingerprint]; still && c.now().Sub(current.storedAt) > c.ttl {
			delete(c.entries, fingerprint)
		}
		c.mu.Unlock()
		return domain.GenerationResult{}, false
	}
	return entry.result, true
}

// Put stores a completed generation under its fingerprint.
func (c *ResultCache) Put(fingerprint string, result domain.GenerationResult) {
	c.mu.Lock()
	c.entries[fingerprint] = cacheEntry{result: result, storedAt: c.now()}
	c.mu.Unlock()
}

// Len reports the number of stored entries, including not-yet-evicted
// expired ones.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
