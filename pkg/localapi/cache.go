package localapi

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// responseCache is a small TTL cache for GET list responses, keyed by
// request path. It keeps list views snappy between navigations without
// a second round trip.
type responseCache struct {
	cache *lru.LRU[string, []byte]
}

func newResponseCache(maxEntries int, ttl time.Duration) *responseCache {
	if maxEntries < 1 {
		maxEntries = 32
	}
	return &responseCache{
		cache: lru.NewLRU[string, []byte](maxEntries, nil, ttl),
	}
}

func (rc *responseCache) get(path string) ([]byte, bool) {
	return rc.cache.Get(path)
}

func (rc *responseCache) add(path string, body []byte) {
	rc.cache.Add(path, body)
}

func (rc *responseCache) remove(path string) {
	rc.cache.Remove(path)
}
