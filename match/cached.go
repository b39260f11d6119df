// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package match

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/sbomlens/sbomlens/model"
)

// CacheStats tracks hit/miss counters for a CachedMatcher.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// CachedMatcher memoizes an inner Matcher's MatchDetailed result keyed on an
// order-independent pair of canonical ids, so MatchScore(a, b) and
// MatchScore(b, a) share a cache entry (spec §4.E symmetry invariant). The
// cache is bounded: once it reaches maxEntries, the oldest half (by
// insertion order) is evicted to make room, rather than an LRU scheme.
type CachedMatcher struct {
	inner      Matcher
	maxEntries int

	mu      sync.RWMutex
	entries map[uint64]Result
	order   []uint64
	stats   CacheStats
}

var _ Matcher = (*CachedMatcher)(nil)

// NewCachedMatcher wraps inner with a bounded memoization cache.
func NewCachedMatcher(inner Matcher, maxEntries int) *CachedMatcher {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &CachedMatcher{
		inner:      inner,
		maxEntries: maxEntries,
		entries:    make(map[uint64]Result),
	}
}

// Name implements Matcher.
func (c *CachedMatcher) Name() string { return "Cached(" + c.inner.Name() + ")" }

// Threshold implements Matcher.
func (c *CachedMatcher) Threshold() float64 { return c.inner.Threshold() }

// MatchScore implements Matcher.
func (c *CachedMatcher) MatchScore(a, b *model.Component) float64 {
	return c.MatchDetailed(a, b).Score
}

// MatchDetailed implements Matcher, consulting the cache before delegating
// to the wrapped Matcher.
func (c *CachedMatcher) MatchDetailed(a, b *model.Component) Result {
	key := pairKey(a.CanonicalID, b.CanonicalID)

	c.mu.RLock()
	if r, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		c.mu.Lock()
		c.stats.Hits++
		c.mu.Unlock()
		return r
	}
	c.mu.RUnlock()

	r := c.inner.MatchDetailed(a, b)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		if len(c.order) >= c.maxEntries {
			c.evictHalfLocked()
		}
		c.entries[key] = r
		c.order = append(c.order, key)
	}
	c.stats.Misses++
	return r
}

// evictHalfLocked drops the oldest half of entries by insertion order.
// Caller must hold c.mu.
func (c *CachedMatcher) evictHalfLocked() {
	cut := len(c.order) / 2
	for _, k := range c.order[:cut] {
		delete(c.entries, k)
	}
	c.order = append([]uint64(nil), c.order[cut:]...)
	c.stats.Evictions += uint64(cut)
}

// Stats returns a snapshot of the current hit/miss/eviction counters.
func (c *CachedMatcher) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Clear empties the cache without resetting the hit/miss counters.
func (c *CachedMatcher) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]Result)
	c.order = nil
}

// pairKey hashes two canonical ids into one order-independent key so that
// (a, b) and (b, a) collide on the same cache entry.
func pairKey(a, b model.CanonicalId) uint64 {
	lo, hi := string(a), string(b)
	if lo > hi {
		lo, hi = hi, lo
	}
	h := xxhash.New()
	_, _ = h.WriteString(lo)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(hi)
	return h.Sum64()
}
