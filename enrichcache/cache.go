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

// Package enrichcache implements the file-backed, content-addressed cache
// every enricher in the enrich package shares (spec §4.G): one JSON file
// per key, named by the SHA-256 hex digest of the key's normalized tuple,
// expired by mtime against a configured TTL.
package enrichcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Key identifies one cacheable enrichment lookup. Two keys with the same
// normalized tuple hash to the same file regardless of field order.
type Key struct {
	Purl      string
	Name      string
	Ecosystem string
	Version   string
}

// filename renders the key as a SHA-256 hex digest with a .json suffix,
// following the original's "purl:{:?}|name:{}|eco:{:?}|ver:{:?}" Debug
// tuple serialization so cache layouts built by either implementation
// address the same entries identically.
func (k Key) filename() string {
	purl := "None"
	if k.Purl != "" {
		purl = fmt.Sprintf("Some(%q)", k.Purl)
	}
	eco := "None"
	if k.Ecosystem != "" {
		eco = fmt.Sprintf("Some(%q)", k.Ecosystem)
	}
	ver := "None"
	if k.Version != "" {
		ver = fmt.Sprintf("Some(%q)", k.Version)
	}
	raw := fmt.Sprintf("purl:%s|name:%s|eco:%s|ver:%s", purl, k.Name, eco, ver)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:]) + ".json"
}

// IsQueryable reports whether the key carries enough information to issue
// an upstream lookup: a PURL, or an ecosystem and version alongside the
// name.
func (k Key) IsQueryable() bool {
	return k.Purl != "" || (k.Ecosystem != "" && k.Version != "")
}

// Stats summarizes the on-disk cache contents at a point in time.
type Stats struct {
	TotalEntries   int
	ExpiredEntries int
	TotalSizeBytes int64
}

// Cache is a directory of content-addressed, TTL-expiring JSON files.
type Cache struct {
	dir string
	ttl time.Duration
}

// New creates (if needed) dir and returns a Cache rooted there with the
// given TTL.
func New(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("enrichcache: creating cache dir %q: %w", dir, err)
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

func (c *Cache) path(k Key) string {
	return filepath.Join(c.dir, k.filename())
}

// Get returns the cached value for k, unmarshaled into out, and true if a
// live (non-expired, well-formed) entry existed. A missing file, an
// expired file (which is removed as a side effect), or a torn/corrupt
// file are all treated uniformly as a miss (spec §4.G).
func (c *Cache) Get(k Key, out any) bool {
	path := c.path(k)

	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		_ = os.Remove(path)
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false
	}
	return true
}

// Set serializes value and replaces the file for k as a whole-file write:
// the new content lands in a temp file first and is renamed into place so
// a reader never observes a partially written file (spec §4.G: "no
// partial writes are surfaced to readers").
func (c *Cache) Set(k Key, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("enrichcache: marshaling value for %q: %w", k.Name, err)
	}

	path := c.path(k)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("enrichcache: writing %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("enrichcache: renaming %q to %q: %w", tmp, path, err)
	}
	return nil
}

// Remove deletes the cached entry for k, if any.
func (c *Cache) Remove(k Key) error {
	err := os.Remove(c.path(k))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("enrichcache: removing %q: %w", c.path(k), err)
	}
	return nil
}

// Clear deletes every cache entry.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("enrichcache: reading cache dir %q: %w", c.dir, err)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return fmt.Errorf("enrichcache: removing %q: %w", e.Name(), err)
		}
	}
	return nil
}

// Stats walks the cache directory and reports entry counts and size.
func (c *Cache) Stats() Stats {
	var s Stats
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return s
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		s.TotalEntries++
		s.TotalSizeBytes += info.Size()
		if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
			s.ExpiredEntries++
		}
	}
	return s
}
