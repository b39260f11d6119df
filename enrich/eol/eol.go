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

// Package eol resolves component versions against endoflife.date cycle data
// (spec §4.H). Product identity rarely matches a PURL name 1:1 (e.g.
// "python3-dev" vs. "python"), so resolution tries a static table first,
// then a conservative suffix-stripping retry, and finally falls back to the
// lowercased name itself.
package eol

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sbomlens/sbomlens/enrich"
	"github.com/sbomlens/sbomlens/enrichcache"
	"github.com/sbomlens/sbomlens/httpx"
	"github.com/sbomlens/sbomlens/log"
	"github.com/sbomlens/sbomlens/model"
)

var logger = log.Named("eol")

const apiBase = "https://endoflife.date/api/v1/products/"

// productSlugs maps well-known component names to their endoflife.date
// product slug, for names that don't already match the slug directly.
var productSlugs = map[string]string{
	"python":     "python",
	"python3":    "python",
	"node":       "nodejs",
	"nodejs":     "nodejs",
	"openjdk":    "java",
	"postgresql": "postgresql",
	"postgres":   "postgresql",
	"mysql":      "mysql",
	"redis":      "redis",
	"nginx":      "nginx",
	"ubuntu":     "ubuntu",
	"debian":     "debian",
	"golang":     "go",
	"go":         "go",
	"php":        "php",
	"ruby":       "ruby",
	"django":     "django",
	"dotnet":     ".net",
	".net":       ".net",
}

// stripSuffixes are removed, in order, when a direct slug lookup misses, to
// catch names like "nginx-core" or "redis-server".
var stripSuffixes = []string{"-server", "-client", "-core", "-runtime", "-lib"}

// Enricher resolves component lifecycle status from endoflife.date.
type Enricher struct {
	client *httpx.Client
	cache  *enrichcache.Cache
	ttl    time.Duration
	base   string
}

// New returns an EOL enricher backed by client, caching responses in cache
// for ttl.
func New(client *httpx.Client, cache *enrichcache.Cache, ttl time.Duration) *Enricher {
	return &Enricher{client: client, cache: cache, ttl: ttl, base: apiBase}
}

// Name implements enrich.Enricher.
func (e *Enricher) Name() string { return "eol" }

// IsAvailable implements enrich.Enricher.
func (e *Enricher) IsAvailable(ctx context.Context) bool {
	_, status, err := e.client.GetJSON(ctx, e.base+"python")
	return err == nil && status >= 200 && status < 300
}

// Enrich implements enrich.Enricher.
func (e *Enricher) Enrich(ctx context.Context, components []*model.Component) enrich.Stats {
	start := time.Now()
	stats := enrich.Stats{}

	for _, c := range components {
		stats.ComponentsQueried++
		slug, ok := resolveProduct(c.Name)
		if !ok || c.Version == "" {
			stats.ComponentsSkipped++
			continue
		}

		cycles, err := e.fetchCycles(ctx, slug, &stats)
		if err != nil {
			logger.Warnf("fetching cycles for %s failed: %v", slug, err)
			stats.Errors = append(stats.Errors, enrich.EnrichError{
				Kind:          enrich.ErrorKindAPIError,
				ComponentName: c.Name,
				Message:       err.Error(),
			})
			continue
		}
		if cycles == nil {
			continue
		}

		info := matchCycle(slug, c.Version, cycles)
		if info == nil {
			continue
		}
		c.Eol = info
		stats.ComponentsWithResults++
		stats.TotalItemsFound++
	}

	stats.Duration = time.Since(start)
	return stats
}

// resolveProduct maps a component name to an endoflife.date slug: a static
// table lookup first, then the first matching suffix-stripped name (its table
// slug, or the stripped name itself), then the lowercased name itself (most
// products' slugs match their package name directly).
func resolveProduct(name string) (string, bool) {
	lower := strings.ToLower(name)
	if slug, ok := productSlugs[lower]; ok {
		return slug, true
	}
	if lower != "" {
		for _, suffix := range stripSuffixes {
			if stripped, found := strings.CutSuffix(lower, suffix); found && stripped != "" {
				if slug, ok := productSlugs[stripped]; ok {
					return slug, true
				}
				return stripped, true
			}
		}
		return lower, true
	}
	return "", false
}

type cycleEntry struct {
	Cycle   string
	Eol     gjson.Result
	Latest  string
	Support gjson.Result
}

func (e *Enricher) fetchCycles(ctx context.Context, slug string, stats *enrich.Stats) ([]cycleEntry, error) {
	key := enrichcache.Key{Name: "eol:" + slug}

	var raw []byte
	if e.cache.Get(key, &raw) {
		stats.CacheHits++
	} else {
		body, status, err := e.client.GetJSON(ctx, e.base+slug)
		if status == 404 {
			_ = e.cache.Set(key, []byte("null"))
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("eol: fetching %q: %w", slug, err)
		}
		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("eol: %q returned status %d", slug, status)
		}
		stats.APICalls++
		raw = body
		_ = e.cache.Set(key, raw)
	}

	if string(raw) == "null" {
		return nil, nil
	}

	var out []cycleEntry
	for _, r := range gjson.GetBytes(raw, "result.releases").Array() {
		out = append(out, cycleEntry{
			Cycle:   r.Get("name").String(),
			Eol:     r.Get("isEol"),
			Latest:  r.Get("latest.name").String(),
			Support: r.Get("isEoas"),
		})
	}
	return out, nil
}

// matchCycle finds the release cycle whose name is a prefix of version
// (endoflife.date cycles are usually "major" or "major.minor" strings).
func matchCycle(product, version string, cycles []cycleEntry) *model.EolInfo {
	best := ""
	var match *cycleEntry
	for i := range cycles {
		c := &cycles[i]
		if c.Cycle == "" {
			continue
		}
		if version == c.Cycle || strings.HasPrefix(version, c.Cycle+".") {
			if len(c.Cycle) > len(best) {
				best = c.Cycle
				match = c
			}
		}
	}
	if match == nil {
		return nil
	}
	return &model.EolInfo{
		Product: product,
		Cycle:   match.Cycle,
		IsEol:   match.Eol.Type == gjson.True || isTruthyDate(match.Eol),
		Latest:  match.Latest,
	}
}

// isTruthyDate reports whether an isEol field holding a date string (rather
// than a boolean) denotes a date already in the past.
func isTruthyDate(r gjson.Result) bool {
	if r.Type != gjson.String {
		return false
	}
	t, err := time.Parse("2006-01-02", r.Str)
	if err != nil {
		return false
	}
	return time.Now().After(t)
}
