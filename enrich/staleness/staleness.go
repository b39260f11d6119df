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

// Package staleness grades npm, PyPI, and crates.io packages by how long
// it has been since their last release, and flags archived or deprecated
// packages outright (spec §4.H). Other ecosystems have no single registry
// API uniform enough to query generically and are left untouched.
package staleness

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sbomlens/sbomlens/enrich"
	"github.com/sbomlens/sbomlens/enrichcache"
	"github.com/sbomlens/sbomlens/httpx"
	"github.com/sbomlens/sbomlens/log"
	"github.com/sbomlens/sbomlens/model"
)

var logger = log.Named("staleness")

// Thresholds holds the day-count boundaries between staleness buckets.
// Callers who don't need custom thresholds should use DefaultThresholds.
type Thresholds struct {
	FreshMaxDays int // < this is Fresh
	AgingMaxDays int // < this is Aging
	StaleMaxDays int // < this is Stale; >= this is Abandoned
}

// DefaultThresholds match the buckets named in spec §4.H.
var DefaultThresholds = Thresholds{FreshMaxDays: 182, AgingMaxDays: 365, StaleMaxDays: 730}

// Enricher grades package freshness from registry metadata.
type Enricher struct {
	client     *httpx.Client
	cache      *enrichcache.Cache
	ttl        time.Duration
	thresholds Thresholds
}

// New returns a staleness enricher using DefaultThresholds.
func New(client *httpx.Client, cache *enrichcache.Cache, ttl time.Duration) *Enricher {
	return &Enricher{client: client, cache: cache, ttl: ttl, thresholds: DefaultThresholds}
}

// WithThresholds overrides the default day-count boundaries.
func (e *Enricher) WithThresholds(t Thresholds) *Enricher {
	e.thresholds = t
	return e
}

// Name implements enrich.Enricher.
func (e *Enricher) Name() string { return "staleness" }

// IsAvailable implements enrich.Enricher.
func (e *Enricher) IsAvailable(ctx context.Context) bool {
	_, status, err := e.client.GetJSON(ctx, "https://registry.npmjs.org/left-pad")
	return err == nil && status >= 200 && status < 300
}

type registryInfo struct {
	LastPublished *time.Time
	Deprecated    bool
	Archived      bool
}

// Enrich implements enrich.Enricher.
func (e *Enricher) Enrich(ctx context.Context, components []*model.Component) enrich.Stats {
	start := time.Now()
	stats := enrich.Stats{}

	for _, c := range components {
		stats.ComponentsQueried++
		url, ok := registryURL(c)
		if !ok {
			stats.ComponentsSkipped++
			continue
		}

		info, err := e.fetchInfo(ctx, c, url, &stats)
		if err != nil {
			logger.Warnf("fetching registry info for %s failed: %v", c.Name, err)
			stats.Errors = append(stats.Errors, enrich.EnrichError{
				Kind:          enrich.ErrorKindAPIError,
				ComponentName: c.Name,
				Message:       err.Error(),
			})
			continue
		}
		if info == nil {
			continue
		}

		c.Staleness = e.classify(info)
		stats.ComponentsWithResults++
		stats.TotalItemsFound++
	}

	stats.Duration = time.Since(start)
	return stats
}

func (e *Enricher) classify(info *registryInfo) *model.StalenessInfo {
	out := &model.StalenessInfo{LastPublished: info.LastPublished}
	switch {
	case info.Archived:
		out.Level = model.StalenessArchived
	case info.Deprecated:
		out.Level = model.StalenessDeprecated
	case info.LastPublished == nil:
		out.Level = model.StalenessUnknown
	default:
		days := int(time.Since(*info.LastPublished).Hours() / 24)
		out.DaysSince = days
		switch {
		case days < e.thresholds.FreshMaxDays:
			out.Level = model.StalenessFresh
		case days < e.thresholds.AgingMaxDays:
			out.Level = model.StalenessAging
		case days < e.thresholds.StaleMaxDays:
			out.Level = model.StalenessStale
		default:
			out.Level = model.StalenessAbandoned
		}
	}
	return out
}

// registryURL builds the per-ecosystem metadata URL for a component, or
// reports false when the ecosystem isn't one of the three this enricher
// handles.
func registryURL(c *model.Component) (string, bool) {
	if c.Name == "" {
		return "", false
	}
	switch c.Ecosystem.String() {
	case "npm":
		return "https://registry.npmjs.org/" + c.Name, true
	case "pypi":
		return "https://pypi.org/pypi/" + c.Name + "/json", true
	case "cargo":
		return "https://crates.io/api/v1/crates/" + c.Name, true
	default:
		return "", false
	}
}

func (e *Enricher) fetchInfo(ctx context.Context, c *model.Component, url string, stats *enrich.Stats) (*registryInfo, error) {
	key := enrichcache.Key{Name: "staleness:" + c.Ecosystem.String() + ":" + c.Name}

	var raw []byte
	if e.cache.Get(key, &raw) {
		stats.CacheHits++
	} else {
		body, status, err := e.client.GetJSON(ctx, url)
		if status == 404 {
			_ = e.cache.Set(key, []byte("null"))
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("staleness: fetching %q: %w", url, err)
		}
		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("staleness: %q returned status %d", url, status)
		}
		stats.APICalls++
		raw = body
		_ = e.cache.Set(key, raw)
	}

	if string(raw) == "null" {
		return nil, nil
	}
	return parseRegistryInfo(c.Ecosystem.String(), raw), nil
}

func parseRegistryInfo(ecosystem string, raw []byte) *registryInfo {
	info := &registryInfo{}
	switch ecosystem {
	case "npm":
		latest := gjson.GetBytes(raw, `dist-tags.latest`).String()
		if latest != "" {
			// Version strings contain dots, which collide with gjson's path
			// separator, so look the key up by direct map iteration instead
			// of building a dotted path.
			gjson.GetBytes(raw, "time").ForEach(func(k, v gjson.Result) bool {
				if k.String() == latest {
					if t := parseTime(v.String()); t != nil {
						info.LastPublished = t
					}
					return false
				}
				return true
			})
			gjson.GetBytes(raw, "versions").ForEach(func(k, v gjson.Result) bool {
				if k.String() == latest {
					info.Deprecated = v.Get("deprecated").Exists()
					return false
				}
				return true
			})
		}
	case "pypi":
		if t := parseTime(gjson.GetBytes(raw, "urls.0.upload_time_iso_8601").String()); t != nil {
			info.LastPublished = t
		}
		info.Archived = gjson.GetBytes(raw, "info.project_urls").Get("Archived").Exists()
	case "cargo":
		if t := parseTime(gjson.GetBytes(raw, "crate.updated_at").String()); t != nil {
			info.LastPublished = t
		}
	}
	return info
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return nil
}
