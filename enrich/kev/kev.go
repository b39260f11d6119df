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

// Package kev cross-references vulnerabilities against the CISA Known
// Exploited Vulnerabilities catalog (spec §4.H). The catalog is small
// (a few thousand entries) and fetched whole, then indexed by CVE ID.
package kev

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

var logger = log.Named("kev")

const catalogURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"

var catalogCacheKey = enrichcache.Key{Name: "__kev_catalog__"}

// Enricher marks VulnerabilityRefs present in the CISA KEV catalog.
type Enricher struct {
	client *httpx.Client
	cache  *enrichcache.Cache
	url    string
}

// New returns a KEV enricher backed by client, caching the whole catalog in
// cache under a fixed key.
func New(client *httpx.Client, cache *enrichcache.Cache) *Enricher {
	return &Enricher{client: client, cache: cache, url: catalogURL}
}

// Name implements enrich.Enricher.
func (e *Enricher) Name() string { return "kev" }

// IsAvailable implements enrich.Enricher.
func (e *Enricher) IsAvailable(ctx context.Context) bool {
	_, status, err := e.client.GetJSON(ctx, e.url)
	return err == nil && status >= 200 && status < 300
}

type entry struct {
	DateAdded          string
	DueDate            string
	KnownRansomwareUse bool
	RequiredAction     string
	VendorProject      string
	Product            string
}

// Enrich implements enrich.Enricher.
func (e *Enricher) Enrich(ctx context.Context, components []*model.Component) enrich.Stats {
	start := time.Now()
	stats := enrich.Stats{}

	catalog, err := e.loadCatalog(ctx, &stats)
	if err != nil {
		logger.Warnf("loading KEV catalog failed: %v", err)
		stats.Errors = append(stats.Errors, enrich.EnrichError{
			Kind:    enrich.ErrorKindAPIError,
			Message: err.Error(),
		})
		stats.Duration = time.Since(start)
		return stats
	}

	for _, c := range components {
		stats.ComponentsQueried++
		found := false
		for i := range c.Vulnerabilities {
			v := &c.Vulnerabilities[i]
			if !strings.HasPrefix(strings.ToUpper(v.ID), "CVE-") {
				continue
			}
			ent, ok := catalog[strings.ToUpper(strings.TrimSpace(v.ID))]
			if !ok {
				continue
			}
			v.IsKev = true
			v.KevInfo = &model.KevInfo{
				DateAdded:          ent.DateAdded,
				DueDate:            ent.DueDate,
				KnownRansomwareUse: ent.KnownRansomwareUse,
				RequiredAction:     ent.RequiredAction,
				VendorProject:      ent.VendorProject,
				Product:            ent.Product,
			}
			found = true
			stats.TotalItemsFound++
		}
		if found {
			stats.ComponentsWithResults++
		}
	}

	stats.Duration = time.Since(start)
	return stats
}

func (e *Enricher) loadCatalog(ctx context.Context, stats *enrich.Stats) (map[string]entry, error) {
	var raw []byte
	if e.cache.Get(catalogCacheKey, &raw) {
		stats.CacheHits++
	} else {
		body, status, err := e.client.GetJSON(ctx, e.url)
		if err != nil {
			return nil, fmt.Errorf("kev: fetching catalog: %w", err)
		}
		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("kev: catalog fetch returned status %d", status)
		}
		stats.APICalls++
		raw = body
		_ = e.cache.Set(catalogCacheKey, raw)
	}

	catalog := make(map[string]entry)
	for _, v := range gjson.GetBytes(raw, "vulnerabilities").Array() {
		id := strings.ToUpper(strings.TrimSpace(v.Get("cveID").String()))
		if id == "" {
			continue
		}
		catalog[id] = entry{
			DateAdded:          v.Get("dateAdded").String(),
			DueDate:            v.Get("dueDate").String(),
			KnownRansomwareUse: strings.EqualFold(v.Get("knownRansomwareCampaignUse").String(), "Known"),
			RequiredAction:     v.Get("requiredAction").String(),
			VendorProject:      v.Get("vendorProject").String(),
			Product:            v.Get("product").String(),
		}
	}
	return catalog, nil
}
