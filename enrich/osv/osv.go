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

// Package osv enriches components with known vulnerabilities from OSV.dev.
// The querybatch API (spec §4.H) is the bulk path used during enrichment;
// its responses are parsed with gjson rather than bound to the
// ossf/osv-schema Go structs, mirroring how the npm registry client in the
// corpus reads registry JSON: the batch endpoint's shape is looser than the
// canonical per-vulnerability schema and gjson tolerates fields this
// enricher doesn't care about. The single-vulnerability lookup (spec §6,
// GET {api_base}/v1/vulns/{id}) returns one canonical OSV record, so that
// path binds strictly to osvschema.Vulnerability instead.
package osv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
	gocvss40 "github.com/pandatix/go-cvss/40"
	osvschema "github.com/ossf/osv-schema/bindings/go/osvschema"
	"github.com/tidwall/gjson"

	"github.com/sbomlens/sbomlens/enrich"
	"github.com/sbomlens/sbomlens/enrichcache"
	"github.com/sbomlens/sbomlens/httpx"
	"github.com/sbomlens/sbomlens/log"
	"github.com/sbomlens/sbomlens/model"
)

var logger = log.Named("osv")

const (
	batchURL = "https://api.osv.dev/v1/querybatch"
	vulnURL  = "https://api.osv.dev/v1/vulns/"
	// maxBatchSize is OSV.dev's documented limit for querybatch requests.
	maxBatchSize = 1000
)

// Enricher queries OSV.dev for known vulnerabilities.
type Enricher struct {
	client  *httpx.Client
	cache   *enrichcache.Cache
	ttl     time.Duration
	url     string // overridable for tests
	vulnURL string // overridable for tests
}

// New returns an OSV enricher backed by client and caching results in cache
// for ttl.
func New(client *httpx.Client, cache *enrichcache.Cache, ttl time.Duration) *Enricher {
	return &Enricher{client: client, cache: cache, ttl: ttl, url: batchURL, vulnURL: vulnURL}
}

// Name implements enrich.Enricher.
func (e *Enricher) Name() string { return "osv" }

// IsAvailable implements enrich.Enricher via a minimal empty-batch probe.
func (e *Enricher) IsAvailable(ctx context.Context) bool {
	_, status, err := e.client.PostJSON(ctx, e.url, []byte(`{"queries":[]}`))
	return err == nil && status >= 200 && status < 300
}

// osvEcosystem maps a normalized ecosystem to the string OSV.dev expects.
// Ecosystems OSV does not track (generic, conda, conan, alpine, debian, rpm)
// have no entry and are skipped.
var osvEcosystem = map[string]string{
	"npm":       "npm",
	"pypi":      "PyPI",
	"cargo":     "crates.io",
	"maven":     "Maven",
	"go":        "Go",
	"nuget":     "NuGet",
	"rubygems":  "RubyGems",
	"packagist": "Packagist",
	"cocoapods": "CocoaPods",
	"swift":     "SwiftURL",
	"hex":       "Hex",
	"pub":       "Pub",
	"hackage":   "Hackage",
	"cran":      "CRAN",
}

type query struct {
	component *model.Component
	body      map[string]any
}

// Enrich implements enrich.Enricher.
func (e *Enricher) Enrich(ctx context.Context, components []*model.Component) enrich.Stats {
	start := time.Now()
	stats := enrich.Stats{}

	var queries []query
	for _, c := range components {
		stats.ComponentsQueried++
		q, ok := buildQuery(c)
		if !ok {
			stats.ComponentsSkipped++
			continue
		}
		queries = append(queries, query{component: c, body: q})
	}

	cached, uncached := e.partitionCache(queries, &stats)

	for i := 0; i < len(uncached); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(uncached) {
			end = len(uncached)
		}
		batch := uncached[i:end]
		results, err := e.queryBatch(ctx, batch)
		if err != nil {
			logger.Warnf("querybatch failed for %d components: %v", len(batch), err)
			stats.Errors = append(stats.Errors, enrich.EnrichError{
				Kind:    enrich.ErrorKindAPIError,
				Message: err.Error(),
			})
			continue
		}
		stats.APICalls++
		for i, q := range batch {
			vulns := results[i]
			_ = e.cache.Set(cacheKey(q.component), vulns)
			applyVulns(q.component, vulns, &stats)
		}
	}

	for _, c := range cached {
		var vulns []model.VulnerabilityRef
		if e.cache.Get(cacheKey(c), &vulns) {
			applyVulns(c, vulns, &stats)
			stats.CacheHits++
		}
	}

	stats.Duration = time.Since(start)
	return stats
}

func applyVulns(c *model.Component, vulns []model.VulnerabilityRef, stats *enrich.Stats) {
	if len(vulns) == 0 {
		return
	}
	c.Vulnerabilities = append(c.Vulnerabilities, vulns...)
	stats.ComponentsWithResults++
	stats.TotalItemsFound += len(vulns)
}

func (e *Enricher) partitionCache(queries []query, stats *enrich.Stats) (cached []*model.Component, uncached []query) {
	for _, q := range queries {
		var v []model.VulnerabilityRef
		if e.cache.Get(cacheKey(q.component), &v) {
			cached = append(cached, q.component)
			continue
		}
		uncached = append(uncached, q)
	}
	return cached, uncached
}

func cacheKey(c *model.Component) enrichcache.Key {
	return enrichcache.Key{
		Purl:      c.Identifiers.Purl,
		Name:      c.Name,
		Ecosystem: c.Ecosystem.String(),
		Version:   c.Version,
	}
}

// buildQuery constructs the OSV.dev query object for one component: a PURL
// query when available, otherwise a (name, ecosystem, version) package
// query. Components without enough identity, or in an ecosystem OSV does not
// track, are skipped.
func buildQuery(c *model.Component) (map[string]any, bool) {
	if c.Identifiers.Purl != "" {
		return map[string]any{
			"package": map[string]string{"purl": c.Identifiers.Purl},
		}, true
	}
	eco, ok := osvEcosystem[c.Ecosystem.String()]
	if !ok || c.Name == "" || c.Version == "" {
		return nil, false
	}
	return map[string]any{
		"version": c.Version,
		"package": map[string]string{
			"name":      c.Name,
			"ecosystem": eco,
		},
	}, true
}

// queryBatch issues one querybatch request and parses it into a per-query
// slice of VulnerabilityRef, in request order.
func (e *Enricher) queryBatch(ctx context.Context, batch []query) ([][]model.VulnerabilityRef, error) {
	queries := make([]map[string]any, len(batch))
	for i, q := range batch {
		queries[i] = q.body
	}
	body, err := json.Marshal(map[string]any{"queries": queries})
	if err != nil {
		return nil, fmt.Errorf("osv: marshaling batch request: %w", err)
	}

	resp, status, err := e.client.PostJSON(ctx, e.url, body)
	if err != nil {
		return nil, fmt.Errorf("osv: querybatch request: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("osv: querybatch returned status %d", status)
	}

	results := gjson.GetBytes(resp, "results")
	out := make([][]model.VulnerabilityRef, len(batch))
	results.ForEach(func(idx, val gjson.Result) bool {
		i := int(idx.Int())
		if i >= len(out) {
			return true
		}
		val.Get("vulns").ForEach(func(_, v gjson.Result) bool {
			out[i] = append(out[i], parseVuln(v))
			return true
		})
		return true
	})
	return out, nil
}

// FetchByID resolves a single vulnerability by its OSV identifier (spec §6,
// GET {api_base}/v1/vulns/{id}). Unlike queryBatch this binds strictly to
// osvschema.Vulnerability: a single-record lookup returns the canonical OSV
// schema shape, not the looser batch envelope, so struct binding catches
// malformed responses gjson would silently tolerate.
func (e *Enricher) FetchByID(ctx context.Context, id string) (model.VulnerabilityRef, error) {
	resp, status, err := e.client.GetJSON(ctx, e.vulnURL+id)
	if err != nil {
		return model.VulnerabilityRef{}, fmt.Errorf("osv: fetching %s: %w", id, err)
	}
	if status < 200 || status >= 300 {
		return model.VulnerabilityRef{}, fmt.Errorf("osv: fetching %s returned status %d", id, status)
	}

	var v osvschema.Vulnerability
	if err := json.Unmarshal(resp, &v); err != nil {
		return model.VulnerabilityRef{}, fmt.Errorf("osv: decoding %s: %w", id, err)
	}
	return convertTypedVuln(&v), nil
}

// convertTypedVuln mirrors parseVuln's field mapping but reads from a
// strictly-bound osvschema.Vulnerability rather than a gjson.Result.
func convertTypedVuln(v *osvschema.Vulnerability) model.VulnerabilityRef {
	ref := model.VulnerabilityRef{
		ID:     v.ID,
		Source: sourceFromID(v.ID),
	}

	for _, s := range v.Severity {
		score, err := parseCvssVector(s.Score)
		if err == nil {
			ref.CvssScores = append(ref.CvssScores, score)
			if ref.Severity == nil {
				bucket := model.SeverityFromScore(score.Score)
				ref.Severity = &bucket
			}
		}
	}

	if len(v.Affected) > 0 {
		a := v.Affected[0]
		ref.AffectedVersions = append([]string(nil), a.Versions...)
		if len(ref.AffectedVersions) == 0 {
			for _, r := range a.Ranges {
				for _, ev := range r.Events {
					if ev.Introduced != "" {
						ref.AffectedVersions = append(ref.AffectedVersions, ">="+ev.Introduced)
					}
					if ev.Fixed != "" {
						ref.AffectedVersions = append(ref.AffectedVersions, "<"+ev.Fixed)
					}
				}
			}
		}
		for _, r := range a.Ranges {
			for _, ev := range r.Events {
				if ev.Fixed != "" {
					ref.Remediation = &model.Remediation{
						Kind:         model.RemediationFix,
						FixedVersion: ev.Fixed,
						Description:  "upgrade to " + ev.Fixed,
					}
					break
				}
			}
			if ref.Remediation != nil {
				break
			}
		}
	}

	if t, err := time.Parse(time.RFC3339, v.Published); err == nil {
		ref.Published = &t
	}
	if t, err := time.Parse(time.RFC3339, v.Modified); err == nil {
		ref.Modified = &t
	}

	return ref
}

func parseVuln(v gjson.Result) model.VulnerabilityRef {
	ref := model.VulnerabilityRef{
		ID:     v.Get("id").String(),
		Source: sourceFromID(v.Get("id").String()),
	}

	if sev := bestSeverity(v); sev != nil {
		ref.Severity = sev
	}
	for _, s := range v.Get("severity").Array() {
		score, err := parseCvssVector(s.Get("score").String())
		if err == nil {
			ref.CvssScores = append(ref.CvssScores, score)
			if ref.Severity == nil {
				bucket := model.SeverityFromScore(score.Score)
				ref.Severity = &bucket
			}
		}
	}

	for _, c := range v.Get("database_specific.cwe_ids").Array() {
		ref.CWEs = append(ref.CWEs, c.String())
	}
	if len(ref.CWEs) == 0 {
		for _, c := range v.Get("cwes").Array() {
			if id := c.Get("cweId").String(); id != "" {
				ref.CWEs = append(ref.CWEs, id)
			}
		}
	}

	ref.AffectedVersions = affectedVersions(v)
	ref.Remediation = remediation(v)

	if t := v.Get("published").Time(); !t.IsZero() {
		ref.Published = &t
	}
	if t := v.Get("modified").Time(); !t.IsZero() {
		ref.Modified = &t
	}

	return ref
}

func sourceFromID(id string) model.VulnSource {
	switch {
	case strings.HasPrefix(id, "CVE-"):
		return model.VulnSourceCVE
	case strings.HasPrefix(id, "GHSA-"):
		return model.VulnSourceGHSA
	default:
		return model.VulnSourceOSV
	}
}

// bestSeverity picks the database_specific severity string when present,
// since not every OSV record carries a CVSS vector.
func bestSeverity(v gjson.Result) *model.Severity {
	raw := strings.ToUpper(v.Get("database_specific.severity").String())
	var sev model.Severity
	switch raw {
	case "CRITICAL":
		sev = model.SeverityCritical
	case "HIGH":
		sev = model.SeverityHigh
	case "MODERATE", "MEDIUM":
		sev = model.SeverityMedium
	case "LOW":
		sev = model.SeverityLow
	default:
		return nil
	}
	return &sev
}

// parseCvssVector dispatches on the CVSS vector prefix, following the
// version-switch pattern used for CVSS scoring elsewhere in this module.
func parseCvssVector(vector string) (model.CvssScore, error) {
	switch {
	case strings.HasPrefix(vector, "CVSS:4.0/"):
		vec, err := gocvss40.ParseVector(vector)
		if err != nil {
			return model.CvssScore{}, err
		}
		return model.CvssScore{Version: "4.0", Vector: vector, Score: vec.Score()}, nil
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		vec, err := gocvss31.ParseVector(vector)
		if err != nil {
			return model.CvssScore{}, err
		}
		return model.CvssScore{Version: "3.1", Vector: vector, Score: vec.BaseScore()}, nil
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		vec, err := gocvss30.ParseVector(vector)
		if err != nil {
			return model.CvssScore{}, err
		}
		return model.CvssScore{Version: "3.0", Vector: vector, Score: vec.BaseScore()}, nil
	case strings.HasPrefix(vector, "AV:"):
		vec, err := gocvss20.ParseVector(vector)
		if err != nil {
			return model.CvssScore{}, err
		}
		return model.CvssScore{Version: "2.0", Vector: vector, Score: vec.BaseScore()}, nil
	default:
		return model.CvssScore{}, fmt.Errorf("osv: unrecognized CVSS vector %q", vector)
	}
}

// affectedVersions flattens the versions list, falling back to range event
// introduced/fixed boundaries when an explicit enumeration isn't present.
func affectedVersions(v gjson.Result) []string {
	var out []string
	for _, ver := range v.Get("affected.0.versions").Array() {
		out = append(out, ver.String())
	}
	if len(out) > 0 {
		return out
	}
	for _, ev := range v.Get("affected.0.ranges.0.events").Array() {
		if s := ev.Get("introduced").String(); s != "" {
			out = append(out, ">="+s)
		}
		if s := ev.Get("fixed").String(); s != "" {
			out = append(out, "<"+s)
		}
	}
	return out
}

// remediation looks for the first "fixed" range event, following the
// original's rule that the earliest fix boundary is the remediation target.
func remediation(v gjson.Result) *model.Remediation {
	for _, ev := range v.Get("affected.0.ranges.0.events").Array() {
		if fixed := ev.Get("fixed").String(); fixed != "" {
			return &model.Remediation{
				Kind:         model.RemediationFix,
				FixedVersion: fixed,
				Description:  "upgrade to " + fixed,
			}
		}
	}
	return nil
}
