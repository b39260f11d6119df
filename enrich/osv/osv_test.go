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

package osv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sbomlens/sbomlens/enrichcache"
	"github.com/sbomlens/sbomlens/httpx"
	"github.com/sbomlens/sbomlens/model"
)

func newEnricher(t *testing.T, url string) *Enricher {
	t.Helper()
	cache, err := enrichcache.New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("enrichcache.New: %v", err)
	}
	e := New(httpx.New(5*time.Second, 0), cache, time.Hour)
	e.url = url
	return e
}

func TestFetchByIDBindsCanonicalRecord(t *testing.T) {
	const resp = `{
		"id": "CVE-2023-99999",
		"summary": "Example vulnerability",
		"severity": [{"type": "CVSS_V3", "score": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"}],
		"affected": [{"versions": ["1.2.2"], "ranges": [{"events": [{"introduced": "0"}, {"fixed": "1.2.3"}]}]}],
		"published": "2023-01-01T00:00:00Z"
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/CVE-2023-99999" {
			t.Errorf("path = %q, want /CVE-2023-99999", r.URL.Path)
		}
		w.Write([]byte(resp))
	}))
	defer srv.Close()

	e := newEnricher(t, srv.URL)
	e.vulnURL = srv.URL + "/"

	ref, err := e.FetchByID(context.Background(), "CVE-2023-99999")
	if err != nil {
		t.Fatalf("FetchByID: %v", err)
	}
	if ref.ID != "CVE-2023-99999" {
		t.Errorf("ID = %q", ref.ID)
	}
	if ref.Source != model.VulnSourceCVE {
		t.Errorf("Source = %v, want VulnSourceCVE", ref.Source)
	}
	if ref.Severity == nil || *ref.Severity != model.SeverityCritical {
		t.Errorf("Severity = %v, want Critical", ref.Severity)
	}
	if ref.Remediation == nil || ref.Remediation.FixedVersion != "1.2.3" {
		t.Errorf("Remediation = %+v", ref.Remediation)
	}
	if ref.Published == nil || ref.Published.Year() != 2023 {
		t.Errorf("Published = %v", ref.Published)
	}
}

func TestFetchByIDPropagatesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	e := newEnricher(t, srv.URL)
	e.vulnURL = srv.URL + "/"

	if _, err := e.FetchByID(context.Background(), "CVE-DOES-NOT-EXIST"); err == nil {
		t.Fatal("FetchByID returned no error for a 404 response")
	}
}

func componentWithPurl(purl string) *model.Component {
	return &model.Component{
		CanonicalID: model.CanonicalId(purl),
		Name:        "lodash",
		Version:     "4.17.20",
		Ecosystem:   model.EcosystemNpm,
		Identifiers: model.Identifiers{Purl: purl},
	}
}

func TestEnrichAppliesVulnerabilitiesFromBatchResponse(t *testing.T) {
	const resp = `{"results":[{"vulns":[{
		"id": "GHSA-p6mc-m468-83gw",
		"severity": [{"type": "CVSS_V3", "score": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"}],
		"affected": [{"versions": ["4.17.19"], "ranges": [{"events": [{"introduced": "0"}, {"fixed": "4.17.21"}]}]}],
		"database_specific": {"cwe_ids": ["CWE-1321"]}
	}]}]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resp))
	}))
	defer srv.Close()

	e := newEnricher(t, srv.URL)
	c := componentWithPurl("pkg:npm/lodash@4.17.20")

	stats := e.Enrich(context.Background(), []*model.Component{c})

	if stats.ComponentsQueried != 1 {
		t.Errorf("ComponentsQueried = %d, want 1", stats.ComponentsQueried)
	}
	if stats.ComponentsWithResults != 1 {
		t.Errorf("ComponentsWithResults = %d, want 1", stats.ComponentsWithResults)
	}
	if len(c.Vulnerabilities) != 1 {
		t.Fatalf("len(Vulnerabilities) = %d, want 1", len(c.Vulnerabilities))
	}
	v := c.Vulnerabilities[0]
	if v.ID != "GHSA-p6mc-m468-83gw" {
		t.Errorf("ID = %q", v.ID)
	}
	if v.Severity == nil || *v.Severity != model.SeverityCritical {
		t.Errorf("Severity = %v, want Critical", v.Severity)
	}
	if len(v.CWEs) != 1 || v.CWEs[0] != "CWE-1321" {
		t.Errorf("CWEs = %v", v.CWEs)
	}
	if v.Remediation == nil || v.Remediation.FixedVersion != "4.17.21" {
		t.Errorf("Remediation = %+v", v.Remediation)
	}
}

func TestEnrichCachesResults(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"results":[{"vulns":[]}]}`))
	}))
	defer srv.Close()

	e := newEnricher(t, srv.URL)
	c := componentWithPurl("pkg:npm/left-pad@1.0.0")

	e.Enrich(context.Background(), []*model.Component{c})
	stats := e.Enrich(context.Background(), []*model.Component{c})

	if calls != 1 {
		t.Errorf("upstream called %d times, want 1 (second Enrich should hit cache)", calls)
	}
	if stats.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", stats.CacheHits)
	}
}

func TestEnrichSkipsComponentsWithoutIdentity(t *testing.T) {
	e := newEnricher(t, "http://unused.invalid")
	c := &model.Component{CanonicalID: "bare", Name: "mystery"}

	stats := e.Enrich(context.Background(), []*model.Component{c})

	if stats.ComponentsSkipped != 1 {
		t.Errorf("ComponentsSkipped = %d, want 1", stats.ComponentsSkipped)
	}
	if stats.APICalls != 0 {
		t.Errorf("APICalls = %d, want 0 for an unqueryable component", stats.APICalls)
	}
}

func TestBuildQueryUsesEcosystemVersionWhenNoPurl(t *testing.T) {
	c := &model.Component{
		Name:      "requests",
		Version:   "2.25.0",
		Ecosystem: model.EcosystemPyPI,
	}
	q, ok := buildQuery(c)
	if !ok {
		t.Fatal("buildQuery returned not-ok for a component with name+ecosystem+version")
	}
	pkg := q["package"].(map[string]string)
	if pkg["ecosystem"] != "PyPI" {
		t.Errorf("ecosystem = %q, want PyPI", pkg["ecosystem"])
	}
}
