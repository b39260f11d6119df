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

package kev

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

const catalogFixture = `{"vulnerabilities":[
	{"cveID":"CVE-2021-44228","dateAdded":"2021-12-10","dueDate":"2021-12-24",
	 "knownRansomwareCampaignUse":"Known","requiredAction":"Apply updates.",
	 "vendorProject":"Apache","product":"Log4j2"}
]}`

func newEnricher(t *testing.T, url string) *Enricher {
	t.Helper()
	cache, err := enrichcache.New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("enrichcache.New: %v", err)
	}
	e := New(httpx.New(5*time.Second, 0), cache)
	e.url = url
	return e
}

func TestEnrichMarksKnownExploitedCVE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(catalogFixture))
	}))
	defer srv.Close()

	e := newEnricher(t, srv.URL)
	sev := model.SeverityCritical
	c := &model.Component{
		Name: "log4j-core",
		Vulnerabilities: []model.VulnerabilityRef{
			{ID: "cve-2021-44228", Severity: &sev},
			{ID: "CVE-2099-00001"},
		},
	}

	stats := e.Enrich(context.Background(), []*model.Component{c})

	if !c.Vulnerabilities[0].IsKev {
		t.Error("expected CVE-2021-44228 to be marked IsKev")
	}
	if c.Vulnerabilities[0].KevInfo == nil || c.Vulnerabilities[0].KevInfo.VendorProject != "Apache" {
		t.Errorf("KevInfo = %+v", c.Vulnerabilities[0].KevInfo)
	}
	if !c.Vulnerabilities[0].KevInfo.KnownRansomwareUse {
		t.Error("expected KnownRansomwareUse to be true")
	}
	if c.Vulnerabilities[1].IsKev {
		t.Error("expected CVE-2099-00001 to remain unmarked")
	}
	if stats.ComponentsWithResults != 1 {
		t.Errorf("ComponentsWithResults = %d, want 1", stats.ComponentsWithResults)
	}
}

func TestEnrichCachesCatalogAcrossCalls(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(catalogFixture))
	}))
	defer srv.Close()

	e := newEnricher(t, srv.URL)
	c := &model.Component{Vulnerabilities: []model.VulnerabilityRef{{ID: "CVE-2021-44228"}}}

	e.Enrich(context.Background(), []*model.Component{c})
	e.Enrich(context.Background(), []*model.Component{c})

	if calls != 1 {
		t.Errorf("catalog fetched %d times, want 1", calls)
	}
}
