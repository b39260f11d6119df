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

package eol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sbomlens/sbomlens/enrichcache"
	"github.com/sbomlens/sbomlens/httpx"
	"github.com/sbomlens/sbomlens/model"
)

const pythonFixture = `{"result":{"releases":[
	{"name":"3.8","isEol":true,"latest":{"name":"3.8.20"}},
	{"name":"3.12","isEol":false,"latest":{"name":"3.12.4"}}
]}}`

func newEnricher(t *testing.T, base string) *Enricher {
	t.Helper()
	cache, err := enrichcache.New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("enrichcache.New: %v", err)
	}
	e := New(httpx.New(5*time.Second, 0), cache, time.Hour)
	e.base = base
	return e
}

func TestEnrichMatchesCycleAndMarksEol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/python") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(pythonFixture))
	}))
	defer srv.Close()

	e := newEnricher(t, srv.URL+"/")
	c := &model.Component{Name: "python", Version: "3.8.12"}

	stats := e.Enrich(context.Background(), []*model.Component{c})

	if c.Eol == nil {
		t.Fatal("expected Eol to be populated")
	}
	if c.Eol.Cycle != "3.8" || !c.Eol.IsEol {
		t.Errorf("Eol = %+v, want cycle 3.8, IsEol true", c.Eol)
	}
	if stats.ComponentsWithResults != 1 {
		t.Errorf("ComponentsWithResults = %d, want 1", stats.ComponentsWithResults)
	}
}

func TestEnrichUnknownProductIsSkippedNotErrored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	e := newEnricher(t, srv.URL+"/")
	c := &model.Component{Name: "some-internal-tool", Version: "1.0.0"}

	stats := e.Enrich(context.Background(), []*model.Component{c})

	if c.Eol != nil {
		t.Errorf("Eol = %+v, want nil", c.Eol)
	}
	if len(stats.Errors) != 0 {
		t.Errorf("Errors = %v, want none (404 is a clean miss)", stats.Errors)
	}
}

func TestResolveProductStripsKnownSuffixes(t *testing.T) {
	slug, ok := resolveProduct("redis-server")
	if !ok || slug != "redis" {
		t.Errorf("resolveProduct(redis-server) = %q, %v, want redis, true", slug, ok)
	}
}
