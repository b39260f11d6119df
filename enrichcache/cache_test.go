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

package enrichcache_test

import (
	"os"
	"testing"
	"time"

	"github.com/sbomlens/sbomlens/enrichcache"
)

type payload struct {
	Vulns []string `json:"vulns"`
}

func TestGetSetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := enrichcache.New(dir, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := enrichcache.Key{Purl: "pkg:npm/lodash@4.17.21"}
	want := payload{Vulns: []string{"CVE-2021-1234"}}
	if err := c.Set(key, want); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got payload
	if !c.Get(key, &got) {
		t.Fatal("Get returned a miss right after Set")
	}
	if len(got.Vulns) != 1 || got.Vulns[0] != "CVE-2021-1234" {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestGetMissingIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := enrichcache.New(dir, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var got payload
	if c.Get(enrichcache.Key{Name: "nonexistent"}, &got) {
		t.Error("expected a miss for a key never set")
	}
}

func TestGetExpiredRemovesFile(t *testing.T) {
	dir := t.TempDir()
	c, err := enrichcache.New(dir, time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := enrichcache.Key{Name: "pkg"}
	if err := c.Set(key, payload{Vulns: []string{"x"}}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var got payload
	if c.Get(key, &got) {
		t.Error("expected expired entry to be a miss")
	}

	stats := c.Stats()
	if stats.TotalEntries != 0 {
		t.Errorf("TotalEntries after expiry+Get = %d, want 0 (file should be removed)", stats.TotalEntries)
	}
}

func TestGetTornFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := enrichcache.New(dir, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := enrichcache.Key{Name: "torn"}
	if err := c.Set(key, payload{Vulns: []string{"x"}}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("ReadDir: %v entries=%v", err, entries)
	}
	if err := os.WriteFile(dir+"/"+entries[0].Name(), []byte("{not valid json"), 0o644); err != nil {
		t.Fatalf("corrupting cache file: %v", err)
	}

	var got payload
	if c.Get(key, &got) {
		t.Error("expected a torn/corrupt file to be treated as a miss")
	}
}

func TestRemoveAndClear(t *testing.T) {
	dir := t.TempDir()
	c, err := enrichcache.New(dir, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	k1 := enrichcache.Key{Name: "a"}
	k2 := enrichcache.Key{Name: "b"}
	_ = c.Set(k1, payload{Vulns: []string{"x"}})
	_ = c.Set(k2, payload{Vulns: []string{"y"}})

	if err := c.Remove(k1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if stats := c.Stats(); stats.TotalEntries != 1 {
		t.Errorf("TotalEntries after Remove = %d, want 1", stats.TotalEntries)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if stats := c.Stats(); stats.TotalEntries != 0 {
		t.Errorf("TotalEntries after Clear = %d, want 0", stats.TotalEntries)
	}
}

func TestIsQueryable(t *testing.T) {
	cases := []struct {
		key  enrichcache.Key
		want bool
	}{
		{enrichcache.Key{Purl: "pkg:npm/x@1"}, true},
		{enrichcache.Key{Name: "x", Ecosystem: "npm", Version: "1.0.0"}, true},
		{enrichcache.Key{Name: "x"}, false},
	}
	for _, tc := range cases {
		if got := tc.key.IsQueryable(); got != tc.want {
			t.Errorf("IsQueryable(%+v) = %v, want %v", tc.key, got, tc.want)
		}
	}
}
