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
	"strings"
	"sync"

	"bitbucket.org/creachadair/stringset"
)

// AliasTable is a bidirectional canonical-name to alias-set lookup used by
// the alias tier of FuzzyMatcher (spec §4.E). Names are compared
// case-insensitively. Safe for concurrent reads and writes.
type AliasTable struct {
	mu sync.RWMutex
	// groups maps a lowercase name to the set of all lowercase names
	// (including itself) known to denote the same logical package.
	groups map[string]stringset.Set
}

// NewAliasTable returns an empty AliasTable.
func NewAliasTable() *AliasTable {
	return &AliasTable{groups: make(map[string]stringset.Set)}
}

// Add registers that canonical and each of aliases denote the same package,
// merging with any existing groups any of the names already belong to.
func (t *AliasTable) Add(canonical string, aliases ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(aliases)+1)
	names = append(names, strings.ToLower(canonical))
	for _, a := range aliases {
		names = append(names, strings.ToLower(a))
	}

	merged := stringset.New(names...)
	for _, n := range names {
		if g, ok := t.groups[n]; ok {
			merged.Update(g)
		}
	}
	for _, n := range merged.Elements() {
		t.groups[n] = merged
	}
}

// AreAliases reports whether a and b belong to the same alias group.
func (t *AliasTable) AreAliases(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return false // identity is handled by exact-match tiers, not aliasing
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	g, ok := t.groups[la]
	if !ok {
		return false
	}
	return g.Contains(lb)
}

// Group returns the full alias set for name, including name itself.
func (t *AliasTable) Group(name string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	g, ok := t.groups[strings.ToLower(name)]
	if !ok {
		return nil
	}
	return g.Elements()
}

// Len returns the number of distinct alias groups currently registered.
func (t *AliasTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	uniq := make(map[string]bool)
	for _, g := range t.groups {
		key := strings.Join(g.Elements(), "\x00")
		uniq[key] = true
	}
	return len(uniq)
}
