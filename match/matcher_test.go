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

package match_test

import (
	"testing"

	"github.com/sbomlens/sbomlens/match"
	"github.com/sbomlens/sbomlens/model"
)

func comp(name, version string, eco model.Ecosystem, purl string) *model.Component {
	return &model.Component{
		CanonicalID: model.CanonicalId(name + "@" + version),
		Name:        name,
		Version:     version,
		Ecosystem:   eco,
		Identifiers: model.Identifiers{Purl: purl},
	}
}

func TestFuzzyMatcherTiers(t *testing.T) {
	aliases := match.NewAliasTable()
	aliases.Add("lodash", "lodash-es")

	m := match.New(match.DefaultConfig(), aliases, nil)

	tests := []struct {
		name     string
		a, b     *model.Component
		wantTier match.Tier
	}{
		{
			name:     "exact purl match",
			a:        comp("lodash", "4.17.21", model.EcosystemNpm, "pkg:npm/lodash@4.17.21"),
			b:        comp("lodash", "4.17.21", model.EcosystemNpm, "pkg:npm/lodash@4.17.21"),
			wantTier: match.TierExactIdentifier,
		},
		{
			name:     "alias tier",
			a:        comp("lodash", "4.17.21", model.EcosystemNpm, ""),
			b:        comp("lodash-es", "4.17.21", model.EcosystemNpm, ""),
			wantTier: match.TierAlias,
		},
		{
			name:     "ecosystem rule tier: maven javax to jakarta",
			a:        comp("javax.servlet-api", "4.0.1", model.EcosystemMaven, ""),
			b:        comp("jakarta.servlet-api", "5.0.0", model.EcosystemMaven, ""),
			wantTier: match.TierEcosystemRule,
		},
		{
			name:     "fuzzy tier: minor rename",
			a:        comp("react-dom", "18.2.0", model.EcosystemNpm, ""),
			b:        comp("react-domm", "18.2.0", model.EcosystemNpm, ""),
			wantTier: match.TierFuzzy,
		},
		{
			name:     "no match",
			a:        comp("express", "4.18.0", model.EcosystemNpm, ""),
			b:        comp("webpack", "5.0.0", model.EcosystemNpm, ""),
			wantTier: match.TierNoMatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := m.MatchDetailed(tc.a, tc.b)
			if r.Tier != tc.wantTier {
				t.Errorf("MatchDetailed(%s, %s).Tier = %s, want %s", tc.a.Name, tc.b.Name, r.Tier, tc.wantTier)
			}
		})
	}
}

func TestFuzzyMatcherSymmetric(t *testing.T) {
	m := match.New(match.DefaultConfig(), match.NewAliasTable(), nil)
	a := comp("react-dom", "18.2.0", model.EcosystemNpm, "")
	b := comp("react-domm", "18.2.0", model.EcosystemNpm, "")

	if got, want := m.MatchScore(a, b), m.MatchScore(b, a); got != want {
		t.Errorf("MatchScore not symmetric: MatchScore(a,b)=%v, MatchScore(b,a)=%v", got, want)
	}
}

func TestFuzzyMatcherMultiField(t *testing.T) {
	cfg := match.DefaultConfig()
	w := match.BalancedWeights()
	cfg.FieldWeights = &w
	// Identical PyPI names would otherwise be decided by the ecosystem-rule
	// tier before fuzzy multi-field scoring is reached.
	cfg.UseEcosystemRules = false

	m := match.New(cfg, nil, nil)

	a := comp("requests", "2.28.0", model.EcosystemPyPI, "")
	a.Supplier = &model.Organization{Name: "Python Software Foundation"}
	b := comp("requests", "2.28.1", model.EcosystemPyPI, "")
	b.Supplier = &model.Organization{Name: "Python Software Foundation"}

	r := m.MatchDetailed(a, b)
	if r.Tier != match.TierFuzzy {
		t.Fatalf("expected fuzzy-tier multi-field match, got tier %s (score %v)", r.Tier, r.Score)
	}
	if r.Metadata.MultiField == nil {
		t.Fatal("expected MultiField breakdown to be populated")
	}
	if r.Metadata.MultiField.NameScore < 0.99 {
		t.Errorf("NameScore = %v, want ~1.0 for identical names", r.Metadata.MultiField.NameScore)
	}
}

func TestCompositeMatcherPicksBest(t *testing.T) {
	strict := match.New(match.ConfigForPreset(match.PresetStrict), nil, nil)
	permissive := match.New(match.ConfigForPreset(match.PresetPermissive), nil, nil)
	composite := match.NewCompositeMatcher("test-composite", 0.7, strict, permissive)

	a := comp("babel-core", "7.0.0", model.EcosystemNpm, "")
	b := comp("babel-corex", "7.0.0", model.EcosystemNpm, "")

	want := permissive.MatchScore(a, b)
	got := composite.MatchScore(a, b)
	if got != want {
		t.Errorf("CompositeMatcher.MatchScore = %v, want %v (permissive child's score)", got, want)
	}
}

func TestCachedMatcherOrderIndependent(t *testing.T) {
	inner := match.New(match.DefaultConfig(), nil, nil)
	cached := match.NewCachedMatcher(inner, 100)

	a := comp("axios", "1.4.0", model.EcosystemNpm, "")
	b := comp("axioss", "1.4.0", model.EcosystemNpm, "")

	first := cached.MatchScore(a, b)
	second := cached.MatchScore(b, a)
	if first != second {
		t.Errorf("cached score differs by argument order: %v vs %v", first, second)
	}

	stats := cached.Stats()
	if stats.Hits == 0 {
		t.Error("expected at least one cache hit after querying the reversed pair")
	}
}

func TestCachedMatcherEvictsAtCapacity(t *testing.T) {
	inner := match.New(match.DefaultConfig(), nil, nil)
	cached := match.NewCachedMatcher(inner, 4)

	names := []string{"a", "b", "c", "d", "e", "f"}
	for i := 0; i < len(names)-1; i++ {
		x := comp(names[i], "1.0.0", model.EcosystemNpm, "")
		y := comp(names[i+1], "1.0.0", model.EcosystemNpm, "")
		cached.MatchScore(x, y)
	}

	if stats := cached.Stats(); stats.Evictions == 0 {
		t.Error("expected eviction once cache exceeded its bound")
	}
}
