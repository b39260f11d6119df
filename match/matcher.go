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

	"github.com/sbomlens/sbomlens/model"
	"github.com/sbomlens/sbomlens/purl"
)

// Tier is the closed set of identity-decision tiers (spec §4.E), ordered
// from least to most certain (higher values are more certain).
type Tier int

// Tier values.
const (
	TierNoMatch Tier = iota
	TierFuzzy
	TierEcosystemRule
	TierAlias
	TierExactIdentifier
)

func (t Tier) String() string {
	switch t {
	case TierExactIdentifier:
		return "ExactIdentifier"
	case TierAlias:
		return "Alias"
	case TierEcosystemRule:
		return "EcosystemRule"
	case TierFuzzy:
		return "Fuzzy"
	default:
		return "NoMatch"
	}
}

// Metadata carries the diagnostic breakdown of how a match was decided.
type Metadata struct {
	MatchedFields  []string
	Normalization  string
	RuleID         string
	MultiField     *MultiFieldScoreResult
}

// Result is the outcome of a tiered match attempt.
type Result struct {
	Score    float64
	Tier     Tier
	Metadata Metadata
}

// NoMatch is the zero-score, zero-tier Result.
func NoMatch() Result { return Result{Tier: TierNoMatch} }

// Matcher is the interface every matching strategy in this package
// implements: composite and cached matchers wrap other Matchers.
type Matcher interface {
	// MatchScore returns the match score in [0, 1] for a and b. Matchers
	// must be symmetric: MatchScore(a, b) == MatchScore(b, a) (spec §8
	// invariant 5).
	MatchScore(a, b *model.Component) float64
	// MatchDetailed returns the full tiered breakdown.
	MatchDetailed(a, b *model.Component) Result
	// Name identifies the matcher for logging/diagnostics.
	Name() string
	// Threshold returns the configured acceptance threshold.
	Threshold() float64
}

// FuzzyMatcher is the tiered matcher described in spec §4.E: exact
// identifier, alias, ecosystem rule, then multi-field or legacy fuzzy.
type FuzzyMatcher struct {
	cfg     Config
	aliases *AliasTable
	rules   *EcosystemRules
}

var _ Matcher = (*FuzzyMatcher)(nil)

// New constructs a FuzzyMatcher. aliases/rules may be nil to disable those
// tiers regardless of cfg.UseAliases/UseEcosystemRules.
func New(cfg Config, aliases *AliasTable, rules *EcosystemRules) *FuzzyMatcher {
	if rules == nil {
		rules = DefaultEcosystemRules()
	}
	return &FuzzyMatcher{cfg: cfg, aliases: aliases, rules: rules}
}

// Name implements Matcher.
func (m *FuzzyMatcher) Name() string { return "FuzzyMatcher" }

// Threshold implements Matcher.
func (m *FuzzyMatcher) Threshold() float64 { return m.cfg.Threshold }

// MatchScore implements Matcher.
func (m *FuzzyMatcher) MatchScore(a, b *model.Component) float64 {
	return m.MatchDetailed(a, b).Score
}

// MatchDetailed implements Matcher, running the four tiers in order and
// returning the first to yield a hit.
func (m *FuzzyMatcher) MatchDetailed(a, b *model.Component) Result {
	// Tier 1: exact identifier (PURL equality after ecosystem-aware
	// normalization).
	if a.Identifiers.Purl != "" && b.Identifiers.Purl != "" {
		if purl.EqualNormalized(a.Identifiers.Purl, b.Identifiers.Purl) {
			return Result{
				Score: 1.0,
				Tier:  TierExactIdentifier,
				Metadata: Metadata{
					MatchedFields: []string{"purl"},
					Normalization: "purl_normalized",
				},
			}
		}
	}

	// Tier 2: alias table.
	if m.cfg.UseAliases && m.aliases != nil && m.aliases.AreAliases(a.Name, b.Name) {
		return Result{
			Score: 0.95,
			Tier:  TierAlias,
			Metadata: Metadata{
				MatchedFields: []string{"name"},
				Normalization: "alias_table",
			},
		}
	}

	// Tier 3: ecosystem-specific rule normalization.
	if m.cfg.UseEcosystemRules && !a.Ecosystem.IsZero() && !b.Ecosystem.IsZero() && a.Ecosystem.Equal(b.Ecosystem) {
		na := m.rules.NormalizeName(a.Name, a.Ecosystem)
		nb := m.rules.NormalizeName(b.Name, b.Ecosystem)
		if na == nb {
			return Result{
				Score: 0.90,
				Tier:  TierEcosystemRule,
				Metadata: Metadata{
					MatchedFields: []string{"name", "ecosystem"},
					Normalization: a.Ecosystem.String() + "_normalization",
				},
			}
		}
	}

	// Tier 4: multi-field (if configured) else legacy fuzzy string score.
	if m.cfg.FieldWeights != nil {
		mf := ComputeMultiField(a, b, *m.cfg.FieldWeights)
		if mf.Total >= m.cfg.Threshold {
			return Result{
				Score: mf.Total,
				Tier:  TierFuzzy,
				Metadata: Metadata{
					MatchedFields: []string{"multi-field"},
					Normalization: "multi_field_weighted",
					MultiField:    &mf,
				},
			}
		}
		return NoMatch()
	}

	score := m.legacyFuzzyScore(a, b)
	if score >= m.cfg.Threshold {
		return Result{
			Score: score,
			Tier:  TierFuzzy,
			Metadata: Metadata{
				MatchedFields: []string{"name"},
				Normalization: "fuzzy_similarity",
			},
		}
	}
	return NoMatch()
}

// legacyFuzzyScore combines Jaro-Winkler and Levenshtein by the configured
// weights, takes the max against token-Jaccard and weighted phonetic
// similarity, and adds the version-similarity boost (spec §4.E).
func (m *FuzzyMatcher) legacyFuzzyScore(a, b *model.Component) float64 {
	na := strings.ToLower(a.Name)
	nb := strings.ToLower(b.Name)

	jw := jaroWinklerSimilarity(na, nb)
	lev := levenshteinSimilarity(na, nb)
	charScore := jw*m.cfg.JaroWinklerWeight + lev*m.cfg.LevenshteinWeight

	token := tokenJaccardSimilarity(na, nb)
	phonetic := phoneticSimilarity(na, nb) * 0.85

	combined := charScore
	if token > combined {
		combined = token
	}
	if phonetic > combined {
		combined = phonetic
	}

	boost := versionSimilarityBoost(a.Version, b.Version)
	return clamp01(combined + boost)
}
