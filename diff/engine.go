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

package diff

import (
	"sort"

	"github.com/sbomlens/sbomlens/match"
	"github.com/sbomlens/sbomlens/model"
)

// Engine computes diffs between NormalizedSbom documents using a builder
// configuration, mirroring the original's DiffEngine::new().with_*() chain.
type Engine struct {
	matcher          match.Matcher
	includeUnchanged bool
	graphCfg         *GraphDiffConfig
	rules            *match.RuleEngine
}

// New returns an Engine using the balanced preset matcher with no graph
// diffing and unchanged pairs omitted, matching the original's defaults.
func New() *Engine {
	return &Engine{
		matcher: match.New(match.DefaultConfig(), match.NewAliasTable(), nil),
	}
}

// WithMatcher overrides the matcher used to pair old and new components.
func (e *Engine) WithMatcher(m match.Matcher) *Engine {
	e.matcher = m
	return e
}

// IncludeUnchanged controls whether Result.Components.Unchanged is
// populated; omitted by default since it can dominate output size.
func (e *Engine) IncludeUnchanged(include bool) *Engine {
	e.includeUnchanged = include
	return e
}

// WithGraphDiff enables graph-aware diffing with the given configuration.
func (e *Engine) WithGraphDiff(cfg GraphDiffConfig) *Engine {
	e.graphCfg = &cfg
	return e
}

// WithRuleEngine attaches a declarative rule engine whose exclusions are
// applied before pairwise matching: components whose PURL is excluded by an
// exact, glob or regex exclusion rule (RuleEngine.IsExcluded) are dropped.
// Exclusions keyed only on ecosystem/name are not applied here, and the
// engine's equivalence groups are not consulted.
func (e *Engine) WithRuleEngine(r *match.RuleEngine) *Engine {
	e.rules = r
	return e
}

// Diff computes the pairwise diff between old and new.
func (e *Engine) Diff(oldSbom, newSbom *model.NormalizedSbom) (*Result, error) {
	oldComponents := filterExcluded(oldSbom.Components(), e.rules)
	newComponents := filterExcluded(newSbom.Components(), e.rules)

	pairs, unmatchedOld, unmatchedNew := e.pairComponents(oldComponents, newComponents)

	res := &Result{}
	for _, c := range unmatchedOld {
		res.Components.Removed = append(res.Components.Removed, c)
	}
	for _, c := range unmatchedNew {
		res.Components.Added = append(res.Components.Added, c)
	}

	for _, p := range pairs {
		changes := fieldChanges(p.old, p.new)
		if len(changes) == 0 {
			if e.includeUnchanged {
				res.Components.Unchanged = append(res.Components.Unchanged, p.new)
			}
			continue
		}
		res.Components.Modified = append(res.Components.Modified, ComponentChange{
			Name:      p.new.Name,
			OldID:     p.old.CanonicalID,
			NewID:     p.new.CanonicalID,
			Old:       p.old,
			New:       p.new,
			Changes:   changes,
			MatchInfo: matchInfoFrom(p.result),
		})
	}

	res.Vulnerabilities = vulnerabilityDiff(pairs, unmatchedNew)
	res.Licenses = licenseDiff(pairs)

	if e.graphCfg != nil {
		res.GraphSummary = diffGraph(oldSbom, newSbom, pairs, *e.graphCfg)
	}

	res.Summary = Summary{
		AddedCount:     len(res.Components.Added),
		RemovedCount:   len(res.Components.Removed),
		ModifiedCount:  len(res.Components.Modified),
		UnchangedCount: len(res.Components.Unchanged),
	}
	res.Summary.TotalChanges = res.Summary.AddedCount + res.Summary.RemovedCount + res.Summary.ModifiedCount

	res.SemanticScore = computeSemanticScore(res, len(oldComponents))

	return res, nil
}

func filterExcluded(components []*model.Component, rules *match.RuleEngine) []*model.Component {
	if rules == nil {
		return components
	}
	out := make([]*model.Component, 0, len(components))
	for _, c := range components {
		if rules.IsExcluded(c.Identifiers.Purl) {
			continue
		}
		out = append(out, c)
	}
	return out
}

type pairing struct {
	old    *model.Component
	new    *model.Component
	result match.Result
}

// pairComponents greedily pairs each old component with its best-scoring
// unclaimed new component above the matcher's threshold. Ties on score are
// broken by the lexicographically smallest canonical id (spec §4.F).
func (e *Engine) pairComponents(oldComponents, newComponents []*model.Component) (pairs []pairing, unmatchedOld, unmatchedNew []*model.Component) {
	claimed := make(map[model.CanonicalId]bool, len(newComponents))
	threshold := e.matcher.Threshold()

	// Process old components in canonical-id order so pairing is
	// deterministic and independent of slice iteration order.
	ordered := make([]*model.Component, len(oldComponents))
	copy(ordered, oldComponents)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].CanonicalID < ordered[j].CanonicalID })

	for _, o := range ordered {
		var best *model.Component
		var bestResult match.Result
		for _, n := range newComponents {
			if claimed[n.CanonicalID] {
				continue
			}
			r := e.matcher.MatchDetailed(o, n)
			if r.Score < threshold {
				continue
			}
			if best == nil || r.Score > bestResult.Score ||
				(r.Score == bestResult.Score && n.CanonicalID < best.CanonicalID) {
				best = n
				bestResult = r
			}
		}
		if best == nil {
			unmatchedOld = append(unmatchedOld, o)
			continue
		}
		claimed[best.CanonicalID] = true
		pairs = append(pairs, pairing{old: o, new: best, result: bestResult})
	}

	for _, n := range newComponents {
		if !claimed[n.CanonicalID] {
			unmatchedNew = append(unmatchedNew, n)
		}
	}
	return pairs, unmatchedOld, unmatchedNew
}

func matchInfoFrom(r match.Result) *MatchInfo {
	if r.Tier == match.TierNoMatch {
		return nil
	}
	info := &MatchInfo{
		Score:          r.Score,
		Method:         r.Tier,
		Reason:         r.Tier.String(),
		Normalizations: []string{r.Metadata.Normalization},
	}
	if r.Metadata.MultiField != nil {
		mf := r.Metadata.MultiField
		info.ScoreBreakdown = []ScoreBreakdown{
			{Name: "name", RawScore: mf.NameScore},
			{Name: "version", RawScore: mf.VersionScore},
			{Name: "ecosystem", RawScore: mf.EcosystemScore},
			{Name: "licenses", RawScore: mf.LicenseScore},
			{Name: "supplier", RawScore: mf.SupplierScore},
			{Name: "group", RawScore: mf.GroupScore},
		}
	}
	return info
}

// fieldChanges compares a matched pair across every facet named in spec
// §4.F.2 and returns the list of differences, empty if the pair is
// unchanged.
func fieldChanges(a, b *model.Component) []FieldChange {
	var changes []FieldChange
	if a.Version != b.Version {
		changes = append(changes, FieldChange{Field: FieldVersion, Old: a.Version, New: b.Version})
	}
	if licenseSetString(a.Licenses) != licenseSetString(b.Licenses) {
		changes = append(changes, FieldChange{Field: FieldLicenses, Old: licenseSetString(a.Licenses), New: licenseSetString(b.Licenses)})
	}
	if supplierName(a.Supplier) != supplierName(b.Supplier) {
		changes = append(changes, FieldChange{Field: FieldSupplier, Old: supplierName(a.Supplier), New: supplierName(b.Supplier)})
	}
	if hashSetString(a.Hashes) != hashSetString(b.Hashes) {
		changes = append(changes, FieldChange{Field: FieldHashes, Old: hashSetString(a.Hashes), New: hashSetString(b.Hashes)})
	}
	if !a.Ecosystem.Equal(b.Ecosystem) {
		changes = append(changes, FieldChange{Field: FieldEcosystem, Old: a.Ecosystem.String(), New: b.Ecosystem.String()})
	}
	if a.Group != b.Group {
		changes = append(changes, FieldChange{Field: FieldGroup, Old: a.Group, New: b.Group})
	}
	if propertySetString(a.Properties) != propertySetString(b.Properties) {
		changes = append(changes, FieldChange{Field: FieldProperties, Old: propertySetString(a.Properties), New: propertySetString(b.Properties)})
	}
	if externalRefSetString(a.ExternalRefs) != externalRefSetString(b.ExternalRefs) {
		changes = append(changes, FieldChange{Field: FieldExternalRefs, Old: externalRefSetString(a.ExternalRefs), New: externalRefSetString(b.ExternalRefs)})
	}
	return changes
}

func supplierName(o *model.Organization) string {
	if o == nil {
		return ""
	}
	return o.Name
}

func licenseSetString(l model.Licenses) string {
	names := make([]string, 0, len(l.Declared))
	for _, d := range l.Declared {
		names = append(names, d.Text)
	}
	sort.Strings(names)
	s := joinSorted(names)
	if l.Concluded != nil {
		s += "|concluded:" + l.Concluded.Text
	}
	return s
}

func hashSetString(hashes []model.Hash) string {
	parts := make([]string, 0, len(hashes))
	for _, h := range hashes {
		parts = append(parts, h.Algorithm+":"+h.HexDigest)
	}
	sort.Strings(parts)
	return joinSorted(parts)
}

func propertySetString(props []model.Property) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, p.Name+"="+p.Value)
	}
	sort.Strings(parts)
	return joinSorted(parts)
}

func externalRefSetString(refs []model.ExternalRef) string {
	parts := make([]string, 0, len(refs))
	for _, r := range refs {
		parts = append(parts, r.Type.String()+":"+r.URL)
	}
	sort.Strings(parts)
	return joinSorted(parts)
}

func joinSorted(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func computeSemanticScore(res *Result, oldTotal int) float64 {
	if oldTotal == 0 && res.Summary.TotalChanges == 0 {
		return 0.0
	}

	denom := oldTotal
	if denom == 0 {
		denom = res.Summary.TotalChanges
	}
	if denom == 0 {
		return 0.0
	}
	fractionChanged := float64(res.Summary.ModifiedCount+res.Summary.RemovedCount) / float64(denom)

	var vulnScore float64
	for _, v := range res.Vulnerabilities {
		for _, intro := range v.Introduced {
			vulnScore += severityWeight(severityOf(intro))
		}
		for _, resolved := range v.Resolved {
			vulnScore -= severityWeight(severityOf(resolved)) * 0.5
		}
	}
	if vulnScore < 0 {
		vulnScore = 0
	}

	var licenseDrift float64
	for _, l := range res.Licenses {
		for _, a := range l.Added {
			licenseDrift += licenseRiskWeight(a.Family)
		}
	}

	score := fractionChanged*60.0 + clampScore(vulnScore)*30.0/10.0 + clampScore(licenseDrift)*10.0/10.0
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func clampScore(v float64) float64 {
	if v > 10 {
		return 10
	}
	return v
}

func severityOf(v model.VulnerabilityRef) model.Severity {
	if v.Severity == nil {
		return model.SeverityNone
	}
	return *v.Severity
}
