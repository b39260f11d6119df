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

// Package diff computes semantic differences between two or more
// NormalizedSbom documents: pairwise added/removed/modified/unchanged
// partitioning, vulnerability and license deltas, optional graph-aware
// reparenting/depth analysis, and N-ary modes (multi-diff, timeline,
// similarity matrix with clustering).
package diff

import (
	"github.com/sbomlens/sbomlens/match"
	"github.com/sbomlens/sbomlens/model"
)

// FieldChangeKind names which facet of a component changed between a
// matched pair.
type FieldChangeKind int

// FieldChangeKind values.
const (
	FieldVersion FieldChangeKind = iota
	FieldLicenses
	FieldSupplier
	FieldHashes
	FieldEcosystem
	FieldGroup
	FieldProperties
	FieldExternalRefs
)

func (k FieldChangeKind) String() string {
	switch k {
	case FieldVersion:
		return "version"
	case FieldLicenses:
		return "licenses"
	case FieldSupplier:
		return "supplier"
	case FieldHashes:
		return "hashes"
	case FieldEcosystem:
		return "ecosystem"
	case FieldGroup:
		return "group"
	case FieldProperties:
		return "properties"
	case FieldExternalRefs:
		return "external_refs"
	default:
		return "unknown"
	}
}

// FieldChange records one changed facet of a matched component pair.
type FieldChange struct {
	Field FieldChangeKind
	Old   string
	New   string
}

// ScoreBreakdown is one weighted signal contributing to a multi-field match
// score, surfaced for explainability.
type ScoreBreakdown struct {
	Name          string
	RawScore      float64
	Weight        float64
	WeightedScore float64
}

// MatchInfo records why two components were paired, for auditing and for
// the "explain matches" diagnostic path.
type MatchInfo struct {
	Score           float64
	Method          match.Tier
	Reason          string
	ScoreBreakdown  []ScoreBreakdown
	Normalizations  []string
}

// ComponentChange is one matched-and-modified component pair.
type ComponentChange struct {
	Name      string
	OldID     model.CanonicalId
	NewID     model.CanonicalId
	Old       *model.Component
	New       *model.Component
	Changes   []FieldChange
	MatchInfo *MatchInfo
}

// VulnerabilityDelta records vulnerabilities introduced or resolved for one
// component across a diff.
type VulnerabilityDelta struct {
	ComponentID   model.CanonicalId
	ComponentName string
	Introduced    []model.VulnerabilityRef
	Resolved      []model.VulnerabilityRef
}

// LicenseDelta records license expressions added or removed for one
// component across a diff.
type LicenseDelta struct {
	ComponentID   model.CanonicalId
	ComponentName string
	Added         []model.LicenseExpression
	Removed       []model.LicenseExpression
}

// ComponentSet partitions components by their diff classification.
type ComponentSet struct {
	Added     []*model.Component
	Removed   []*model.Component
	Modified  []ComponentChange
	Unchanged []*model.Component
}

// Summary is the headline counts for a diff result.
type Summary struct {
	AddedCount     int
	RemovedCount   int
	ModifiedCount  int
	UnchangedCount int
	TotalChanges   int
}

// GraphDiffConfig enables and tunes graph-aware diffing (spec §4.F.5).
type GraphDiffConfig struct {
	DetectReparenting  bool
	DetectDepthChanges bool
	MaxDepth           int // 0 = unlimited
}

// ReparentedComponent records that a component's parent set changed.
type ReparentedComponent struct {
	ComponentID  model.CanonicalId
	OldParents   []model.CanonicalId
	NewParents   []model.CanonicalId
}

// DepthChange records that a component's shortest-path distance from the
// primary component changed.
type DepthChange struct {
	ComponentID model.CanonicalId
	OldDepth    int
	NewDepth    int // -1 if unreachable in the new graph
}

// GraphSummary is the result of graph-aware diffing.
type GraphSummary struct {
	TotalChanges         int
	DependenciesAdded    int
	DependenciesRemoved  int
	Reparented           []ReparentedComponent
	DepthChanged         []DepthChange
}

// Result is the full output of a pairwise diff.
type Result struct {
	Summary      Summary
	Components   ComponentSet
	Vulnerabilities []VulnerabilityDelta
	Licenses     []LicenseDelta
	GraphSummary *GraphSummary
	SemanticScore float64
}

// severityWeight assigns the severity-delta weighting used by SemanticScore
// (spec §4.F.6): more severe vulnerabilities move the score more.
func severityWeight(s model.Severity) float64 {
	switch s {
	case model.SeverityCritical:
		return 4.0
	case model.SeverityHigh:
		return 3.0
	case model.SeverityMedium:
		return 2.0
	case model.SeverityLow:
		return 1.0
	default:
		return 0.5
	}
}

// licenseRiskWeight assigns the risk weight used by the license-drift term
// of SemanticScore.
func licenseRiskWeight(f model.LicenseFamily) float64 {
	switch f {
	case model.LicenseFamilyCopyleft:
		return 3.0
	case model.LicenseFamilyWeakCopyleft:
		return 2.0
	case model.LicenseFamilyProprietary:
		return 2.0
	case model.LicenseFamilyUnknown:
		return 1.0
	default: // Permissive, PublicDomain
		return 0.2
	}
}
