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

package diff_test

import (
	"testing"

	"github.com/sbomlens/sbomlens/diff"
	"github.com/sbomlens/sbomlens/model"
)

func sbomOf(components ...*model.Component) *model.NormalizedSbom {
	s := model.New(model.DocumentMeta{Format: "CycloneDX", FormatVersion: "1.5"})
	for _, c := range components {
		s.AddComponent(c, nil)
	}
	return s
}

func comp(id, name, version string, eco model.Ecosystem, purl string) *model.Component {
	return &model.Component{
		CanonicalID: model.CanonicalId(id),
		Name:        name,
		Version:     version,
		Ecosystem:   eco,
		Identifiers: model.Identifiers{Purl: purl},
	}
}

// E1: exact PURL match on both sides diffs to an empty result.
func TestDiffExactMatchIsUnchanged(t *testing.T) {
	lodashOld := comp("lodash@4.17.21", "lodash", "4.17.21", model.EcosystemNpm, "pkg:npm/lodash@4.17.21")
	lodashNew := comp("lodash@4.17.21-new", "lodash", "4.17.21", model.EcosystemNpm, "pkg:npm/lodash@4.17.21")

	old := sbomOf(lodashOld)
	new := sbomOf(lodashNew)

	res, err := diff.New().Diff(old, new)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(res.Components.Added) != 0 || len(res.Components.Removed) != 0 || len(res.Components.Modified) != 0 {
		t.Fatalf("expected no added/removed/modified, got %+v", res.Summary)
	}
	if res.SemanticScore != 0 {
		t.Errorf("SemanticScore = %v, want 0", res.SemanticScore)
	}
}

// Diffing a document against itself must be empty per spec invariant 4.
func TestDiffSelfIsEmpty(t *testing.T) {
	c := comp("express@4.18.0", "express", "4.18.0", model.EcosystemNpm, "pkg:npm/express@4.18.0")
	s := sbomOf(c)

	res, err := diff.New().Diff(s, s)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if res.Summary.TotalChanges != 0 {
		t.Errorf("TotalChanges = %d, want 0", res.Summary.TotalChanges)
	}
	if res.SemanticScore != 0.0 {
		t.Errorf("SemanticScore = %v, want 0.0", res.SemanticScore)
	}
}

// E3: version bump on a matched pair surfaces as a modified entry with a
// version field change and a positive semantic score.
func TestDiffVersionBumpIsModified(t *testing.T) {
	oldC := comp("lodash@4.17.20", "lodash", "4.17.20", model.EcosystemNpm, "pkg:npm/lodash@4.17.20")
	newC := comp("lodash@4.17.21", "lodash", "4.17.21", model.EcosystemNpm, "pkg:npm/lodash@4.17.21")

	old := sbomOf(oldC)
	new := sbomOf(newC)

	res, err := diff.New().Diff(old, new)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(res.Components.Modified) != 1 {
		t.Fatalf("len(Modified) = %d, want 1", len(res.Components.Modified))
	}
	mod := res.Components.Modified[0]
	foundVersion := false
	for _, fc := range mod.Changes {
		if fc.Field == diff.FieldVersion {
			foundVersion = true
			if fc.Old != "4.17.20" || fc.New != "4.17.21" {
				t.Errorf("version change = %q -> %q, want 4.17.20 -> 4.17.21", fc.Old, fc.New)
			}
		}
	}
	if !foundVersion {
		t.Error("expected a version field change")
	}
	if res.SemanticScore <= 0 {
		t.Errorf("SemanticScore = %v, want > 0", res.SemanticScore)
	}
}

func TestDiffAddedAndRemoved(t *testing.T) {
	kept := comp("react@18.0.0", "react", "18.0.0", model.EcosystemNpm, "pkg:npm/react@18.0.0")
	removed := comp("webpack@5.0.0", "webpack", "5.0.0", model.EcosystemNpm, "pkg:npm/webpack@5.0.0")
	added := comp("vite@4.0.0", "vite", "4.0.0", model.EcosystemNpm, "pkg:npm/vite@4.0.0")

	old := sbomOf(kept, removed)
	new := sbomOf(kept, added)

	res, err := diff.New().Diff(old, new)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(res.Components.Added) != 1 || res.Components.Added[0].Name != "vite" {
		t.Errorf("Added = %+v, want [vite]", res.Components.Added)
	}
	if len(res.Components.Removed) != 1 || res.Components.Removed[0].Name != "webpack" {
		t.Errorf("Removed = %+v, want [webpack]", res.Components.Removed)
	}
}

func TestDiffVulnerabilityIntroducedAndResolved(t *testing.T) {
	sevHigh := model.SeverityHigh
	sevLow := model.SeverityLow

	oldC := comp("pkg@1.0.0", "pkg", "1.0.0", model.EcosystemNpm, "pkg:npm/pkg@1.0.0")
	oldC.Vulnerabilities = []model.VulnerabilityRef{{ID: "CVE-2023-0001", Severity: &sevLow}}

	newC := comp("pkg@1.0.1", "pkg", "1.0.1", model.EcosystemNpm, "pkg:npm/pkg@1.0.1")
	newC.Vulnerabilities = []model.VulnerabilityRef{{ID: "CVE-2024-0002", Severity: &sevHigh}}

	old := sbomOf(oldC)
	new := sbomOf(newC)

	res, err := diff.New().Diff(old, new)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(res.Vulnerabilities) != 1 {
		t.Fatalf("len(Vulnerabilities) = %d, want 1", len(res.Vulnerabilities))
	}
	d := res.Vulnerabilities[0]
	if len(d.Introduced) != 1 || d.Introduced[0].ID != "CVE-2024-0002" {
		t.Errorf("Introduced = %+v, want [CVE-2024-0002]", d.Introduced)
	}
	if len(d.Resolved) != 1 || d.Resolved[0].ID != "CVE-2023-0001" {
		t.Errorf("Resolved = %+v, want [CVE-2023-0001]", d.Resolved)
	}
}

func TestFilterBySeverityDropsLowerSeverity(t *testing.T) {
	sevHigh := model.SeverityHigh
	sevLow := model.SeverityLow
	res := &diff.Result{
		Vulnerabilities: []diff.VulnerabilityDelta{{
			ComponentName: "pkg",
			Introduced: []model.VulnerabilityRef{
				{ID: "CVE-high", Severity: &sevHigh},
				{ID: "CVE-low", Severity: &sevLow},
			},
		}},
	}
	res.FilterBySeverity(model.SeverityHigh)
	if len(res.Vulnerabilities) != 1 || len(res.Vulnerabilities[0].Introduced) != 1 || res.Vulnerabilities[0].Introduced[0].ID != "CVE-high" {
		t.Errorf("after filter = %+v, want only CVE-high", res.Vulnerabilities)
	}
}

func TestFilterByVexDropsResolvedStatuses(t *testing.T) {
	fixed := model.VexStatusFixed
	affected := model.VexStatusAffected
	res := &diff.Result{
		Vulnerabilities: []diff.VulnerabilityDelta{{
			ComponentName: "pkg",
			Introduced: []model.VulnerabilityRef{
				{ID: "CVE-fixed", VexStatus: &fixed},
				{ID: "CVE-affected", VexStatus: &affected},
			},
		}},
	}
	res.FilterByVex()
	if len(res.Vulnerabilities) != 1 || len(res.Vulnerabilities[0].Introduced) != 1 || res.Vulnerabilities[0].Introduced[0].ID != "CVE-affected" {
		t.Errorf("after filter = %+v, want only CVE-affected", res.Vulnerabilities)
	}
}

// Diff symmetry of counts (spec invariant 3): |diff(A,B).added| == |diff(B,A).removed|.
func TestDiffSymmetryOfCounts(t *testing.T) {
	kept := comp("react@18.0.0", "react", "18.0.0", model.EcosystemNpm, "pkg:npm/react@18.0.0")
	onlyInA := comp("webpack@5.0.0", "webpack", "5.0.0", model.EcosystemNpm, "pkg:npm/webpack@5.0.0")
	onlyInB := comp("vite@4.0.0", "vite", "4.0.0", model.EcosystemNpm, "pkg:npm/vite@4.0.0")

	a := sbomOf(kept, onlyInA)
	b := sbomOf(kept, onlyInB)

	ab, err := diff.New().Diff(a, b)
	if err != nil {
		t.Fatalf("Diff(a,b): %v", err)
	}
	ba, err := diff.New().Diff(b, a)
	if err != nil {
		t.Fatalf("Diff(b,a): %v", err)
	}
	if len(ab.Components.Added) != len(ba.Components.Removed) {
		t.Errorf("|diff(A,B).added|=%d != |diff(B,A).removed|=%d", len(ab.Components.Added), len(ba.Components.Removed))
	}
	if len(ab.Components.Removed) != len(ba.Components.Added) {
		t.Errorf("|diff(A,B).removed|=%d != |diff(B,A).added|=%d", len(ab.Components.Removed), len(ba.Components.Added))
	}
}
