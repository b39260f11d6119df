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
)

// MultiFieldScoreResult is the per-field breakdown produced by
// ComputeMultiField, retained on a Result for explainability (spec §4.E).
type MultiFieldScoreResult struct {
	NameScore      float64
	VersionScore   float64
	EcosystemScore float64
	LicenseScore   float64
	SupplierScore  float64
	GroupScore     float64
	Penalty        float64
	Total          float64
}

// ComputeMultiField blends six weighted signals into a single score in
// [0, 1]: name (character + token similarity), version (graduated semver
// divergence), ecosystem (equality with a mismatch penalty), license
// overlap, supplier name similarity, and group/namespace equality.
func ComputeMultiField(a, b *model.Component, w FieldWeights) MultiFieldScoreResult {
	na := strings.ToLower(a.Name)
	nb := strings.ToLower(b.Name)
	nameScore := maxF(
		jaroWinklerSimilarity(na, nb)*0.6+levenshteinSimilarity(na, nb)*0.4,
		tokenJaccardSimilarity(na, nb),
	)

	versionScore := 0.5
	if w.VersionDivergenceEnabled {
		versionScore = versionDivergenceScore(a.Version, b.Version, w)
	} else if a.Version == "" && b.Version == "" {
		versionScore = 0.5
	} else if a.Version == "" || b.Version == "" {
		versionScore = 0.0
	} else if a.Version == b.Version {
		versionScore = 1.0
	} else {
		versionScore = 0.0
	}

	ecosystemScore := 0.5
	penalty := 0.0
	if !a.Ecosystem.IsZero() && !b.Ecosystem.IsZero() {
		if a.Ecosystem.Equal(b.Ecosystem) {
			ecosystemScore = 1.0
		} else {
			ecosystemScore = 0.0
			penalty += w.EcosystemMismatchPenalty
		}
	}

	licenseScore := licenseOverlapScore(a, b)
	supplierScore := supplierSimilarity(a, b)
	groupScore := groupScore(a, b)

	total := w.Name*nameScore +
		w.Version*versionScore +
		w.Ecosystem*ecosystemScore +
		w.Licenses*licenseScore +
		w.Supplier*supplierScore +
		w.Group*groupScore +
		penalty

	return MultiFieldScoreResult{
		NameScore:      nameScore,
		VersionScore:   versionScore,
		EcosystemScore: ecosystemScore,
		LicenseScore:   licenseScore,
		SupplierScore:  supplierScore,
		GroupScore:     groupScore,
		Penalty:        penalty,
		Total:          clamp01(total),
	}
}

func licenseOverlapScore(a, b *model.Component) float64 {
	sa := licenseSet(a)
	sb := licenseSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 0.5
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0.0
	}
	inter := 0
	for l := range sa {
		if sb[l] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0.5
	}
	return float64(inter) / float64(union)
}

func licenseSet(c *model.Component) map[string]bool {
	out := make(map[string]bool)
	for _, l := range c.Licenses.Declared {
		out[strings.ToLower(l.Text)] = true
	}
	if c.Licenses.Concluded != nil {
		out[strings.ToLower(c.Licenses.Concluded.Text)] = true
	}
	return out
}

func supplierSimilarity(a, b *model.Component) float64 {
	aMissing := a.Supplier == nil || strings.TrimSpace(a.Supplier.Name) == ""
	bMissing := b.Supplier == nil || strings.TrimSpace(b.Supplier.Name) == ""
	if aMissing && bMissing {
		return 0.5
	}
	if aMissing || bMissing {
		return 0.0
	}
	sa := strings.ToLower(strings.TrimSpace(a.Supplier.Name))
	sb := strings.ToLower(strings.TrimSpace(b.Supplier.Name))
	if sa == sb {
		return 1.0
	}
	return jaroWinklerSimilarity(sa, sb)
}

func groupScore(a, b *model.Component) float64 {
	if a.Group == "" && b.Group == "" {
		return 0.5
	}
	if a.Group == "" || b.Group == "" {
		return 0.0
	}
	if strings.EqualFold(a.Group, b.Group) {
		return 1.0
	}
	return 0.0
}
