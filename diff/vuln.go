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

import "github.com/sbomlens/sbomlens/model"

// vulnerabilityDiff computes introduced/resolved vulnerability sets for
// every matched pair and every added component (spec §4.F.3): introduced
// vulnerabilities appear in new-or-added but not old; resolved is the
// inverse for matched pairs only (an added component has nothing to
// resolve against).
func vulnerabilityDiff(pairs []pairing, added []*model.Component) []VulnerabilityDelta {
	var deltas []VulnerabilityDelta

	for _, p := range pairs {
		oldSet := vulnSetByID(p.old.Vulnerabilities)
		newSet := vulnSetByID(p.new.Vulnerabilities)

		var introduced, resolved []model.VulnerabilityRef
		for id, v := range newSet {
			if _, ok := oldSet[id]; !ok {
				introduced = append(introduced, v)
			}
		}
		for id, v := range oldSet {
			if _, ok := newSet[id]; !ok {
				resolved = append(resolved, v)
			}
		}
		if len(introduced) == 0 && len(resolved) == 0 {
			continue
		}
		deltas = append(deltas, VulnerabilityDelta{
			ComponentID:   p.new.CanonicalID,
			ComponentName: p.new.Name,
			Introduced:    introduced,
			Resolved:      resolved,
		})
	}

	for _, c := range added {
		if len(c.Vulnerabilities) == 0 {
			continue
		}
		deltas = append(deltas, VulnerabilityDelta{
			ComponentID:   c.CanonicalID,
			ComponentName: c.Name,
			Introduced:    append([]model.VulnerabilityRef(nil), c.Vulnerabilities...),
		})
	}

	return deltas
}

func vulnSetByID(vulns []model.VulnerabilityRef) map[string]model.VulnerabilityRef {
	m := make(map[string]model.VulnerabilityRef, len(vulns))
	for _, v := range vulns {
		m[v.ID] = v
	}
	return m
}

// licenseDiff computes added/removed license expressions for every matched
// pair (spec §4.F.4), comparing the declared-license sets by text.
func licenseDiff(pairs []pairing) []LicenseDelta {
	var deltas []LicenseDelta
	for _, p := range pairs {
		oldSet := licenseSetByText(p.old.Licenses.Declared)
		newSet := licenseSetByText(p.new.Licenses.Declared)

		var added, removed []model.LicenseExpression
		for text, l := range newSet {
			if _, ok := oldSet[text]; !ok {
				added = append(added, l)
			}
		}
		for text, l := range oldSet {
			if _, ok := newSet[text]; !ok {
				removed = append(removed, l)
			}
		}
		if len(added) == 0 && len(removed) == 0 {
			continue
		}
		deltas = append(deltas, LicenseDelta{
			ComponentID:   p.new.CanonicalID,
			ComponentName: p.new.Name,
			Added:         added,
			Removed:       removed,
		})
	}
	return deltas
}

func licenseSetByText(exprs []model.LicenseExpression) map[string]model.LicenseExpression {
	m := make(map[string]model.LicenseExpression, len(exprs))
	for _, e := range exprs {
		m[e.Text] = e
	}
	return m
}

// FilterBySeverity removes vulnerability delta entries below min from both
// the introduced and resolved lists in place, dropping a delta entirely
// once both lists are empty (spec §4.F filters).
func (r *Result) FilterBySeverity(min model.Severity) {
	filtered := r.Vulnerabilities[:0]
	for _, d := range r.Vulnerabilities {
		d.Introduced = filterSeverity(d.Introduced, min)
		d.Resolved = filterSeverity(d.Resolved, min)
		if len(d.Introduced) == 0 && len(d.Resolved) == 0 {
			continue
		}
		filtered = append(filtered, d)
	}
	r.Vulnerabilities = filtered
}

func filterSeverity(vulns []model.VulnerabilityRef, min model.Severity) []model.VulnerabilityRef {
	out := vulns[:0]
	for _, v := range vulns {
		if severityOf(v) >= min {
			out = append(out, v)
		}
	}
	return out
}

// FilterByVex drops vulnerabilities whose VEX status is not_affected or
// fixed from both introduced and resolved lists in place.
func (r *Result) FilterByVex() {
	filtered := r.Vulnerabilities[:0]
	for _, d := range r.Vulnerabilities {
		d.Introduced = filterVexResolved(d.Introduced)
		d.Resolved = filterVexResolved(d.Resolved)
		if len(d.Introduced) == 0 && len(d.Resolved) == 0 {
			continue
		}
		filtered = append(filtered, d)
	}
	r.Vulnerabilities = filtered
}

func filterVexResolved(vulns []model.VulnerabilityRef) []model.VulnerabilityRef {
	out := vulns[:0]
	for _, v := range vulns {
		if v.VexStatus != nil && (*v.VexStatus == model.VexStatusNotAffected || *v.VexStatus == model.VexStatusFixed) {
			continue
		}
		out = append(out, v)
	}
	return out
}
