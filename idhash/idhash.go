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

// Package idhash derives stable CanonicalIds for components and computes
// the deterministic xxh3-class content hash used for SBOM-level identity
// and cache invalidation (spec §4.D).
package idhash

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/sbomlens/sbomlens/model"
	"github.com/sbomlens/sbomlens/purl"
)

// ComponentID derives the CanonicalId for a component following the
// priority order in §4.D: normalized PURL, then name+version+ecosystem+
// group tuple, then the parser-local id (normalized and, failing that, a
// fresh synthetic token so every component still gets a stable-for-this-run
// identity).
func ComponentID(name, version, group string, eco model.Ecosystem, identifiers model.Identifiers, parserLocalID string) model.CanonicalId {
	if identifiers.Purl != "" {
		return model.CanonicalId("purl:" + purl.Normalize(identifiers.Purl))
	}
	if name != "" {
		tuple := fmt.Sprintf("tuple:%s|%s|%s|%s",
			strings.ToLower(group), strings.ToLower(name), strings.ToLower(version), eco.String())
		return model.CanonicalId(tuple)
	}
	if parserLocalID != "" {
		return model.CanonicalId("local:" + normalizeLocalID(parserLocalID))
	}
	return model.CanonicalId("gen:" + uuid.New().String())
}

func normalizeLocalID(id string) string {
	id = strings.TrimPrefix(id, "SPDXRef-")
	id = strings.TrimPrefix(id, "bomref:")
	return strings.ToLower(id)
}

// InfoScore is a rough measure of "how much is known" about a component,
// used to decide which of two components claiming the same CanonicalId is
// kept (§4.D: "replaces the prior entry only if the new entry has strictly
// more information; ties preserve the first").
func InfoScore(c *model.Component) int {
	score := 0
	if c.Version != "" {
		score++
	}
	if c.Group != "" {
		score++
	}
	if c.Identifiers.Purl != "" {
		score++
	}
	score += len(c.Identifiers.CPEs)
	score += len(c.Identifiers.Aliases)
	score += len(c.Licenses.Declared)
	if c.Licenses.Concluded != nil {
		score++
	}
	if c.Supplier != nil {
		score++
	}
	score += len(c.Hashes)
	score += len(c.ExternalRefs)
	score += len(c.Properties)
	score += len(c.Vulnerabilities)
	if !c.Ecosystem.IsZero() {
		score++
	}
	return score
}

// MoreInformative implements the tie-break rule used by
// model.NormalizedSbom.AddComponent.
func MoreInformative(newC, old *model.Component) bool {
	return InfoScore(newC) > InfoScore(old)
}

// CollisionSummary is the diagnostics-facing rollup of CanonicalId
// collisions recorded while building a NormalizedSbom (§4.D: "The collision
// summary is exposed for diagnostics").
type CollisionSummary struct {
	Total      int
	ByID       map[model.CanonicalId]int
}

// Summarize aggregates the raw per-collision records into a CollisionSummary.
func Summarize(collisions []model.Collision) CollisionSummary {
	s := CollisionSummary{ByID: make(map[model.CanonicalId]int)}
	for _, c := range collisions {
		s.Total++
		s.ByID[c.ID]++
	}
	return s
}

// ContentHash computes the deterministic xxh3-class digest of a
// NormalizedSbom's normalized fields: format, zeroed-timestamp document
// metadata, components sorted by canonical id, and edges sorted by
// (from, to, kind). Anything not part of the normalized form (raw parser
// text, locations, etc.) is excluded, and field order never depends on
// parse order so re-serializing and re-parsing an equivalent document
// yields the same hash (§8 invariant 2).
func ContentHash(s *model.NormalizedSbom) uint64 {
	var b strings.Builder
	writeDocumentMeta(&b, s.Document)

	comps := s.Components()
	ids := make([]model.CanonicalId, 0, len(comps))
	byID := make(map[model.CanonicalId]*model.Component, len(comps))
	for _, c := range comps {
		ids = append(ids, c.CanonicalID)
		byID[c.CanonicalID] = c
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		writeComponent(&b, byID[id])
	}

	type edgeKey struct {
		from, to model.CanonicalId
		kind     model.EdgeKind
	}
	edges := append([]model.DependencyEdge(nil), s.Edges...)
	sort.Slice(edges, func(i, j int) bool {
		a, c := edges[i], edges[j]
		if a.From != c.From {
			return a.From < c.From
		}
		if a.To != c.To {
			return a.To < c.To
		}
		return a.Kind < c.Kind
	})
	for _, e := range edges {
		fmt.Fprintf(&b, "E|%s|%s|%s\n", e.From, e.To, e.Kind)
	}
	if s.PrimaryComponentID != "" {
		fmt.Fprintf(&b, "P|%s\n", s.PrimaryComponentID)
	}

	return xxhash.Sum64String(b.String())
}

func writeDocumentMeta(b *strings.Builder, d model.DocumentMeta) {
	fmt.Fprintf(b, "D|%s|%s|%s|%s\n", d.Format, d.FormatVersion, d.SerialNumber, d.Name)
	names := make([]string, 0, len(d.Creators))
	for _, c := range d.Creators {
		names = append(names, fmt.Sprintf("%d:%s", c.Kind, c.Name))
	}
	sort.Strings(names)
	fmt.Fprintf(b, "C|%s\n", strings.Join(names, ","))
}

func writeComponent(b *strings.Builder, c *model.Component) {
	fmt.Fprintf(b, "CMP|%s|%s|%s|%s|%s|%s\n",
		c.CanonicalID, c.Name, c.Version, c.Group, c.ComponentType.String(), c.Ecosystem.String())
	fmt.Fprintf(b, "ID|%s|%s|%s\n", c.Identifiers.Purl, strings.Join(sortedCopy(c.Identifiers.CPEs), ","), strings.Join(sortedCopy(c.Identifiers.Aliases), ","))

	lic := make([]string, 0, len(c.Licenses.Declared))
	for _, l := range c.Licenses.Declared {
		lic = append(lic, l.Text)
	}
	sort.Strings(lic)
	concluded := ""
	if c.Licenses.Concluded != nil {
		concluded = c.Licenses.Concluded.Text
	}
	fmt.Fprintf(b, "LIC|%s|%s\n", strings.Join(lic, ","), concluded)

	if c.Supplier != nil {
		fmt.Fprintf(b, "SUP|%s\n", c.Supplier.Name)
	}

	hashes := make([]string, 0, len(c.Hashes))
	for _, h := range c.Hashes {
		hashes = append(hashes, h.Algorithm+":"+h.HexDigest)
	}
	sort.Strings(hashes)
	fmt.Fprintf(b, "HSH|%s\n", strings.Join(hashes, ","))

	refs := make([]string, 0, len(c.ExternalRefs))
	for _, r := range c.ExternalRefs {
		refs = append(refs, r.Type.String()+":"+r.URL)
	}
	sort.Strings(refs)
	fmt.Fprintf(b, "REF|%s\n", strings.Join(refs, ","))

	props := make([]string, 0, len(c.Properties))
	for _, p := range c.Properties {
		props = append(props, p.Name+"="+p.Value)
	}
	sort.Strings(props)
	fmt.Fprintf(b, "PROP|%s\n", strings.Join(props, ","))

	vulns := make([]string, 0, len(c.Vulnerabilities))
	for _, v := range c.Vulnerabilities {
		vulns = append(vulns, v.ID)
	}
	sort.Strings(vulns)
	fmt.Fprintf(b, "VULN|%s\n", strings.Join(vulns, ","))
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
