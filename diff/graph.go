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

	"github.com/sbomlens/sbomlens/model"
)

// diffGraph compares the dependency edge sets of old and new (spec
// §4.F.5), detecting reparenting (a component's parent set changes) and
// depth shifts (shortest-path distance from the primary component
// changes). Components are identified across documents via the pairing
// already computed for the component diff; unpaired components are
// compared under their own canonical id.
func diffGraph(old, new *model.NormalizedSbom, pairs []pairing, cfg GraphDiffConfig) *GraphSummary {
	oldParents := parentsByChild(old.Edges)
	newParents := parentsByChild(new.Edges)

	// Map old canonical ids to their new-side identity so reparenting and
	// depth comparisons line up matched components even when their
	// canonical id differs across documents.
	oldToNew := make(map[model.CanonicalId]model.CanonicalId, len(pairs))
	for _, p := range pairs {
		oldToNew[p.old.CanonicalID] = p.new.CanonicalID
	}

	summary := &GraphSummary{}

	oldEdgeSet := edgeSet(old.Edges)
	newEdgeSet := edgeSet(new.Edges)
	for e := range newEdgeSet {
		if !oldEdgeSet[e] {
			summary.DependenciesAdded++
		}
	}
	for e := range oldEdgeSet {
		if !newEdgeSet[e] {
			summary.DependenciesRemoved++
		}
	}

	if cfg.DetectReparenting {
		ids := make([]model.CanonicalId, 0, len(oldParents))
		for id := range oldParents {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range ids {
			newID, ok := oldToNew[id]
			if !ok {
				newID = id
			}
			oldP := oldParents[id]
			newP := newParents[newID]
			if !sameParentSet(oldP, newP, oldToNew) {
				summary.Reparented = append(summary.Reparented, ReparentedComponent{
					ComponentID: newID,
					OldParents:  oldP,
					NewParents:  newP,
				})
			}
		}
	}

	if cfg.DetectDepthChanges {
		oldDepths := depthsFrom(old.PrimaryComponentID, old.Edges, cfg.MaxDepth)
		newDepths := depthsFrom(new.PrimaryComponentID, new.Edges, cfg.MaxDepth)

		ids := make([]model.CanonicalId, 0, len(oldDepths))
		for id := range oldDepths {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range ids {
			newID, ok := oldToNew[id]
			if !ok {
				newID = id
			}
			od := oldDepths[id]
			nd, found := newDepths[newID]
			if !found {
				nd = -1
			}
			if od != nd {
				summary.DepthChanged = append(summary.DepthChanged, DepthChange{
					ComponentID: newID,
					OldDepth:    od,
					NewDepth:    nd,
				})
			}
		}
	}

	summary.TotalChanges = summary.DependenciesAdded + summary.DependenciesRemoved + len(summary.Reparented) + len(summary.DepthChanged)
	return summary
}

type edgeKey struct {
	From, To model.CanonicalId
	Kind     model.EdgeKind
}

func edgeSet(edges []model.DependencyEdge) map[edgeKey]bool {
	m := make(map[edgeKey]bool, len(edges))
	for _, e := range edges {
		m[edgeKey{e.From, e.To, e.Kind}] = true
	}
	return m
}

func parentsByChild(edges []model.DependencyEdge) map[model.CanonicalId][]model.CanonicalId {
	m := make(map[model.CanonicalId][]model.CanonicalId)
	for _, e := range edges {
		m[e.To] = append(m[e.To], e.From)
	}
	for id := range m {
		sort.Slice(m[id], func(i, j int) bool { return m[id][i] < m[id][j] })
	}
	return m
}

func sameParentSet(oldParents, newParents []model.CanonicalId, oldToNew map[model.CanonicalId]model.CanonicalId) bool {
	if len(oldParents) != len(newParents) {
		return false
	}
	mapped := make([]model.CanonicalId, len(oldParents))
	for i, p := range oldParents {
		if np, ok := oldToNew[p]; ok {
			mapped[i] = np
		} else {
			mapped[i] = p
		}
	}
	sort.Slice(mapped, func(i, j int) bool { return mapped[i] < mapped[j] })
	sorted := append([]model.CanonicalId(nil), newParents...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i := range mapped {
		if mapped[i] != sorted[i] {
			return false
		}
	}
	return true
}

// depthsFrom runs a breadth-first traversal from root over edges,
// detecting revisits so cycles in the dependency graph (spec §9) cannot
// loop the traversal. maxDepth of 0 means unlimited.
func depthsFrom(root model.CanonicalId, edges []model.DependencyEdge, maxDepth int) map[model.CanonicalId]int {
	depths := map[model.CanonicalId]int{}
	if root == "" {
		return depths
	}
	children := make(map[model.CanonicalId][]model.CanonicalId)
	for _, e := range edges {
		children[e.From] = append(children[e.From], e.To)
	}

	depths[root] = 0
	queue := []model.CanonicalId{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := depths[cur]
		if maxDepth > 0 && d >= maxDepth {
			continue
		}
		for _, c := range children[cur] {
			if _, seen := depths[c]; seen {
				continue
			}
			depths[c] = d + 1
			queue = append(queue, c)
		}
	}
	return depths
}
