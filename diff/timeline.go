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
	"time"

	"github.com/sbomlens/sbomlens/model"
)

// Snapshot is one labeled, timestamped SBOM in a Timeline sequence.
type Snapshot struct {
	Label string
	Taken time.Time
	Sbom  *model.NormalizedSbom
}

// ComponentEvolution summarizes one component's presence across a
// Timeline: when it was first and last observed, and how many times it
// changed (churn) between consecutive snapshots.
type ComponentEvolution struct {
	ComponentName string
	FirstSeen     time.Time
	LastSeen      time.Time
	Churn         int
}

// TimelineResult is the output of diffing an ordered sequence of SBOMs.
type TimelineResult struct {
	ConsecutiveDiffs []*Result
	Evolution        []ComponentEvolution
}

// Timeline computes the consecutive diffs across an ordered sequence of
// snapshots and an evolution summary per component (spec §4.F N-ary
// modes). Snapshots must already be in chronological order; Timeline does
// not sort them, since two snapshots may share a timestamp.
func (e *Engine) Timeline(snapshots []Snapshot) (*TimelineResult, error) {
	tr := &TimelineResult{}
	if len(snapshots) == 0 {
		return tr, nil
	}

	firstSeen := map[string]time.Time{}
	lastSeen := map[string]time.Time{}
	churn := map[string]int{}

	for _, c := range snapshots[0].Sbom.Components() {
		firstSeen[c.Name] = snapshots[0].Taken
		lastSeen[c.Name] = snapshots[0].Taken
	}

	for i := 1; i < len(snapshots); i++ {
		res, err := e.Diff(snapshots[i-1].Sbom, snapshots[i].Sbom)
		if err != nil {
			return nil, err
		}
		tr.ConsecutiveDiffs = append(tr.ConsecutiveDiffs, res)

		for _, c := range snapshots[i].Sbom.Components() {
			if _, ok := firstSeen[c.Name]; !ok {
				firstSeen[c.Name] = snapshots[i].Taken
			}
			lastSeen[c.Name] = snapshots[i].Taken
		}
		for _, c := range res.Components.Added {
			churn[c.Name]++
		}
		for _, c := range res.Components.Removed {
			churn[c.Name]++
		}
		for _, c := range res.Components.Modified {
			churn[c.Name]++
		}
	}

	names := make([]string, 0, len(firstSeen))
	for name := range firstSeen {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		tr.Evolution = append(tr.Evolution, ComponentEvolution{
			ComponentName: name,
			FirstSeen:     firstSeen[name],
			LastSeen:      lastSeen[name],
			Churn:         churn[name],
		})
	}

	return tr, nil
}
