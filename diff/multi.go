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

// TargetDiff is one baseline-vs-target diff within a MultiResult.
type TargetDiff struct {
	Label  string
	Result *Result
}

// MultiResult is the output of a 1-to-N multi-diff (spec §4.F N-ary modes).
type MultiResult struct {
	Targets           []TargetDiff
	VariableComponents []string // component names that differ across at least one target
	MaxDeviation      float64   // largest SemanticScore across targets
}

// MultiDiff diffs baseline against every target, reporting per-target
// results plus a summary of components that vary across targets and the
// largest observed semantic deviation.
func (e *Engine) MultiDiff(baseline *model.NormalizedSbom, targets map[string]*model.NormalizedSbom) (*MultiResult, error) {
	labels := make([]string, 0, len(targets))
	for label := range targets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	mr := &MultiResult{}
	changedNames := map[string]bool{}

	for _, label := range labels {
		res, err := e.Diff(baseline, targets[label])
		if err != nil {
			return nil, err
		}
		mr.Targets = append(mr.Targets, TargetDiff{Label: label, Result: res})
		if res.SemanticScore > mr.MaxDeviation {
			mr.MaxDeviation = res.SemanticScore
		}
		for _, c := range res.Components.Added {
			changedNames[c.Name] = true
		}
		for _, c := range res.Components.Removed {
			changedNames[c.Name] = true
		}
		for _, c := range res.Components.Modified {
			changedNames[c.Name] = true
		}
	}

	for name := range changedNames {
		mr.VariableComponents = append(mr.VariableComponents, name)
	}
	sort.Strings(mr.VariableComponents)

	return mr, nil
}
