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
	"time"

	"github.com/sbomlens/sbomlens/diff"
	"github.com/sbomlens/sbomlens/model"
)

func TestMatrixSimilarityDiagonalIsOne(t *testing.T) {
	a := sbomOf(comp("react@18", "react", "18.0.0", model.EcosystemNpm, "pkg:npm/react@18.0.0"))
	b := sbomOf(comp("vue@3", "vue", "3.0.0", model.EcosystemNpm, "pkg:npm/vue@3.0.0"))

	mr, err := diff.New().Matrix([]string{"a", "b"}, []*model.NormalizedSbom{a, b}, 0.5)
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	for i := range mr.Similarity {
		if mr.Similarity[i][i] != 1.0 {
			t.Errorf("Similarity[%d][%d] = %v, want 1.0", i, i, mr.Similarity[i][i])
		}
	}
}

func TestMatrixClustersIdenticalDocuments(t *testing.T) {
	c := comp("react@18", "react", "18.0.0", model.EcosystemNpm, "pkg:npm/react@18.0.0")
	a := sbomOf(c)
	b := sbomOf(c)
	outlier := sbomOf(comp("totally-different@1", "totally-different", "1.0.0", model.EcosystemNpm, "pkg:npm/totally-different@1.0.0"))

	mr, err := diff.New().Matrix([]string{"a", "b", "outlier"}, []*model.NormalizedSbom{a, b, outlier}, 0.3)
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	if len(mr.Outliers) == 0 {
		t.Error("expected at least one outlier when one document is wholly unrelated")
	}

	foundPair := false
	for _, cl := range mr.Clusters {
		if len(cl) == 2 {
			foundPair = true
		}
	}
	if !foundPair {
		t.Errorf("expected the two identical documents to cluster together, got %+v", mr.Clusters)
	}
}

func TestMultiDiffReportsVariableComponents(t *testing.T) {
	baseline := sbomOf(
		comp("react@18", "react", "18.0.0", model.EcosystemNpm, "pkg:npm/react@18.0.0"),
		comp("lodash@4", "lodash", "4.17.21", model.EcosystemNpm, "pkg:npm/lodash@4.17.21"),
	)
	targetA := sbomOf(
		comp("react@18", "react", "18.0.0", model.EcosystemNpm, "pkg:npm/react@18.0.0"),
		comp("lodash@4", "lodash", "4.17.21", model.EcosystemNpm, "pkg:npm/lodash@4.17.21"),
	)
	targetB := sbomOf(
		comp("react@18", "react", "18.0.0", model.EcosystemNpm, "pkg:npm/react@18.0.0"),
		comp("lodash@4b", "lodash", "4.17.22", model.EcosystemNpm, "pkg:npm/lodash@4.17.22"),
	)

	mr, err := diff.New().MultiDiff(baseline, map[string]*model.NormalizedSbom{"a": targetA, "b": targetB})
	if err != nil {
		t.Fatalf("MultiDiff: %v", err)
	}
	if len(mr.Targets) != 2 {
		t.Fatalf("len(Targets) = %d, want 2", len(mr.Targets))
	}
	foundLodash := false
	for _, name := range mr.VariableComponents {
		if name == "lodash" {
			foundLodash = true
		}
	}
	if !foundLodash {
		t.Errorf("expected lodash in VariableComponents, got %+v", mr.VariableComponents)
	}
	if mr.MaxDeviation < 0 {
		t.Errorf("MaxDeviation = %v, want >= 0", mr.MaxDeviation)
	}
}

func TestTimelineTracksFirstLastSeenAndChurn(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	t1 := time.Unix(1700086400, 0)
	t2 := time.Unix(1700172800, 0)

	lodash100 := comp("lodash@1.0.0", "lodash", "1.0.0", model.EcosystemNpm, "pkg:npm/lodash@1.0.0")
	lodash101 := comp("lodash@1.0.1", "lodash", "1.0.1", model.EcosystemNpm, "pkg:npm/lodash@1.0.1")

	snaps := []diff.Snapshot{
		{Label: "day0", Taken: t0, Sbom: sbomOf(lodash100)},
		{Label: "day1", Taken: t1, Sbom: sbomOf(lodash101)},
		{Label: "day2", Taken: t2, Sbom: sbomOf(lodash101)},
	}

	tr, err := diff.New().Timeline(snaps)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(tr.ConsecutiveDiffs) != 2 {
		t.Fatalf("len(ConsecutiveDiffs) = %d, want 2", len(tr.ConsecutiveDiffs))
	}
	var lodashEvo *diff.ComponentEvolution
	for i := range tr.Evolution {
		if tr.Evolution[i].ComponentName == "lodash" {
			lodashEvo = &tr.Evolution[i]
		}
	}
	if lodashEvo == nil {
		t.Fatal("expected an evolution entry for lodash")
	}
	if !lodashEvo.FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen = %v, want %v", lodashEvo.FirstSeen, t0)
	}
	if !lodashEvo.LastSeen.Equal(t2) {
		t.Errorf("LastSeen = %v, want %v", lodashEvo.LastSeen, t2)
	}
	if lodashEvo.Churn != 1 {
		t.Errorf("Churn = %d, want 1 (one version bump between day0 and day1)", lodashEvo.Churn)
	}
}
