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
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/sbomlens/sbomlens/model"
)

// MatrixResult is the output of an N×N pairwise diff (spec §4.F N-ary
// modes). Similarity[i][j] is in [0, 1]; Similarity[i][i] is always 1.
type MatrixResult struct {
	Labels     []string
	Similarity [][]float64
	Clusters   [][]int // indices into Labels
	Outliers   []int   // indices of singleton clusters
}

// Matrix computes the full pairwise diff matrix across documents, derives
// a similarity matrix (1 - semantic_score/100), and applies single-linkage
// agglomerative clustering over the complement of similarity (i.e. the
// semantic-score distance) at the given threshold. Clusters of size one
// are reported as outliers.
//
// The N*(N-1)/2 pairwise diffs are independent, so they run concurrently,
// bounded by GOMAXPROCS -- one goroutine-per-pair within this single
// caller-invoked batch, not a standing internal pool.
func (e *Engine) Matrix(labels []string, sboms []*model.NormalizedSbom, distanceThreshold float64) (*MatrixResult, error) {
	n := len(sboms)
	mr := &MatrixResult{
		Labels:     labels,
		Similarity: make([][]float64, n),
	}
	distance := make([][]float64, n)
	for i := range mr.Similarity {
		mr.Similarity[i] = make([]float64, n)
		distance[i] = make([]float64, n)
		mr.Similarity[i][i] = 1.0
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			i, j := i, j
			g.Go(func() error {
				res, err := e.Diff(sboms[i], sboms[j])
				if err != nil {
					return err
				}
				d := res.SemanticScore / 100.0
				distance[i][j] = d
				distance[j][i] = d
				sim := 1.0 - d
				mr.Similarity[i][j] = sim
				mr.Similarity[j][i] = sim
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mr.Clusters = agglomerativeCluster(distance, distanceThreshold)
	for _, cl := range mr.Clusters {
		if len(cl) == 1 {
			mr.Outliers = append(mr.Outliers, cl[0])
		}
	}

	return mr, nil
}

// agglomerativeCluster performs single-linkage agglomerative clustering:
// start with every index in its own cluster, then repeatedly merge the
// two clusters with the smallest inter-cluster distance (minimum over all
// cross pairs) while that distance is at or below threshold.
func agglomerativeCluster(distance [][]float64, threshold float64) [][]int {
	n := len(distance)
	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	for {
		bestI, bestJ := -1, -1
		bestDist := threshold
		found := false
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				d := minLinkage(clusters[i], clusters[j], distance)
				if d <= bestDist {
					bestDist = d
					bestI, bestJ = i, j
					found = true
				}
			}
		}
		if !found {
			break
		}
		merged := append(append([]int(nil), clusters[bestI]...), clusters[bestJ]...)
		sort.Ints(merged)

		next := make([][]int, 0, len(clusters)-1)
		for k, c := range clusters {
			if k == bestI || k == bestJ {
				continue
			}
			next = append(next, c)
		}
		next = append(next, merged)
		clusters = next
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0] < clusters[j][0] })
	return clusters
}

func minLinkage(a, b []int, distance [][]float64) float64 {
	min := distance[a[0]][b[0]]
	for _, i := range a {
		for _, j := range b {
			if distance[i][j] < min {
				min = distance[i][j]
			}
		}
	}
	return min
}
