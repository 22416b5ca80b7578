package coverage

import (
	"sort"

	"github.com/paulmach/orb"
)

// BuildCoverageMatrix computes, for each candidate, the set of sample-point
// indices it covers. A candidate's footprint bounding box is checked before
// the exact prepared covers test, which keeps the typical cost well under
// the O(N*M) worst case.
func BuildCoverageMatrix(candidates []Candidate, points []Point) [][]int {
	sets := make([][]int, len(candidates))
	for j := range candidates {
		footprint := candidates[j].Footprint
		bound := footprint.Bounds()
		prepared := footprint.Prepared()

		var covered []int
		for i, pt := range points {
			p := orb.Point{pt.X, pt.Y}
			if !bound.Contains(p) {
				continue
			}
			if prepared.Covers(p) {
				covered = append(covered, i)
			}
		}
		sets[j] = covered

		coveredSet := make(map[int]struct{}, len(covered))
		for _, idx := range covered {
			coveredSet[idx] = struct{}{}
		}
		candidates[j].CoveredPoints = coveredSet
	}
	return sets
}

// costOf computes a candidate's weighted selection cost, floored at 0.01 so
// a perfect image never divides a gain by zero.
func costOf(c Candidate, cloudWeight, qualityWeight float64) float64 {
	cost := cloudWeight*(c.CloudCover/100) + qualityWeight*(1-c.QualityScore)
	if cost < 0.01 {
		return 0.01
	}
	return cost
}

// GreedySolve runs the weighted greedy set-cover loop: each iteration picks
// the unselected candidate with the best uncovered-gain-per-cost ratio,
// breaking ties toward the lower candidate position for determinism, and
// stops once the coverage target is met or no candidate adds anything.
func GreedySolve(instance *CoverageInstance) CoverageResult {
	m := len(instance.SamplePoints)
	n := len(instance.Candidates)
	target := int(float64(m) * instance.MinCoverageFraction)

	uncovered := make(map[int]struct{}, m)
	for i := 0; i < m; i++ {
		uncovered[i] = struct{}{}
	}
	selected := make([]int, 0)
	chosen := make(map[int]bool, n)

	covered := 0
	maxIterations := n
	if m < maxIterations {
		maxIterations = m
	}

	for iter := 0; iter < maxIterations && covered < target; iter++ {
		bestJ := -1
		bestRatio := -1.0
		bestGain := 0

		for j := 0; j < n; j++ {
			if chosen[j] {
				continue
			}
			gain := 0
			for _, idx := range instance.CoverageSets[j] {
				if _, ok := uncovered[idx]; ok {
					gain++
				}
			}
			if gain == 0 {
				continue
			}
			cost := costOf(instance.Candidates[j], instance.CloudWeight, instance.QualityWeight)
			ratio := float64(gain) / cost
			if ratio > bestRatio || (ratio == bestRatio && bestJ != -1 && j < bestJ) {
				bestRatio = ratio
				bestJ = j
				bestGain = gain
			}
		}

		if bestJ == -1 {
			break
		}

		selected = append(selected, instance.Candidates[bestJ].Index)
		chosen[bestJ] = true
		for _, idx := range instance.CoverageSets[bestJ] {
			delete(uncovered, idx)
		}
		covered += bestGain
	}

	return buildResult(instance, selected, "greedy", nil, 0)
}

// buildResult derives the result fields both solvers share. The coverage
// fraction is recomputed from the union of the selected coverage sets, not
// from a running counter, so it stays exact even under solver rounding.
func buildResult(instance *CoverageInstance, selectedOriginalIndices []int, solverType string, optimal *bool, solverSeconds float64) CoverageResult {
	m := len(instance.SamplePoints)
	unionSet := make(map[int]struct{})

	byIndex := make(map[int]int, len(instance.Candidates)) // original index -> position j
	for j, c := range instance.Candidates {
		byIndex[c.Index] = j
	}

	for _, origIdx := range selectedOriginalIndices {
		j, ok := byIndex[origIdx]
		if !ok {
			continue
		}
		for _, idx := range instance.CoverageSets[j] {
			unionSet[idx] = struct{}{}
		}
	}

	coverageFraction := 0.0
	if m > 0 {
		coverageFraction = float64(len(unionSet)) / float64(m)
	}

	sortedSelected := make([]int, len(selectedOriginalIndices))
	copy(sortedSelected, selectedOriginalIndices)
	if solverType == "milp" {
		sort.Ints(sortedSelected)
	}

	return CoverageResult{
		SelectedIndices:   sortedSelected,
		CoverageFraction:  coverageFraction,
		UncoveredAreaM2:   (1 - coverageFraction) * instance.AOIAreaM2,
		NumCandidates:     len(instance.Candidates),
		NumSelected:       len(sortedSelected),
		SolverType:        solverType,
		SolverTimeSeconds: solverSeconds,
		Optimal:           optimal,
	}
}
