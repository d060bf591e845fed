package valley

import "sort"

// Rank assigns (SolutionNumber, ClusterNumber) to every extracted cluster
// and returns the clusters sorted by that numbering. The input slice is not
// modified.
//
// Solutions group clusters by the identity of their source peak (never by
// floating-point closeness of levels: distinct spikes that happen to share a
// value stay distinct solutions). Solutions are numbered 1, 2, 3... by
// ascending extraction level — the lowest surviving threshold is solution 1,
// the coarsest grouping — with the source peak position breaking value ties.
// Within a solution, clusters number 1, 2, 3... left to right by start
// index.
//
// Rank is pure and idempotent: ranking a ranked set reproduces the same
// numbering.
func Rank(clusters []Cluster) []Cluster {
	ranked := make([]Cluster, len(clusters))
	copy(ranked, clusters)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Level != ranked[j].Level {
			return ranked[i].Level < ranked[j].Level
		}
		if ranked[i].SourcePeak != ranked[j].SourcePeak {
			return ranked[i].SourcePeak < ranked[j].SourcePeak
		}
		return ranked[i].Start < ranked[j].Start
	})

	solution := 0
	clusterNum := 0
	prevPeak := 0
	for i := range ranked {
		if i == 0 || ranked[i].SourcePeak != prevPeak || ranked[i].Level != ranked[i-1].Level {
			solution++
			clusterNum = 0
		}
		clusterNum++
		ranked[i].SolutionNumber = solution
		ranked[i].ClusterNumber = clusterNum
		prevPeak = ranked[i].SourcePeak
	}

	return ranked
}

// Solutions splits a ranked cluster list into its per-solution groups, in
// solution order. It assumes the input came from Rank; clusters that were
// never ranked (solution number below 1) are skipped rather than grouped.
func Solutions(ranked []Cluster) [][]Cluster {
	var groups [][]Cluster
	for _, c := range ranked {
		if c.SolutionNumber < 1 {
			continue
		}
		if c.SolutionNumber > len(groups) {
			groups = append(groups, nil)
		}
		groups[c.SolutionNumber-1] = append(groups[c.SolutionNumber-1], c)
	}
	return groups
}
