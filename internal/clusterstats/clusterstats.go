// Package clusterstats computes summary statistics for extracted valley
// clusters, for use by reporting and presentation layers.
package clusterstats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mcbj-data/conductance.report/internal/multires"
	"github.com/mcbj-data/conductance.report/internal/valley"
)

// ErrOutOfBounds is returned when a cluster's interval does not fit the
// output's profile.
var ErrOutOfBounds = errors.New("clusterstats: cluster bounds outside profile")

// Stats summarizes one extracted cluster against its clustering output.
type Stats struct {
	SolutionNumber int `json:"solution_number"`
	ClusterNumber  int `json:"cluster_number"`
	Size           int `json:"size"`
	TraceCount     int `json:"trace_count"`

	// Reachability distribution over the cluster's profile positions.
	// Undefined (infinite) entries are skipped.
	ReachMean   float64 `json:"reach_mean"`
	ReachStdDev float64 `json:"reach_std_dev"`
	ReachMedian float64 `json:"reach_median"`

	// Per-column feature means and standard deviations over the member
	// segments.
	FeatureMeans   []float64 `json:"feature_means"`
	FeatureStdDevs []float64 `json:"feature_std_devs"`
}

// Compute summarizes cluster c against the output it was extracted from.
// features is the dataset's feature matrix, indexed by original position
// (the same matrix the clustering pass consumed).
func Compute(out *multires.Output, features [][]float64, c valley.Cluster) (*Stats, error) {
	n := out.Profile.Len()
	if c.Start < 1 || c.End > n || c.Start > c.End {
		return nil, ErrOutOfBounds
	}

	s := &Stats{
		SolutionNumber: c.SolutionNumber,
		ClusterNumber:  c.ClusterNumber,
		Size:           c.Size,
	}

	reach := make([]float64, 0, c.Size)
	traces := map[int]bool{}
	var memberRows [][]float64

	for pos := c.Start - 1; pos <= c.End-1; pos++ {
		if r := out.Profile.Reachability[pos]; !math.IsInf(r, 1) {
			reach = append(reach, r)
		}
		orig := pos
		if out.Profile.Ordering != nil {
			orig = out.Profile.Ordering[pos]
		}
		if orig < len(out.TraceIDs) {
			traces[out.TraceIDs[orig]] = true
		}
		if orig < len(features) {
			memberRows = append(memberRows, features[orig])
		}
	}
	s.TraceCount = len(traces)

	if len(reach) > 0 {
		s.ReachMean, s.ReachStdDev = stat.MeanStdDev(reach, nil)
		if len(reach) == 1 {
			s.ReachStdDev = 0
		}
		sort.Float64s(reach)
		s.ReachMedian = stat.Quantile(0.5, stat.Empirical, reach, nil)
	}

	if len(memberRows) > 0 {
		dim := len(memberRows[0])
		s.FeatureMeans = make([]float64, dim)
		s.FeatureStdDevs = make([]float64, dim)
		col := make([]float64, len(memberRows))
		for k := 0; k < dim; k++ {
			for i, row := range memberRows {
				col[i] = row[k]
			}
			s.FeatureMeans[k], s.FeatureStdDevs[k] = stat.MeanStdDev(col, nil)
			if len(memberRows) == 1 {
				s.FeatureStdDevs[k] = 0
			}
		}
	}

	return s, nil
}

// ComputeAll summarizes every ranked cluster of the output, in ranking
// order.
func ComputeAll(out *multires.Output, features [][]float64) ([]Stats, error) {
	all := make([]Stats, 0, len(out.Clusters))
	for _, c := range out.Clusters {
		s, err := Compute(out, features, c)
		if err != nil {
			return nil, err
		}
		all = append(all, *s)
	}
	return all, nil
}
